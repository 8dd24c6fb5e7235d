package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vorokhovskii-creator/felix-hub/internal/config"
	"github.com/vorokhovskii-creator/felix-hub/internal/notify"
	"github.com/vorokhovskii-creator/felix-hub/internal/service"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "felix-cli",
		Short:         "Felix Hub maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(migrateCmd(), addAdminCmd(), addMechanicCmd(), importCatalogCmd())
	return cmd
}

// openStore connects with the server's configuration and brings the schema
// up to date, so commands work before the server has ever run.
func openStore(ctx context.Context) (*store.Store, *config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	db, err := store.NewStore(cfg.DBDriver, cfg.DBSource)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db, cfg, nil
}

func newService(db *store.Store) *service.Service {
	return service.New(db, notify.New(nil, "", "", nil), nil, nil, service.Options{})
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Printf("Database (%s) is up to date.\n", cfg.DBDriver)
			return nil
		},
	}
}

func addAdminCmd() *cobra.Command {
	var (
		username string
		password string
		update   bool
	)
	cmd := &cobra.Command{
		Use:   "add-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}
			db, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			hash, err := service.HashPassword(password)
			if err != nil {
				return err
			}
			_, err = db.CreateAdmin(cmd.Context(), username, hash)
			if errors.Is(err, store.ErrConflict) && update {
				if err := db.SetAdminPassword(cmd.Context(), username, hash); err != nil {
					return err
				}
				fmt.Printf("Password for admin '%s' updated.\n", username)
				return nil
			}
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Printf("Admin '%s' created successfully.\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username for the new admin")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for the new admin")
	cmd.Flags().BoolVar(&update, "update", false, "Reset the password if the admin already exists")
	return cmd
}

func addMechanicCmd() *cobra.Command {
	var (
		username, password, fullName, chatID, language string
	)
	cmd := &cobra.Command{
		Use:   "add-mechanic",
		Short: "Create a mechanic account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			p := service.MechanicPatch{
				Username: &username,
				Password: &password,
				FullName: &fullName,
				Language: &language,
			}
			if chatID != "" {
				p.ChatID = &chatID
			}
			m, err := newService(db).CreateMechanic(cmd.Context(), p)
			if err != nil {
				return fmt.Errorf("create mechanic: %w", err)
			}
			fmt.Printf("Mechanic '%s' (id %d) created successfully.\n", m.Username, m.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Login name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (at least 6 characters)")
	cmd.Flags().StringVarP(&fullName, "name", "n", "", "Full name")
	cmd.Flags().StringVar(&chatID, "telegram-id", "", "Telegram chat id for notifications")
	cmd.Flags().StringVar(&language, "language", "ru", "Preferred language (ru, en, he)")
	return cmd
}

func importCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-catalog",
		Short: "Add the built-in categories and parts that are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := newService(db).ImportDefaultCatalog(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Categories added: %d, parts added: %d, parts skipped: %d\n",
				res.CategoriesAdded, res.PartsAdded, res.PartsSkipped)
			return nil
		},
	}
}
