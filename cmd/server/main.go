package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vorokhovskii-creator/felix-hub/internal/config"
	"github.com/vorokhovskii-creator/felix-hub/internal/handlers"
	"github.com/vorokhovskii-creator/felix-hub/internal/live"
	"github.com/vorokhovskii-creator/felix-hub/internal/metrics"
	"github.com/vorokhovskii-creator/felix-hub/internal/notify"
	"github.com/vorokhovskii-creator/felix-hub/internal/service"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Init DB
	db, err := store.NewStore(cfg.DBDriver, cfg.DBSource)
	if err != nil {
		slog.Error("Failed to initialize store", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := db.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		slog.Error("Failed to seed admin", "error", err)
		os.Exit(1)
	}

	// 3. Metrics, notifications, live feed
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	var sender notify.Sender
	if cfg.TelegramToken != "" {
		sender = notify.NewTelegram(cfg.TelegramAPIURL, cfg.TelegramToken)
	} else {
		slog.Warn("TELEGRAM_BOT_TOKEN not set, notifications are disabled")
	}
	notifier := notify.New(sender, cfg.TelegramAdminChat, cfg.DefaultLanguage, m)
	hub := live.NewHub(m)

	svc := service.New(db, notifier, hub, m, service.Options{
		AllowAnonymous: cfg.AllowAnonymousOrders,
		AdminLanguage:  cfg.DefaultLanguage,
	})

	// 4. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 5. Init Templates
	templates := handlers.NewTemplateCache(cfg.AssetVersion)
	if err := templates.Load(os.DirFS(cfg.TemplateDir)); err != nil {
		slog.Error("Failed to load templates", "dir", cfg.TemplateDir, "error", err)
		os.Exit(1)
	}
	if cfg.TemplateReload {
		if err := templates.Watch(ctx, cfg.TemplateDir); err != nil {
			slog.Warn("Template reload disabled", "error", err)
		}
	}

	// 6. Routes
	mux := handlers.NewRouter(&handlers.Base{
		Store:        db,
		Service:      svc,
		SessionStore: sessionStore,
		Templates:    templates,
		Hub:          hub,
		Options: handlers.Options{
			PublicOrderList: cfg.PublicOrderList,
			DefaultLanguage: cfg.DefaultLanguage,
			UploadDir:       cfg.UploadDir,
		},
	}, handlers.Router{
		StaticDir: cfg.StaticDir,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	})

	// 7. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure),
		csrf.Path("/"),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.ErrorHandler(http.HandlerFunc(handlers.CSRFErrorHandler)),
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)
	protected := CSRF(mux)
	if !cfg.CookieSecure {
		protected = handlers.PlaintextMiddleware(protected)
	}

	// Chain: Logger -> Security Headers -> CSRF -> Mux
	handler := handlers.LoggingMiddleware(m)(
		handlers.SecurityHeadersMiddleware(protected),
	)

	// 8. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "db", cfg.DBDriver, "anonymous_orders", cfg.AllowAnonymousOrders)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server exited gracefully.")
}
