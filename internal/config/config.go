package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DBDriver     string
	DBSource     string
	CSRFKey      []byte
	SessionKey   []byte
	CookieDomain string
	CookieSecure bool

	TelegramToken     string
	TelegramAdminChat string
	TelegramAPIURL    string

	AllowAnonymousOrders bool
	PublicOrderList      bool

	AdminUsername   string
	AdminPassword   string
	DefaultLanguage string

	UploadDir      string
	TemplateDir    string
	StaticDir      string
	TemplateReload bool
	AssetVersion   string

	LogLevel slog.Level
}

// LoadConfig reads the environment, after loading .env from the working
// directory when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8000"),
		CookieDomain: getEnv("COOKIE_DOMAIN", ""),
		CookieSecure: getBool("COOKIE_SECURE", false),

		TelegramToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAdminChat: getEnv("TELEGRAM_ADMIN_CHAT_ID", ""),
		TelegramAPIURL:    getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),

		AllowAnonymousOrders: getBool("ALLOW_ANONYMOUS_ORDERS", true),
		PublicOrderList:      getBool("PUBLIC_ORDER_LIST", true),

		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "ru"),

		UploadDir:      getEnv("UPLOAD_DIR", "static/uploads"),
		TemplateDir:    getEnv("TEMPLATE_DIR", "templates"),
		StaticDir:      getEnv("STATIC_DIR", "static"),
		TemplateReload: getBool("TEMPLATE_RELOAD", false),
		AssetVersion:   getEnv("ASSET_VERSION", strconv.FormatInt(time.Now().Unix(), 10)),
	}

	cfg.DBDriver, cfg.DBSource = database()
	cfg.LogLevel = parseLevel(getEnv("LOG_LEVEL", "info"))
	cfg.CSRFKey = loadKey("CSRF_KEY")
	cfg.SessionKey = loadKey("SESSION_KEY")

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", os.Getenv("PORT"))
		cfg.Port = "8000"
	}

	return cfg, nil
}

// database picks the driver and data source. A postgres URL in
// DATABASE_URL wins over DB_DRIVER.
func database() (driver, source string) {
	url := os.Getenv("DATABASE_URL")
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "postgres", url
	}
	driver = getEnv("DB_DRIVER", "sqlite")
	if driver == "postgres" && url != "" {
		return driver, url
	}
	return driver, getEnv("DB_PATH", "./felix_hub.db")
}

// loadKey decodes a base64 secret of at least 32 bytes, or generates a
// random one that will not survive a restart.
func loadKey(name string) []byte {
	raw := os.Getenv(name)
	if raw == "" {
		slog.Warn(name + " not set. Generating a random key for development. PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(key) < 32 {
		slog.Warn(name + " is invalid or shorter than 32 bytes. Generating a random key for development.")
		return generateRandomBytes(32)
	}
	return key
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		slog.Warn("Unknown LOG_LEVEL, using info", "LOG_LEVEL", s)
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("Invalid boolean, using default", "key", key, "value", value)
		return defaultValue
	}
	return b
}

func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform is broken.
		panic(err)
	}
	return b
}
