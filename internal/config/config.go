package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	StorageDir string
	OutputDir  string

	AllowedDomain string
	UserAgent     string
	TimeoutMs     int
	Retries       int
	BackoffMs     int
	ThrottleMs    int
	RateLimitRPS  int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	ListenerProvider    string
	ListenerLabel       string
	ListenerIntervalSec int
	ListenerFetchMax    int
	ListenerImportBatch int

	DefaultOrganizationID int
	DefaultUserID         int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		StorageDir: getEnv("STORAGE_DIR", filepath.Join(cwd, "data", "storage")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		AllowedDomain: getEnv("SCRAPE_ALLOWED_DOMAIN", "fundainbusiness.nl"),
		UserAgent:     getEnv("SCRAPE_USER_AGENT", "Mozilla/5.0 (compatible; fundimport/1.0)"),
		TimeoutMs:     getEnvInt("SCRAPE_TIMEOUT_MS", 30000),
		Retries:       getEnvInt("SCRAPE_RETRIES", 3),
		BackoffMs:     getEnvInt("SCRAPE_BACKOFF_MS", 500),
		ThrottleMs:    getEnvInt("SCRAPE_THROTTLE_MS", 1000),
		RateLimitRPS:  getEnvInt("SCRAPE_RATE_LIMIT_RPS", 2),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		ListenerProvider:    getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		ListenerLabel:       getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		ListenerIntervalSec: getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 60),
		ListenerFetchMax:    getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		ListenerImportBatch: getEnvInt("MAIL_LISTENER_IMPORT_BATCH", 10),

		DefaultOrganizationID: getEnvInt("IMPORT_DEFAULT_ORGANIZATION_ID", 0),
		DefaultUserID:         getEnvInt("IMPORT_DEFAULT_USER_ID", 0),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
