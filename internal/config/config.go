package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config é injetada explicitamente nos construtores: nada de estado
// de configuração em nível de pacote.
type Config struct {
	Port        string
	DatabaseURL string

	RabbitUser string
	RabbitPass string
	RabbitHost string
	RabbitPort string

	// Segredo compartilhado do webhook do CRM (Authorization: Bearer)
	CRMWebhookSecret string

	// Política de match quando o payload traz deal ref E email:
	// true = referência do deal ganha (foi gravada por nós na criação
	// do lead, é a chave mais forte).
	MatchDealRefFirst bool

	// Plataforma de ads
	AdsAPIURL          string
	AdsConversionID    string
	AdsConversionLabel string
	AdsAPIToken        string
	AnalyticsTagID     string

	// Retentativa de upload
	UploadMaxAttempts int
	UploadBackoffBase time.Duration
	UploadBackoffCap  time.Duration

	// Varredura de jobs PENDING órfãos
	RequeueSweepInterval time.Duration
	RequeueStaleAfter    time.Duration

	// Alertas de operação
	MailHost     string
	MailPort     int
	MailUser     string
	MailPass     string
	AlertEmailTo string

	CORSAllowedOrigins []string

	// Cookies de identidade/atribuição
	CookieDomain string
	CookieTTL    time.Duration
}

func Load() *Config {
	_ = godotenv.Load() // Ignora erro se .env não existir (prod)

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RabbitUser: getEnv("RABBITMQ_USER", "user"),
		RabbitPass: getEnv("RABBITMQ_PASS", "password"),
		RabbitHost: getEnv("RABBITMQ_HOST", "localhost"),
		RabbitPort: getEnv("RABBITMQ_PORT", "5672"),

		CRMWebhookSecret:  getEnv("CRM_WEBHOOK_SECRET", ""),
		MatchDealRefFirst: getEnvBool("MATCH_DEAL_REF_FIRST", true),

		AdsAPIURL:          getEnv("ADS_API_URL", "https://googleads.googleapis.com/v17"),
		AdsConversionID:    getEnv("ADS_CONVERSION_ID", ""),
		AdsConversionLabel: getEnv("ADS_CONVERSION_LABEL", ""),
		AdsAPIToken:        getEnv("ADS_API_TOKEN", ""),
		AnalyticsTagID:     getEnv("ANALYTICS_TAG_ID", ""),

		UploadMaxAttempts: getEnvInt("UPLOAD_MAX_ATTEMPTS", 5),
		UploadBackoffBase: getEnvDuration("UPLOAD_BACKOFF_BASE", 1*time.Second),
		UploadBackoffCap:  getEnvDuration("UPLOAD_BACKOFF_CAP", 60*time.Second),

		RequeueSweepInterval: getEnvDuration("REQUEUE_SWEEP_INTERVAL", 5*time.Minute),
		RequeueStaleAfter:    getEnvDuration("REQUEUE_STALE_AFTER", 15*time.Minute),

		MailHost:     getEnv("MAIL_HOST", ""),
		MailPort:     getEnvInt("MAIL_PORT", 587),
		MailUser:     getEnv("MAIL_USER", ""),
		MailPass:     getEnv("MAIL_PASS", ""),
		AlertEmailTo: getEnv("ALERT_EMAIL_TO", ""),

		CORSAllowedOrigins: []string{getEnv("CORS_ORIGIN", "*")},

		CookieDomain: getEnv("COOKIE_DOMAIN", ""),
		CookieTTL:    getEnvDuration("COOKIE_TTL", 30*24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
