package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Email      EmailConfig
	Stripe     StripeConfig
	Enrollment EnrollmentConfig
	Catalog    CatalogConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// EmailConfig holds the SMTP transport settings plus the site-wide
// message surface: default templates, admin notification address and the
// enable/disable flag.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	From         string
	Enabled      bool
	AdminAddress string
	BuyerSubject string
	AdminSubject string
	BuyerDefault string
	AdminDefault string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string // base URL of the course page; payment_success=1 is appended
}

type EnrollmentConfig struct {
	FormTokenTTL time.Duration
	DateLockTTL  time.Duration
}

type CatalogConfig struct {
	ItemsPerPage int
}

// Default message templates. Placeholders in brackets are substituted at
// send time; unknown placeholders are left as-is.
const (
	defaultBuyerTemplate = "Hei [buyer_name],\n\n" +
		"Takk for din påmelding til [course_title] ([course_date]).\n\n" +
		"Antall deltakere: [participant_count]\n" +
		"Deltakere:\n[participants]\n\n" +
		"Totalpris: [total_price] kr\n\n" +
		"Beste hilsener,\nKursadministrator-teamet"

	defaultAdminTemplate = "Ny påmelding til [course_title] ([course_date]).\n\n" +
		"Påmeldt av: [buyer_name] ([buyer_email])\n" +
		"Antall deltakere: [participant_count]\n" +
		"Deltakere:\n[participants]\n" +
		"Totalpris: [total_price] kr"
)

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8084"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			Topic:   getEnv("KAFKA_TOPIC_ENROLLMENTS", "course.enrollments"),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("MAIL_FROM", "no-reply@localhost"),
			Enabled:      getEnvBool("MAIL_ENABLED", true),
			AdminAddress: getEnv("MAIL_ADMIN_ADDRESS", ""),
			BuyerSubject: getEnv("MAIL_BUYER_SUBJECT", "Bekreftelse på kurspåmelding"),
			AdminSubject: getEnv("MAIL_ADMIN_SUBJECT", "Ny kurspåmelding"),
			BuyerDefault: getEnv("MAIL_BUYER_TEMPLATE", defaultBuyerTemplate),
			AdminDefault: getEnv("MAIL_ADMIN_TEMPLATE", defaultAdminTemplate),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:      getEnv("STRIPE_CURRENCY", "nok"),
			SuccessURL:    getEnv("COURSE_PAGE_URL", "http://localhost:8084/kurs"),
		},
		Enrollment: EnrollmentConfig{
			FormTokenTTL: time.Duration(getEnvInt("FORM_TOKEN_TTL_MINUTES", 15)) * time.Minute,
			DateLockTTL:  time.Duration(getEnvInt("DATE_LOCK_TTL_SECONDS", 10)) * time.Second,
		},
		Catalog: CatalogConfig{
			ItemsPerPage: getEnvInt("ITEMS_PER_PAGE", 10),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
