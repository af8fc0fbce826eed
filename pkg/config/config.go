package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OAuth     OAuthConfig
	Storage   StorageConfig
	AI        AIConfig
	Mail      MailConfig
	Kafka     KafkaConfig
	Jobs      JobsConfig
	RulesPath string
	Rules     Rules
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
	// InboundSecret signs POST /v1/inbound pushes; empty disables the check
	InboundSecret string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver      string // "postgres" or "memory"
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// OAuthConfig holds OAuth configuration
type OAuthConfig struct {
	Google GoogleOAuthConfig
}

// GoogleOAuthConfig holds the Google client used for Gmail and Calendar calls
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	RefreshToken string
	CalendarID   string
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// AIConfig selects and configures the text-completion backend
type AIConfig struct {
	Provider string // "groq", "bedrock" or "none"
	Groq     GroqConfig
	Bedrock  BedrockConfig
}

// GroqConfig holds Groq API configuration
type GroqConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
}

// BedrockConfig holds AWS Bedrock configuration
type BedrockConfig struct {
	Region  string
	ModelID string
}

// MailConfig selects the outbound provider
type MailConfig struct {
	Provider    string // "gmail", "ses" or "log"
	FromAddress string
	FromName    string
	SES         SESConfig
}

// SESConfig holds AWS SES configuration
type SESConfig struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	ConfigurationSet string
}

// KafkaConfig holds the work-item stream configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// Load loads configuration from environment variables and the rules file
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", "http://localhost:3000"),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
			InboundSecret:   getEnv("INBOUND_WEBHOOK_SECRET", ""),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("STORE_DRIVER", "postgres"),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "meeting_scheduler"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			LockTTL:  getEnvAsDuration("DISTLOCK_TTL", "10m"),
		},
		OAuth: OAuthConfig{
			Google: GoogleOAuthConfig{
				ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/v1/mailbox/callback"),
				RefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
				CalendarID:   getEnv("GOOGLE_CALENDAR_ID", "primary"),
			},
		},
		Storage: StorageConfig{
			Enabled:         getEnvAsBool("STORAGE_ENABLED", false),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "meeting-scheduler"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		AI: AIConfig{
			Provider: getEnv("AI_PROVIDER", "groq"),
			Groq: GroqConfig{
				APIKey:     getEnv("GROQ_API_KEY", ""),
				BaseURL:    getEnv("GROQ_API_URL", "https://api.groq.com"),
				Model:      getEnv("GROQ_MODEL", "llama-3.1-70b-versatile"),
				MaxRetries: getEnvAsInt("GROQ_MAX_RETRIES", 3),
			},
			Bedrock: BedrockConfig{
				Region:  getEnv("BEDROCK_REGION", "us-east-1"),
				ModelID: getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
			},
		},
		Mail: MailConfig{
			Provider:    getEnv("MAIL_PROVIDER", "log"),
			FromAddress: getEnv("MAIL_FROM_ADDRESS", "scheduling@example.com"),
			FromName:    getEnv("MAIL_FROM_NAME", "Scheduling Assistant"),
			SES: SESConfig{
				Region:           getEnv("SES_REGION", "us-east-1"),
				AccessKeyID:      getEnv("SES_ACCESS_KEY_ID", ""),
				SecretAccessKey:  getEnv("SES_SECRET_ACCESS_KEY", ""),
				ConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),
			},
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsSlice("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_WORK_ITEM_TOPIC", "scheduling.work-items"),
		},
		Jobs:      DefaultJobsConfig(),
		RulesPath: getEnv("RULES_PATH", "config/rules.yaml"),
	}

	// JOB_* overrides on top of the defaults
	if err := envconfig.Process("JOB", &config.Jobs); err != nil {
		return nil, fmt.Errorf("failed to read job configuration: %w", err)
	}

	rules, err := LoadRules(config.RulesPath)
	if err != nil {
		return nil, err
	}
	config.Rules = rules

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.Database.Driver)
	}
	switch c.Mail.Provider {
	case "gmail":
		if c.OAuth.Google.ClientID == "" || c.OAuth.Google.ClientSecret == "" || c.OAuth.Google.RefreshToken == "" {
			return fmt.Errorf("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN are required for gmail")
		}
	case "ses", "log":
	default:
		return fmt.Errorf("MAIL_PROVIDER must be gmail, ses or log, got %q", c.Mail.Provider)
	}
	switch c.AI.Provider {
	case "groq":
		if c.AI.Groq.APIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required when AI_PROVIDER=groq")
		}
	case "bedrock", "none":
	default:
		return fmt.Errorf("AI_PROVIDER must be groq, bedrock or none, got %q", c.AI.Provider)
	}
	return c.Rules.Validate()
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
