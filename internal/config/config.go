package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Classifier ClassifierConfig
	Workflow   WorkflowConfig
	Worker     WorkerConfig
	Kafka      KafkaConfig
	Reclassify ReclassifyConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// ClassifierConfig points at the AI classification endpoint.
type ClassifierConfig struct {
	URL            string
	TimeoutSeconds int
}

// WorkflowConfig points at the business-process-automation service.
type WorkflowConfig struct {
	BaseURL         string
	DefinitionID    string
	TimeoutSeconds  int
	TokenURL        string
	ClientID        string
	ClientSecret    string
	ClaimTTLSeconds int
}

// WorkerConfig sizes the background task pool.
type WorkerConfig struct {
	Count           int
	QueueSize       int
	ShutdownSeconds int
}

// KafkaConfig enables ticket event export when both fields are set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ReclassifyConfig controls the out-of-band classification sweep.
type ReclassifyConfig struct {
	Schedule      string
	MinAgeSeconds int
	BatchSize     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "itsupport-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Classifier: ClassifierConfig{
			URL:            getEnv("CLASSIFIER_URL", "https://it-resource-production.up.railway.app/classify"),
			TimeoutSeconds: getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 15),
		},
		Workflow: WorkflowConfig{
			BaseURL:         os.Getenv("WORKFLOW_BASE_URL"),
			DefinitionID:    getEnv("WORKFLOW_DEFINITION_ID", "us10.ffcf7e90trial.hardwarerequest.hardwarePOWorkflow"),
			TimeoutSeconds:  getEnvAsInt("WORKFLOW_TIMEOUT_SECONDS", 15),
			TokenURL:        os.Getenv("WORKFLOW_TOKEN_URL"),
			ClientID:        os.Getenv("WORKFLOW_CLIENT_ID"),
			ClientSecret:    os.Getenv("WORKFLOW_CLIENT_SECRET"),
			ClaimTTLSeconds: getEnvAsInt("WORKFLOW_CLAIM_TTL_SECONDS", 300),
		},
		Worker: WorkerConfig{
			Count:           getEnvAsInt("WORKER_COUNT", 4),
			QueueSize:       getEnvAsInt("WORKER_QUEUE_SIZE", 256),
			ShutdownSeconds: getEnvAsInt("WORKER_SHUTDOWN_SECONDS", 30),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   os.Getenv("KAFKA_TOPIC"),
		},
		Reclassify: ReclassifyConfig{
			Schedule:      os.Getenv("RECLASSIFY_SCHEDULE"),
			MinAgeSeconds: getEnvAsInt("RECLASSIFY_MIN_AGE_SECONDS", 600),
			BatchSize:     getEnvAsInt("RECLASSIFY_BATCH_SIZE", 50),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// Timeout bounds a single classification call.
func (c ClassifierConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds)
}

// Timeout bounds a single workflow-start call.
func (w WorkflowConfig) Timeout() time.Duration {
	return seconds(w.TimeoutSeconds)
}

// ClaimTTL is how long a workflow-trigger claim is held.
func (w WorkflowConfig) ClaimTTL() time.Duration {
	return seconds(w.ClaimTTLSeconds)
}

// ShutdownTimeout bounds the queue drain on shutdown.
func (w WorkerConfig) ShutdownTimeout() time.Duration {
	return seconds(w.ShutdownSeconds)
}

// MinAge is how long a ticket stays unclassified before the sweep retries it.
func (r ReclassifyConfig) MinAge() time.Duration {
	return seconds(r.MinAgeSeconds)
}

// Enabled reports whether event export is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
