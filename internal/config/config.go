package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	API       APIConfig
	Uploads   UploadsConfig
	Jobs      JobsConfig
	Socket    SocketConfig
	DevServer DevServerConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Environment   string `validate:"oneof=development production test"`
	LogFilePath   string `validate:"required"`
	SocketLogPath string `validate:"required"`
}

type APIConfig struct {
	BaseURL     string `validate:"required,url"`
	APIKey      string
	Token       string
	AssistantID string
	Timeout     time.Duration `validate:"gt=0"`
}

type UploadsConfig struct {
	MaxConcurrent int `validate:"min=1,max=20"`
}

type JobsConfig struct {
	PollInterval time.Duration `validate:"gt=0"`
	RetryDelay   time.Duration `validate:"gt=0"`
	MaxFailures  int           `validate:"min=1"`
}

type SocketConfig struct {
	HeartbeatInterval time.Duration `validate:"gt=0"`
	HeartbeatTimeout  time.Duration `validate:"gt=0"`
}

type DevServerConfig struct {
	Port               string `validate:"required,numeric"`
	APIKey             string
	JWTSecret          string
	ChunkDelay         time.Duration `validate:"gte=0"`
	CorsAllowedOrigins string
	// JobDuration is how long a simulated info-blob job takes to finish.
	JobDuration time.Duration `validate:"gt=0"`
	// NatsURL, when set, relays socket channel messages between instances.
	NatsURL string `validate:"omitempty,url"`
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string `validate:"required_if=Enabled true"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment:   getEnv("GO_ENV", "development"),
			LogFilePath:   getEnv("LOG_FILE_PATH", "assistant.log"),
			SocketLogPath: getEnv("SOCKET_LOG_FILE_PATH", "socket.log"),
		},
		API: APIConfig{
			BaseURL:     getEnv("INTRIC_BASE_URL", "http://localhost:8123"),
			APIKey:      getEnv("INTRIC_API_KEY", ""),
			Token:       getEnv("INTRIC_TOKEN", ""),
			AssistantID: getEnv("INTRIC_ASSISTANT_ID", ""),
			Timeout:     getEnvAsDuration("INTRIC_TIMEOUT", 60*time.Second),
		},
		Uploads: UploadsConfig{
			MaxConcurrent: getEnvAsInt("MAX_CONCURRENT_UPLOADS", 5),
		},
		Jobs: JobsConfig{
			PollInterval: getEnvAsDuration("JOBS_POLL_INTERVAL", 30*time.Second),
			RetryDelay:   getEnvAsDuration("JOBS_RETRY_DELAY", 20*time.Second),
			MaxFailures:  getEnvAsInt("JOBS_MAX_FAILURES", 5),
		},
		Socket: SocketConfig{
			HeartbeatInterval: getEnvAsDuration("SOCKET_HEARTBEAT_INTERVAL", 30*time.Second),
			HeartbeatTimeout:  getEnvAsDuration("SOCKET_HEARTBEAT_TIMEOUT", 20*time.Second),
		},
		DevServer: DevServerConfig{
			Port:               getEnv("DEVSERVER_PORT", "8123"),
			APIKey:             getEnv("DEVSERVER_API_KEY", "dev-key"),
			JWTSecret:          getEnv("DEVSERVER_JWT_SECRET", "dev-secret"),
			ChunkDelay:         getEnvAsDuration("DEVSERVER_CHUNK_DELAY", 40*time.Millisecond),
			JobDuration:        getEnvAsDuration("DEVSERVER_JOB_DURATION", 3*time.Second),
			CorsAllowedOrigins: getEnv("DEVSERVER_CORS_ORIGINS", "*"),
			NatsURL:            getEnv("DEVSERVER_NATS_URL", ""),
		},
		Tracing: TracingConfig{
			Enabled:  getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

var validate = validator.New()

// Validate checks every section and reports the offending fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]error, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %w", errors.Join(msgs...))
		}
		return err
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// TokenExpiry reads the exp claim of the configured bearer token. The
// signature is not checked; the server does that. ok is false when there is
// no token or it carries no expiry.
func (c *Config) TokenExpiry() (exp time.Time, ok bool, err error) {
	if c.API.Token == "" {
		return time.Time{}, false, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.API.Token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("parse token: %w", err)
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read token expiry: %w", err)
	}
	if expiry == nil {
		return time.Time{}, false, nil
	}
	return expiry.Time, true, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
