package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv                string
	Port                  string
	BackendBaseURL        string
	RequestTimeout        time.Duration
	BucketEndpointURL     string
	BucketAccessKeyID     string
	BucketSecretAccessKey string
	InstanceID            string
	HTTPReadTimeout       time.Duration
	HTTPWriteTimeout      time.Duration
	HTTPIdleTimeout       time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	requestTimeout := time.Second * time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 600))

	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		Port:                  getEnv("PORT", "8080"),
		BackendBaseURL:        getEnv("BACKEND_BASE_URL", "http://127.0.0.1:3000"),
		RequestTimeout:        requestTimeout,
		BucketEndpointURL:     os.Getenv("BUCKET_ENDPOINT_URL"),
		BucketAccessKeyID:     os.Getenv("BUCKET_ACCESS_KEY_ID"),
		BucketSecretAccessKey: os.Getenv("BUCKET_SECRET_ACCESS_KEY"),
		InstanceID:            getEnv("INSTANCE_ID", hostname()),
		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		// The write timeout must outlive the backend dispatch budget or the
		// connection drops mid-generation.
		HTTPWriteTimeout: requestTimeout + time.Second*time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_MARGIN_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
