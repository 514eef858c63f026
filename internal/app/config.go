package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Gateway modes.
const (
	GatewaySandbox = "sandbox"
	GatewayHTTP    = "http"
)

// Config holds the complete application configuration, loadable from
// environment variables (ACADEMY_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (ACADEMY_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (ACADEMY_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Kafka        KafkaConfig
	Gateway      GatewayConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// KafkaConfig controls OrderCreated notifications. With no brokers the
// notifications are dropped.
type KafkaConfig struct {
	Brokers      []string      `usage:"Kafka bootstrap brokers"`
	Topic        string        `default:"order-events" usage:"Topic for order events"`
	QueueSize    int           `default:"1024" usage:"Pending events kept in memory" flag:"kafka-queue-size"`
	WriteTimeout time.Duration `default:"5s" usage:"Timeout of a single publish" flag:"kafka-write-timeout"`
}

// GatewayConfig selects the payment gateway.
type GatewayConfig struct {
	Mode    string        `default:"sandbox" usage:"Payment gateway: sandbox or http"`
	URL     string        `usage:"Charge endpoint of the http gateway"`
	Timeout time.Duration `default:"10s" usage:"Timeout of a single charge"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ACADEMY",
		Files:     []string{"config.yaml", "/etc/academy/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set ACADEMY_DATABASE_URL or DATABASE_URL")
	}
	switch c.Gateway.Mode {
	case GatewaySandbox:
	case GatewayHTTP:
		if c.Gateway.URL == "" {
			return errors.New("gateway URL is required in http mode")
		}
	default:
		return errors.Errorf("unknown gateway mode %q", c.Gateway.Mode)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the ACADEMY_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
