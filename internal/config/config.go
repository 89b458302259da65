package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rohitsengarppv-gif/multimallpro/internal/pricing"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort       string
	GRPCHealthPort string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers     []string
	OrderEventsTopic string

	JWTSecret string
	LogLevel  string

	RequestTimeout      time.Duration
	ShutdownTimeout     time.Duration
	FinalizeMaxAttempts int
	OwnerLockTTL        time.Duration
	CouponCacheTTL      time.Duration

	Currency string
	Pricing  pricing.Config
}

// Load reads an optional .env file and then the process environment.
// Malformed values are returned as errors so the process fails at startup.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		GRPCHealthPort:   getEnv("GRPC_HEALTH_PORT", "50060"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDBName:      getEnv("MONGO_DB_NAME", "multimall"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Currency:         getEnv("CURRENCY", "INR"),
	}

	var err error
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.OwnerLockTTL, err = durationEnv("OWNER_LOCK_TTL", "10s"); err != nil {
		return nil, err
	}
	if cfg.CouponCacheTTL, err = durationEnv("COUPON_CACHE_TTL", "1m"); err != nil {
		return nil, err
	}
	if cfg.FinalizeMaxAttempts, err = intEnv("FINALIZE_MAX_ATTEMPTS", "3"); err != nil {
		return nil, err
	}
	if cfg.Pricing.FreeShippingThreshold, err = decimalEnv("FREE_SHIPPING_THRESHOLD", "1000"); err != nil {
		return nil, err
	}
	if cfg.Pricing.FlatShippingFee, err = decimalEnv("FLAT_SHIPPING_FEE", "50"); err != nil {
		return nil, err
	}
	if cfg.Pricing.TaxRate, err = decimalEnv("TAX_RATE", "0.18"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.FinalizeMaxAttempts < 1 {
		return fmt.Errorf("FINALIZE_MAX_ATTEMPTS must be at least 1, got %d", c.FinalizeMaxAttempts)
	}
	if c.Pricing.FreeShippingThreshold.IsNegative() || c.Pricing.FlatShippingFee.IsNegative() {
		return fmt.Errorf("shipping amounts must not be negative")
	}
	if c.Pricing.TaxRate.IsNegative() || c.Pricing.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("TAX_RATE must be in [0, 1), got %s", c.Pricing.TaxRate)
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must list at least one broker")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key, def string) (int, error) {
	n, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func decimalEnv(key, def string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, def))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
