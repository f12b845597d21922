package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config carries every runtime setting. All values come from the
// environment (optionally seeded from a .env file) with local-friendly
// defaults.
type Config struct {
	ServerPort      string        `mapstructure:"SERVER_PORT"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     int    `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`
	MigrationsPath   string `mapstructure:"MIGRATIONS_PATH"`

	MongoURI     string `mapstructure:"MONGO_URI"`
	MongoDB      string `mapstructure:"MONGO_DB"`
	RedisAddr    string `mapstructure:"REDIS_ADDR"`
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`

	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`
	AdminToken    string `mapstructure:"ADMIN_TOKEN"`
	MerchantName  string `mapstructure:"MERCHANT_NAME"`

	CartExpiry         time.Duration `mapstructure:"CART_EXPIRY"`
	ReservationTimeout time.Duration `mapstructure:"RESERVATION_TIMEOUT"`
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB)
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "storefront")
	v.SetDefault("POSTGRES_PASSWORD", "storefront")
	v.SetDefault("POSTGRES_DB", "storefront")
	v.SetDefault("MIGRATIONS_PATH", "migrations")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "storefront")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("WEBHOOK_SECRET", "dev-webhook-secret")
	v.SetDefault("ADMIN_TOKEN", "dev-admin-token")
	v.SetDefault("MERCHANT_NAME", "Noma Card House")
	v.SetDefault("CART_EXPIRY", 30*24*time.Hour)
	v.SetDefault("RESERVATION_TIMEOUT", 30*time.Minute)

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// .env is optional; the environment alone is enough.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
