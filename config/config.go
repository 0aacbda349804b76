package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	Gateway GatewayConfig
	Kafka   KafkaConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
	BaseURL string // public URL, used for checkout redirect targets
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GatewayConfig holds the hosted-checkout payment provider credentials. The
// webhook secret signs callback bodies; requests failing verification are
// rejected before any processing.
type GatewayConfig struct {
	APIKey        string
	WebhookSecret string
	BaseURL       string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads .env (if present) and assembles the typed config passed into
// main. Clients built from it are constructed once per process and injected
// into handlers.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "3306"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
			BaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "cardapio"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Gateway: GatewayConfig{
			APIKey:        os.Getenv("GATEWAY_API_KEY"),
			WebhookSecret: os.Getenv("GATEWAY_WEBHOOK_SECRET"),
			BaseURL:       getEnv("GATEWAY_BASE_URL", "https://api.pay.example.com"),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   getEnv("KAFKA_WEBHOOK_TOPIC", "payment-webhook-events"),
		},
	}, nil
}

// InitDB opens the MySQL connection from the loaded config.
func InitDB(cfg DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
