// Package config предоставляет структуры и функцию загрузки конфигурации сервиса.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — общая структура настроек auth-gate.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	NotifyChannel           string `yaml:"notify_channel" env-default:"telegram"` // telegram | amqp
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitConnection        `yaml:"rabbit_connection"`
	Telegram                `yaml:"telegram"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Approval                `yaml:"approval"`
	Renewal                 `yaml:"renewal"`
}

// HTTPServer — настройки HTTP-сервера.
type HTTPServer struct {
	AddressHTTP   string        `yaml:"addresshttp" env-default:"localhost:8080"`
	TimeoutHTTP   time.Duration `yaml:"timeouthttp" env-default:"4s"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" env-default:"60s"`
	WebhookSecret string        `yaml:"webhook_secret"`
}

// RedisConnection — настройки подключения к Redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitConnection — настройки подключения к RabbitMQ.
type RabbitConnection struct {
	AddressRabbit   string        `yaml:"addressrabbit"`
	ConnectRetries  int           `yaml:"connect_retries" env-default:"5"`
	ConnectDelay    time.Duration `yaml:"connect_delay" env-default:"3s"`
	RequestsQueue   string        `yaml:"requests_queue" env-default:"approvals.requests"`
	DecisionsQueue  string        `yaml:"decisions_queue" env-default:"approvals.decisions"`
	RemindersQueue  string        `yaml:"reminders_queue" env-default:"approvals.reminders"`
	ApprovalsExName string        `yaml:"approvals_exchange" env-default:"approvals"`
}

// Telegram — настройки канала уведомлений оператора через Telegram Bot API.
type Telegram struct {
	BotToken     string        `yaml:"bot_token"`
	ChatID       int64         `yaml:"chat_id"`
	PollInterval time.Duration `yaml:"poll_interval" env-default:"2s"`
	PollTimeout  time.Duration `yaml:"poll_timeout" env-default:"25s"`
}

// JWTToken — настройки выпуска сессионных токенов.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"12h"`
}

// Approval — тайм-ауты ожидания решения оператора по видам заявок.
type Approval struct {
	NewAccountTimeout time.Duration `yaml:"new_account_timeout" env-default:"300s"`
	SuperuserTimeout  time.Duration `yaml:"superuser_timeout" env-default:"30s"`
	RenewalTimeout    time.Duration `yaml:"renewal_timeout" env-default:"300s"`
}

// Renewal — политика продления подписки.
type Renewal struct {
	PromptThresholdDays int           `yaml:"prompt_threshold_days" env-default:"5"`
	DefaultRenewalDays  int           `yaml:"default_renewal_days" env-default:"30"`
	DiscountPercent     int           `yaml:"discount_percent" env-default:"10"`
	ScanInterval        time.Duration `yaml:"scan_interval" env-default:"12h"`
}

// MustLoad загружает конфигурацию из файла, указанного в CONFIG_PATH.
// Останавливает процесс при любой ошибке загрузки.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
