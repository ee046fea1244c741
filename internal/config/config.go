// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек всех сервисов:
// API, воркера транскрибации и демона обслуживания квот.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RabbitConnectionString  string `yaml:"rabbit_connection_string" env:"RABBIT_CONNECTION_STRING"`
	DefaultPlanCode         string `yaml:"default_plan_code" env-default:"FREE"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Gateway                 `yaml:"gateway"`
	BlobStore               `yaml:"blob_store"`
	Worker                  `yaml:"worker"`
	Maintenance             `yaml:"maintenance"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Gateway структура для настройки клиента шлюза транскрибации
// и проверки подписи входящих колбэков.
type Gateway struct {
	GatewayBaseURL  string        `yaml:"gateway_base_url" env:"GATEWAY_BASE_URL"`
	GatewayTimeout  time.Duration `yaml:"gateway_timeout" env-default:"10m"`
	CallbackBaseURL string        `yaml:"callback_base_url" env:"GATEWAY_CALLBACK_BASE_URL"`
	CallbackSecret  string        `yaml:"callback_secret" env:"GATEWAY_CALLBACK_SECRET"`
	ServiceTokenTTL time.Duration `yaml:"service_token_ttl" env-default:"1h"`
}

// BlobStore структура для настройки клиента хранилища аудио.
type BlobStore struct {
	BlobBaseURL     string        `yaml:"blob_base_url" env:"BLOB_BASE_URL"`
	BlobAccessKey   string        `yaml:"blob_access_key" env:"BLOB_ACCESS_KEY"`
	BlobSecretKey   string        `yaml:"blob_secret_key" env:"BLOB_SECRET_KEY"`
	UploadExpiry    time.Duration `yaml:"upload_expiry" env-default:"10m"`
	DownloadExpiry  time.Duration `yaml:"download_expiry" env-default:"24h"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env-default:"104857600"`
	BlobHTTPTimeout time.Duration `yaml:"blob_http_timeout" env-default:"10s"`
}

// Worker структура для настройки пула воркеров транскрибации.
type Worker struct {
	MaxInflightJobs int           `yaml:"max_inflight_jobs" env-default:"10"`
	MaxAttempts     int           `yaml:"max_attempts" env-default:"2"`
	RetryBackoff    time.Duration `yaml:"retry_backoff" env-default:"30s"`
	ConnectRetries  int           `yaml:"connect_retries" env-default:"10"`
	ConnectDelay    time.Duration `yaml:"connect_delay" env-default:"3s"`
}

// Maintenance структура для настройки переката циклов и свипа зависших записей.
type Maintenance struct {
	SweepInterval    time.Duration `yaml:"sweep_interval" env-default:"1m"`
	JobTimeout       time.Duration `yaml:"job_timeout" env-default:"10m"`
	RolloverInterval time.Duration `yaml:"rollover_interval" env-default:"1h"`
	RolloverBatch    int           `yaml:"rollover_batch" env-default:"100"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH.
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
