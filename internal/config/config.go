package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env       string `env:"ENV" env-default:"local"`
	Storage   StorageConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Geocoding GeocodingConfig
	Minio     MinioConfig
	Ranking   RankingConfig
}

// StorageConfig — источник объектов недвижимости.
type StorageConfig struct {
	// Driver — "sqlite" (исходный датасет) или "postgres"
	Driver      string `env:"STORAGE_DRIVER" env-default:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" env-default:"data/properties.db"`
	MaxConns    int32  `env:"DATABASE_MAX_CONNS" env-default:"10"`
}

type HTTPConfig struct {
	Port           int           `env:"HTTP_PORT" env-default:"8000"`
	Timeout        time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
	AllowedOrigins []string      `env:"HTTP_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

// RedisConfig — хранилище сессий и кэш расстояний.
type RedisConfig struct {
	Enabled     bool          `env:"REDIS_ENABLE" env-default:"false"`
	Addr        string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB" env-default:"0"`
	Prefix      string        `env:"REDIS_PREFIX" env-default:"sumai"`
	SessionTTL  time.Duration `env:"REDIS_SESSION_TTL" env-default:"24h"`
	DistanceTTL time.Duration `env:"REDIS_DISTANCE_TTL" env-default:"168h"`
}

// GeocodingConfig — внешний сервис расстояний (Distance Matrix API).
// При выключенном сервисе используется категориальная оценка.
type GeocodingConfig struct {
	Enabled       bool          `env:"GEOCODING_ENABLE" env-default:"false"`
	BaseURL       string        `env:"GEOCODING_BASE_URL" env-default:"https://maps.googleapis.com/maps/api"`
	APIKey        string        `env:"GEOCODING_API_KEY"`
	Timeout       time.Duration `env:"GEOCODING_TIMEOUT" env-default:"3s"`
	RatePerSecond float64       `env:"GEOCODING_RATE" env-default:"10"`
	Burst         int           `env:"GEOCODING_BURST" env-default:"5"`
	Language      string        `env:"GEOCODING_LANGUAGE" env-default:"ja"`
}

type MinioConfig struct {
	Enabled  bool   `env:"MINIO_ENABLE" env-default:"false"`
	Endpoint string `env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	Bucket   string `env:"MINIO_BUCKET" env-default:"reference-listings"`
	User     string `env:"MINIO_USER"`
	Password string `env:"MINIO_PASSWORD"`
	UseSSL   bool   `env:"MINIO_USE_SSL"`
}

// RankingConfig — параметры выдачи рекомендаций.
type RankingConfig struct {
	DefaultLimit int `env:"RANKING_DEFAULT_LIMIT" env-default:"3"`
	MaxLimit     int `env:"RANKING_MAX_LIMIT" env-default:"20"`
	// CandidatePool — сколько объектов запрашивать из базы перед ранжированием
	CandidatePool int `env:"RANKING_CANDIDATE_POOL" env-default:"100"`
}

// MustLoad читает конфигурацию из окружения (и .env, если он есть).
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic("cannot read config from environment: " + err.Error())
	}
	return cfg
}

// Load — как MustLoad, но возвращает ошибку.
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
