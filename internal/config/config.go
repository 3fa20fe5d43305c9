// config предоставляет структуру конфигурации auth-сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	GRPC     GRPCConfig    `yaml:"grpc"`
	Auth     AuthConfig    `yaml:"auth"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	Janitor  JanitorConfig `yaml:"janitor"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// JanitorConfig — периодическая очистка просроченных сессий.
// Period == 0 отключает фоновую очистку.
type JanitorConfig struct {
	Period time.Duration `yaml:"period" env:"JANITOR_PERIOD" env-default:"30m"`
}

// HTTPConfig — сетевые настройки HTTP-сервера (REST API, /metrics, health).
// TrustProxy включать только за доверенным прокси: иначе клиент сам
// выбирает IP через X-Forwarded-For.
type HTTPConfig struct {
	Host       string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port       string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	TrustProxy bool   `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY" env-default:"false"`
}

// GRPCConfig описывает сетевые настройки gRPC-сервера (health).
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

// Addr возвращает адрес в формате host:port.
func (g HTTPConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
// TTL access-токена задаётся в минутах (по умолчанию 7 дней);
// TTL refresh-токена фиксирован и живёт в пакете token.
type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	JWTAlgorithm     string `yaml:"jwt_algorithm" env:"JWT_ALGORITHM" env-default:"HS256"`
	JWTExpireMinutes int    `yaml:"jwt_expire_minutes" env:"JWT_EXPIRE_MINUTES" env-default:"10080"`
	BcryptCost       int    `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// AccessTokenTTL возвращает время жизни access-токена.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.JWTExpireMinutes) * time.Minute
}

// DBConfig — настройки подключения к базе пользователей.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
}

// RedisConfig — настройки хранилища сессий.
// Таймауты применяются к каждому обращению к Redis.
type RedisConfig struct {
	RedisURL     string        `yaml:"redis_url" env:"REDIS_URL" env-required:"true"`
	Prefix       string        `yaml:"prefix" env:"REDIS_PREFIX" env-default:"auth:"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"3s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"REDIS_WRITE_TIMEOUT" env-default:"3s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	if path != "" {
		return readFile(path)
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readFile читает YAML и накладывает ENV.
func readFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %q stat failed: %w", path, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to overlay env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Auth.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("invalid config: unsupported jwt_algorithm %q", c.Auth.JWTAlgorithm)
	}

	if c.Auth.JWTExpireMinutes <= 0 {
		return fmt.Errorf("invalid config: jwt_expire_minutes must be positive")
	}

	if c.Janitor.Period < 0 {
		return fmt.Errorf("invalid config: janitor period must not be negative")
	}

	return nil
}
