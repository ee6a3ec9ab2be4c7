package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации консоли.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig описывает подключение к Redis (сигналы о завершении аудитов).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AgentConfig — настройки запуска внешнего аудит-агента.
type AgentConfig struct {
	// Python-бинарь и скрипт агента
	PythonBin  string `mapstructure:"python_bin"`
	ScriptPath string `mapstructure:"script_path"`
	WorkDir    string `mapstructure:"work_dir"`

	// Жесткие лимиты одного запуска
	Timeout        time.Duration `mapstructure:"timeout"`          // Wall-clock, по истечении процесс убивается
	MaxOutputBytes int64         `mapstructure:"max_output_bytes"` // Суммарный stdout+stderr
	WaitDelay      time.Duration `mapstructure:"wait_delay"`       // Грейс на потомков, держащих pipe после kill

	// Аккаунт по умолчанию, если фронт его не прислал
	DefaultAccountID string `mapstructure:"default_account_id"`

	// Глобальный лимит на частоту запусков (не на ключ!)
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`

	// Circuit Breaker: после скольких подряд сбоев перестаем спавнить процессы
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	// Эндпоинт аудита синхронно ждет процесс до agent.timeout,
	// поэтому write_timeout обязан быть больше него
	v.SetDefault("server.write_timeout", 320*time.Second)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("agent.python_bin", "python3")
	v.SetDefault("agent.script_path", "main.py")
	// Лимиты одного запуска агента: 300 секунд и 2 MiB вывода
	v.SetDefault("agent.timeout", 300*time.Second)
	v.SetDefault("agent.max_output_bytes", 2048*1024)
	v.SetDefault("agent.wait_delay", 5*time.Second)
	v.SetDefault("agent.default_account_id", "aws-account-001")
	v.SetDefault("agent.rate_limit", 5.0)
	v.SetDefault("agent.rate_burst", 5)
	v.SetDefault("agent.cb_max_requests", 3)
	v.SetDefault("agent.cb_interval", 5*time.Second)
	v.SetDefault("agent.cb_timeout", 30*time.Second)
}
