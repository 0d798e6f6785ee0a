package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Logger      LoggerConfig
	Tracing     TracingConfig
	Certificate CertificateConfig
	Progress    ProgressConfig
	RateLimit   RateLimitConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	Mode         string // debug | release | test
	ReadTimeout  int
	WriteTimeout int
	// AllowedOrigins для CORS; пусто - разрешены все
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	// Для 'single', если не пуст, используется первый адрес из списка.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	// Используется, если Mode="single" и Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно). По умолчанию 0 (без ретраев).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах). По умолчанию 8ms.
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах). По умолчанию 512ms.
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`

	// KeyPrefix добавляется ко всем ключам кеша
	KeyPrefix string `mapstructure:"key_prefix"`
}

// JWTConfig содержит настройки JWT
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expirationHrs"`
}

// LoggerConfig содержит настройки ротации файла логов
type LoggerConfig struct {
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // дни
	Compress   bool   `mapstructure:"compress"`
}

// TracingConfig содержит настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Version     string  `mapstructure:"version"`
	Environment string  `mapstructure:"environment"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// CertificateConfig содержит настройки выдачи сертификатов
type CertificateConfig struct {
	VerificationBaseURL string `mapstructure:"verification_base_url"`
	SignedBy            string `mapstructure:"signed_by"`
	MaxCodeRetries      int    `mapstructure:"max_code_retries"`
	// Контакты для ручной проверки (трек Fon)
	ContactWhatsApp string   `mapstructure:"contact_whatsapp"`
	Organization    string   `mapstructure:"organization"`
	RequiredInfo    []string `mapstructure:"required_info"`
	// Лимит публичной проверки сертификатов на один IP
	VerifyRatePerMinute int `mapstructure:"verify_rate_per_minute"`
}

// ProgressConfig содержит настройки представлений прогресса
type ProgressConfig struct {
	LeaderboardSize   int           `mapstructure:"leaderboard_size"`
	StatsCron         string        `mapstructure:"stats_cron"`
	StatsCacheTTL     time.Duration `mapstructure:"stats_cache_ttl"`
	ModuleCacheTTL    time.Duration `mapstructure:"module_cache_ttl"`
	RecentActivities  int           `mapstructure:"recent_activities"`
	ActivityListLimit int           `mapstructure:"activity_list_limit"`
}

// RateLimitConfig содержит ограничения частоты запросов
type RateLimitConfig struct {
	QuizSubmitPerMinute int `mapstructure:"quiz_submit_per_minute"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения для golang-migrate
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.mode", "debug")
	vip.SetDefault("server.readtimeout", 10)
	vip.SetDefault("server.writetimeout", 10)

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")
	vip.SetDefault("redis.key_prefix", "parajuriste:")

	vip.SetDefault("jwt.expirationHrs", 72)

	vip.SetDefault("logger.file", "logs/app.log")
	vip.SetDefault("logger.max_size", 100)
	vip.SetDefault("logger.max_backups", 5)
	vip.SetDefault("logger.max_age", 30)
	vip.SetDefault("logger.compress", true)

	vip.SetDefault("tracing.service_name", "parajuriste-api")
	vip.SetDefault("tracing.sample_ratio", 0.1)

	vip.SetDefault("certificate.verification_base_url", "https://yourapp.com")
	vip.SetDefault("certificate.signed_by", "HAI (Human Rights and Advocacy Initiative)")
	vip.SetDefault("certificate.max_code_retries", 10)
	vip.SetDefault("certificate.contact_whatsapp", "+229 01 57 57 51 67")
	vip.SetDefault("certificate.organization", "HAI (Human Rights and Advocacy Initiative)")
	vip.SetDefault("certificate.required_info", []string{
		"Nom complet",
		"Lieu de résidence",
		"Capture d'écran de progression 100%",
	})
	vip.SetDefault("certificate.verify_rate_per_minute", 30)

	vip.SetDefault("progress.leaderboard_size", 50)
	vip.SetDefault("progress.stats_cron", "@every 10m")
	vip.SetDefault("progress.stats_cache_ttl", 15*time.Minute)
	vip.SetDefault("progress.module_cache_ttl", 10*time.Minute)
	vip.SetDefault("progress.recent_activities", 10)
	vip.SetDefault("progress.activity_list_limit", 50)

	vip.SetDefault("ratelimit.quiz_submit_per_minute", 10)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	// .env не обязателен
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Предупреждение: не удалось прочитать .env: %v", err)
	}

	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	setDefaults(vip)

	// 2. Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expirationHrs", "JWT_EXPIRATIONHRS")

	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.mode", "GIN_MODE")

	vip.BindEnv("tracing.enabled", "OTEL_ENABLED")
	vip.BindEnv("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	vip.BindEnv("tracing.insecure", "OTEL_EXPORTER_OTLP_INSECURE")
	vip.BindEnv("tracing.sample_ratio", "OTEL_SAMPLER_RATIO")
	vip.BindEnv("tracing.environment", "APP_ENV")

	vip.BindEnv("certificate.verification_base_url", "CERTIFICATE_VERIFICATION_BASE_URL")
	vip.BindEnv("certificate.signed_by", "CERTIFICATE_SIGNED_BY")

	// 3. Файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if c.Server.Mode == "release" && c.Database.Password == "" {
		return fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
	}
	if c.Certificate.MaxCodeRetries <= 0 {
		return fmt.Errorf("certificate.max_code_retries must be positive")
	}
	return nil
}
