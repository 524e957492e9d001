package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Exam      ExamConfig      `mapstructure:"exam"`
	Explain   ExplainConfig   `mapstructure:"explain"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// TrustedProxies are CIDRs or addresses allowed to set X-Forwarded-For.
	// Empty means client addresses come from the socket only.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN renders the lib/pq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL renders the postgres:// form golang-migrate expects.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// TTL is the lifetime of issued tokens.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpireHours) * time.Hour
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ExamConfig struct {
	FreeTestLimit      int                 `mapstructure:"free_test_limit"`
	SingleSubjectCount int                 `mapstructure:"single_subject_count"`
	StreamSubjectCount int                 `mapstructure:"stream_subject_count"`
	PracticeCount      int                 `mapstructure:"practice_count"`
	Streams            map[string][]string `mapstructure:"streams"`
}

type ExplainConfig struct {
	Provider string `mapstructure:"provider"` // anthropic | cli | mock | ""
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	CLIPath  string `mapstructure:"cli_path"`
	UseMock  bool   `mapstructure:"use_mock"`
	UseCLI   bool   `mapstructure:"use_cli"`
}

// ResolvedProvider applies the legacy toggles when no provider is named.
// An API key alone selects the Anthropic API.
func (e ExplainConfig) ResolvedProvider() string {
	switch {
	case e.Provider != "":
		return strings.ToLower(e.Provider)
	case e.UseCLI:
		return "cli"
	case e.UseMock:
		return "mock"
	case e.APIKey != "":
		return "anthropic"
	}
	return ""
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ServiceName       string `mapstructure:"service_name"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads .env, then config.yaml (optional), then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "pucet_user")
	v.SetDefault("database.password", "pucet_password")
	v.SetDefault("database.name", "pucet_prep")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.secret", "pucet-prep-dev-signing-key")
	v.SetDefault("jwt.expire_hours", 72)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window_minutes", 15)

	v.SetDefault("exam.free_test_limit", 5)
	v.SetDefault("exam.single_subject_count", 60)
	v.SetDefault("exam.stream_subject_count", 20)
	v.SetDefault("exam.practice_count", 30)
	v.SetDefault("exam.streams", map[string][]string{
		"PCB": {"physics-11th-12th", "chemistry", "biology"},
		"PCM": {"physics-11th-12th", "chemistry", "mathematics"},
	})

	v.SetDefault("explain.model", "claude-sonnet-4-5")
	v.SetDefault("explain.cli_path", "claude")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "pucet-prep")
	v.SetDefault("tracing.collector_endpoint", "http://localhost:14268/api/traces")

	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

// bindLegacyEnv keeps the flat variable names deployments already use.
func bindLegacyEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.trusted_proxies", "TRUSTED_PROXIES")

	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")

	v.BindEnv("jwt.secret", "JWT_SECRET")

	v.BindEnv("explain.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("explain.model", "ANTHROPIC_MODEL")
	v.BindEnv("explain.cli_path", "CLAUDE_CLI_PATH")
	v.BindEnv("explain.use_mock", "MOCK_EXPLAINER")
	v.BindEnv("explain.use_cli", "USE_CLI_EXPLAINER")

	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")
}

func (c *Config) validate() error {
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	if c.Exam.FreeTestLimit < 0 {
		return fmt.Errorf("exam.free_test_limit must be >= 0, got %d", c.Exam.FreeTestLimit)
	}
	if c.Exam.SingleSubjectCount <= 0 || c.Exam.StreamSubjectCount <= 0 || c.Exam.PracticeCount <= 0 {
		return fmt.Errorf("exam question counts must be positive")
	}
	for name, slugs := range c.Exam.Streams {
		if len(slugs) == 0 {
			return fmt.Errorf("stream %q has no subjects", name)
		}
	}
	switch c.Explain.ResolvedProvider() {
	case "", "anthropic", "cli", "mock":
	default:
		return fmt.Errorf("unknown explain.provider %q", c.Explain.Provider)
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.WindowMinutes <= 0 {
		return fmt.Errorf("rate_limit values must be positive")
	}
	return nil
}
