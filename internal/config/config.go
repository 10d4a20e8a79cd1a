package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Quiz content sources.
const (
	SourceEmbedded = "embedded"
	SourcePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Quiz     QuizConfig     `mapstructure:"quiz"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Results  ResultsConfig  `mapstructure:"results"`
	Locale   string         `mapstructure:"locale"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type PostgresConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type QuizConfig struct {
	ID            string        `mapstructure:"id"`
	Source        string        `mapstructure:"source"`
	TTL           time.Duration `mapstructure:"ttl"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
}

// AuthConfig holds the Supabase project's JWT secret used to verify access tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type ResultsConfig struct {
	TopLimit    int           `mapstructure:"top_limit"`
	RecentLimit int           `mapstructure:"recent_limit"`
	AllLimit    int           `mapstructure:"all_limit"`
	StatsTTL    time.Duration `mapstructure:"stats_ttl"`
}

// Load reads YAML config from path, overlaid with environment variables.
// A missing file is not an error.
func Load(path string) (Config, error) {
	vip := viper.New()
	setDefaults(vip)

	_ = vip.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = vip.BindEnv("postgres.url", "DATABASE_URL")
	_ = vip.BindEnv("redis.addr", "REDIS_ADDR")
	_ = vip.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = vip.BindEnv("redis.db", "REDIS_DB")
	_ = vip.BindEnv("auth.jwt_secret", "SUPABASE_JWT_SECRET")
	_ = vip.BindEnv("auth.issuer", "SUPABASE_JWT_ISSUER")
	_ = vip.BindEnv("quiz.source", "QUIZ_SOURCE")
	_ = vip.BindEnv("locale", "QUIZ_LOCALE")

	if path != "" {
		vip.SetConfigFile(path)
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			log.Printf("config file %s not found, using environment and defaults", path)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15*time.Second)
	vip.SetDefault("server.write_timeout", 15*time.Second)
	vip.SetDefault("server.cors_origins", []string{"*"})
	vip.SetDefault("postgres.timeout", 5*time.Second)
	vip.SetDefault("redis.ttl", 30*time.Minute)
	vip.SetDefault("quiz.id", "liver-health")
	vip.SetDefault("quiz.source", SourceEmbedded)
	vip.SetDefault("quiz.ttl", 10*time.Minute)
	vip.SetDefault("quiz.session_ttl", 30*time.Minute)
	vip.SetDefault("quiz.submit_timeout", 10*time.Second)
	vip.SetDefault("results.top_limit", 15)
	vip.SetDefault("results.recent_limit", 20)
	vip.SetDefault("results.all_limit", 50)
	vip.SetDefault("results.stats_ttl", 30*time.Second)
	vip.SetDefault("locale", "es")
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.Quiz.Source {
	case SourceEmbedded:
	case SourcePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("quiz.source=postgres requires postgres.url (DATABASE_URL)")
		}
	default:
		return fmt.Errorf("unknown quiz.source %q (want %s or %s)", c.Quiz.Source, SourceEmbedded, SourcePostgres)
	}
	if c.Results.TopLimit < 0 || c.Results.RecentLimit < 0 || c.Results.AllLimit < 0 {
		return fmt.Errorf("results limits must not be negative")
	}
	return nil
}

// Duration returns d, or fallback when d is not positive.
func Duration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
