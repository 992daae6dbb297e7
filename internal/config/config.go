package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		DueReminders string `mapstructure:"due_reminders"`
	} `mapstructure:"topics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecommendationConfig holds defaults for request parameters plus internal
// caps that are not request-tunable.
type RecommendationConfig struct {
	Lambda             float64 `mapstructure:"lambda"`
	BehaviorWeight     float64 `mapstructure:"behavior_weight"`
	RestartProbability float64 `mapstructure:"restart_probability"`
	MaxIterations      int     `mapstructure:"max_iterations"`
	GraphWeight        float64 `mapstructure:"graph_weight"`
	SemanticWeight     float64 `mapstructure:"semantic_weight"`

	TopN       int `mapstructure:"top_n"`
	AITopN     int `mapstructure:"ai_top_n"`
	ProfileK   int `mapstructure:"profile_k"`
	AIProfileK int `mapstructure:"ai_profile_k"`

	// Two-hop graph fan-out caps. These bound the ephemeral subgraph per
	// request; the concrete values are a deployment decision.
	MaxBooksPerUser     int `mapstructure:"max_books_per_user"`
	MaxBorrowersPerBook int `mapstructure:"max_borrowers_per_book"`

	CandidateMultiplier int `mapstructure:"candidate_multiplier"`
	TrendingSampleSize  int `mapstructure:"trending_sample_size"`

	EmbeddingDimensions int           `mapstructure:"embedding_dimensions"`
	ScanRowCap          int           `mapstructure:"scan_row_cap"`
	EmbeddingCacheTTL   time.Duration `mapstructure:"embedding_cache_ttl"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topics.due_reminders", "due-reminders")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Recommendation defaults
	viper.SetDefault("recommendation.lambda", 0.05)
	viper.SetDefault("recommendation.behavior_weight", 1.0)
	viper.SetDefault("recommendation.restart_probability", 0.15)
	viper.SetDefault("recommendation.max_iterations", 30)
	viper.SetDefault("recommendation.graph_weight", 0.6)
	viper.SetDefault("recommendation.semantic_weight", 0.4)
	viper.SetDefault("recommendation.top_n", 10)
	viper.SetDefault("recommendation.ai_top_n", 20)
	viper.SetDefault("recommendation.profile_k", 10)
	viper.SetDefault("recommendation.ai_profile_k", 5)
	viper.SetDefault("recommendation.max_books_per_user", 50)
	viper.SetDefault("recommendation.max_borrowers_per_book", 30)
	viper.SetDefault("recommendation.candidate_multiplier", 5)
	viper.SetDefault("recommendation.trending_sample_size", 20)
	viper.SetDefault("recommendation.embedding_dimensions", 384)
	viper.SetDefault("recommendation.scan_row_cap", 1000)
	viper.SetDefault("recommendation.embedding_cache_ttl", "24h")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
