// Package config holds the gapfinder service configuration.
package config

import (
	"errors"
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/config"
	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/profiling"
)

// Default configuration values.
const (
	defaultServiceName     = "gapfinder"
	defaultServiceVersion  = "1.0.0"
	defaultServicePort     = 8095
	defaultConcurrency     = 4
	defaultDBDriver        = "postgres"
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBUser          = "postgres"
	defaultDBName          = "gapfinder"
	defaultDBSSLMode       = "disable"
	defaultSQLitePath      = "gapfinder.db"
	defaultRedisAddress    = "localhost:6379"
	defaultCacheTTL        = 24 * time.Hour
	defaultOracleProvider  = "ollama"
	defaultOracleTimeout   = 10 * time.Second
	defaultOracleRPS       = 5
	defaultOracleAttempts  = 2
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
	defaultTemperature     = 0.1
	defaultPipeline        = "comprehensive"
	defaultFuzzyThreshold  = 0.8
	defaultCLILimit        = 10
	defaultAPILimit        = 50
	defaultESURLField      = "url"
	defaultESURL           = "http://localhost:9200"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
)

// Config holds all configuration for the gapfinder service.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Matching      MatchingConfig      `yaml:"matching"`
	Sources       SourcesConfig       `yaml:"sources"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Logging       LoggingConfig       `yaml:"logging"`
	Auth          AuthConfig          `yaml:"auth"`
	Profiling     profiling.Config    `yaml:"profiling"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Port        int    `env:"GAPFINDER_PORT"        yaml:"port"`
	Debug       bool   `env:"APP_DEBUG"             yaml:"debug"`
	Concurrency int    `env:"GAPFINDER_CONCURRENCY" yaml:"concurrency"`
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string `env:"CORS_ORIGINS" yaml:"allowed_origins"`
}

// DatabaseConfig holds database configuration. Persistence is off unless Enabled.
type DatabaseConfig struct {
	Enabled  bool   `env:"DATABASE_ENABLED"  yaml:"enabled"`
	Driver   string `env:"DATABASE_DRIVER"   yaml:"driver"`
	Host     string `env:"POSTGRES_HOST"     yaml:"host"`
	Port     int    `env:"POSTGRES_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_USER"     yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode  string `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
	Path     string `env:"SQLITE_PATH"       yaml:"path"`
}

// RedisConfig holds Redis configuration for the oracle verdict cache.
type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED"  yaml:"enabled"`
	Address  string        `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string        `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// OracleConfig holds the language-model fallback settings.
type OracleConfig struct {
	Enabled           bool          `env:"ORACLE_ENABLED"  yaml:"enabled"`
	Provider          string        `env:"ORACLE_PROVIDER" yaml:"provider"`
	BaseURL           string        `env:"ORACLE_BASE_URL" yaml:"base_url"`
	Model             string        `env:"ORACLE_MODEL"    yaml:"model"`
	APIKey            string        `env:"ORACLE_API_KEY"  yaml:"api_key"`
	Timeout           time.Duration `yaml:"timeout"`
	Temperature       float64       `yaml:"temperature"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxAttempts       int           `yaml:"max_attempts"`
	BreakerFailures   int           `yaml:"breaker_failure_threshold"`
	BreakerTimeout    time.Duration `yaml:"breaker_timeout"`
}

// MatchingConfig holds the default pipeline.
type MatchingConfig struct {
	Pipeline       string  `env:"GAPFINDER_PIPELINE"        yaml:"pipeline"`
	FuzzyThreshold float64 `env:"GAPFINDER_FUZZY_THRESHOLD" yaml:"fuzzy_threshold"`
}

// SourcesConfig selects where known URLs come from.
type SourcesConfig struct {
	URLsFile    string `env:"GAPFINDER_URLS_FILE"   yaml:"urls_file"`
	SitemapFile string `env:"GAPFINDER_SITEMAP"     yaml:"sitemap_file"`
	Limit       int    `yaml:"limit"`
	APILimit    int    `yaml:"api_limit"`
	ESIndex     string `env:"GAPFINDER_ES_INDEX"    yaml:"elasticsearch_index"`
	ESURLField  string `yaml:"elasticsearch_url_field"`
}

// ElasticsearchConfig holds Elasticsearch configuration. Used only when Sources.ESIndex is set.
type ElasticsearchConfig struct {
	URL      string `env:"ELASTICSEARCH_URL"      yaml:"url"`
	Username string `env:"ELASTICSEARCH_USERNAME" yaml:"username"`
	Password string `env:"ELASTICSEARCH_PASSWORD" yaml:"password"`
	APIKey   string `env:"ELASTICSEARCH_API_KEY"  yaml:"api_key"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, SetDefaults)
}

// SetDefaults applies default values to the config.
func SetDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setRedisDefaults(&cfg.Redis)
	setOracleDefaults(&cfg.Oracle)
	setMatchingDefaults(&cfg.Matching)
	setSourcesDefaults(&cfg.Sources)
	if cfg.Elasticsearch.URL == "" {
		cfg.Elasticsearch.URL = defaultESURL
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaultLogFormat
	}
	cfg.Profiling.SetDefaults()
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
	if s.Concurrency == 0 {
		s.Concurrency = defaultConcurrency
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Driver == "" {
		d.Driver = defaultDBDriver
	}
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
	if d.Path == "" {
		d.Path = defaultSQLitePath
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
	if r.CacheTTL == 0 {
		r.CacheTTL = defaultCacheTTL
	}
}

func setOracleDefaults(o *OracleConfig) {
	if o.Provider == "" {
		o.Provider = defaultOracleProvider
	}
	if o.Timeout == 0 {
		o.Timeout = defaultOracleTimeout
	}
	if o.Temperature == 0 {
		o.Temperature = defaultTemperature
	}
	if o.RequestsPerSecond == 0 {
		o.RequestsPerSecond = defaultOracleRPS
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = defaultOracleAttempts
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = defaultBreakerFailures
	}
	if o.BreakerTimeout == 0 {
		o.BreakerTimeout = defaultBreakerTimeout
	}
}

func setMatchingDefaults(m *MatchingConfig) {
	if m.Pipeline == "" {
		m.Pipeline = defaultPipeline
	}
	if m.FuzzyThreshold == 0 {
		m.FuzzyThreshold = defaultFuzzyThreshold
	}
}

func setSourcesDefaults(s *SourcesConfig) {
	if s.Limit == 0 {
		s.Limit = defaultCLILimit
	}
	if s.APILimit == 0 {
		s.APILimit = defaultAPILimit
	}
	if s.ESURLField == "" {
		s.ESURLField = defaultESURLField
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	errs := []error{
		infraconfig.ValidatePort("service.port", c.Service.Port),
		infraconfig.ValidateLogLevel(c.Logging.Level),
		infraconfig.ValidateOneOf("logging.format", c.Logging.Format, "json", "console"),
		infraconfig.ValidateOneOf("matching.pipeline", c.Matching.Pipeline,
			"strict", "comprehensive", "comprehensive_oracle"),
		validateThreshold(c.Matching.FuzzyThreshold),
	}
	if c.Service.Concurrency < 1 {
		errs = append(errs, &infraconfig.ValidationError{Field: "service.concurrency", Message: "must be at least 1"})
	}
	if c.Database.Enabled {
		errs = append(errs, infraconfig.ValidateOneOf("database.driver", c.Database.Driver, "postgres", "sqlite3"))
	}
	if c.Oracle.Enabled {
		errs = append(errs, infraconfig.ValidateOneOf("oracle.provider", c.Oracle.Provider, "ollama", "openai", "anthropic"))
		errs = append(errs, infraconfig.ValidateRange("oracle.temperature", c.Oracle.Temperature, 0, 2))
		if c.Oracle.Provider == "anthropic" {
			errs = append(errs, infraconfig.ValidateRequired("oracle.api_key", c.Oracle.APIKey))
		}
	}
	return errors.Join(errs...)
}

// validateThreshold accepts (0, 1].
func validateThreshold(t float64) error {
	if t <= 0 || t > 1 {
		return &infraconfig.ValidationError{Field: "matching.fuzzy_threshold", Message: "must be in (0, 1]"}
	}
	return nil
}
