package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full engine configuration.
type Config struct {
	Environment string        `mapstructure:"environment"`
	Server      ServerConfig  `mapstructure:"server"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Scoring     ScoringConfig `mapstructure:"scoring"`
	Cache       CacheConfig   `mapstructure:"cache"`
	Sources     SourcesConfig `mapstructure:"sources"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
	History     HistoryConfig `mapstructure:"history"`
	Corpus      CorpusConfig  `mapstructure:"corpus"`
	LLM         LLMConfig     `mapstructure:"llm"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ScoringConfig holds the ranking weights and confidence thresholds.
type ScoringConfig struct {
	GeneWeight        float64 `mapstructure:"gene_weight"`
	PathwayWeight     float64 `mapstructure:"pathway_weight"`
	HighConfidence    float64 `mapstructure:"high_confidence"`
	MediumConfidence  float64 `mapstructure:"medium_confidence"`
	DefaultMinScore   float64 `mapstructure:"default_min_score"`
	DefaultMaxResults int     `mapstructure:"default_max_results"`
}

// CacheConfig holds cache backend settings.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisURL      string        `mapstructure:"redis_url"`
	LRUSize       int           `mapstructure:"lru_size"`
	DiseaseTTL    time.Duration `mapstructure:"disease_ttl"`
	CorpusTTL     time.Duration `mapstructure:"corpus_ttl"`
	ValidationTTL time.Duration `mapstructure:"validation_ttl"`
}

// SourceConfig holds settings for one upstream data source.
type SourceConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	Burst      int           `mapstructure:"burst"`
	RetryCount int           `mapstructure:"retry_count"`
	APIKey     string        `mapstructure:"api_key"`
}

// SourcesConfig holds settings for all upstream data sources.
type SourcesConfig struct {
	OpenTargets    SourceConfig `mapstructure:"opentargets"`
	ChEMBL         SourceConfig `mapstructure:"chembl"`
	DGIdb          SourceConfig `mapstructure:"dgidb"`
	ClinicalTrials SourceConfig `mapstructure:"clinicaltrials"`
	PubMed         SourceConfig `mapstructure:"pubmed"`
	OpenFDA        SourceConfig `mapstructure:"openfda"`
}

// BreakerConfig holds circuit breaker settings shared by all upstream clients.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
	HalfOpenRequests    uint32        `mapstructure:"half_open_requests"`
}

// HistoryConfig holds settings for the analysis history store.
type HistoryConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Database   string `mapstructure:"database"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	SSLMode    string `mapstructure:"ssl_mode"`
}

// CorpusConfig holds settings for the optional drug corpus warehouse.
type CorpusConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
	MaxConns       int    `mapstructure:"max_conns"`
}

// LLMConfig holds settings for LLM-backed explanation generation.
type LLMConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// Manager loads and validates configuration using Viper.
type Manager struct {
	config     *Config
	configFile string
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	return NewManagerWithFile("")
}

// NewManagerWithFile creates a configuration manager reading the given
// config file. An empty path falls back to the standard search paths.
func NewManagerWithFile(path string) (*Manager, error) {
	m := &Manager{configFile: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from file, environment, and defaults.
func (m *Manager) loadConfig() error {
	if m.configFile != "" {
		viper.SetConfigFile(m.configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/drug-repurposing-engine/")
	}

	viper.SetEnvPrefix("REPURPOSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars cover standalone runs.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values.
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("server.request_timeout", "90s")
	viper.SetDefault("server.allowed_origins", []string{"*"})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Scoring defaults
	viper.SetDefault("scoring.gene_weight", 0.6)
	viper.SetDefault("scoring.pathway_weight", 0.4)
	viper.SetDefault("scoring.high_confidence", 0.7)
	viper.SetDefault("scoring.medium_confidence", 0.5)
	viper.SetDefault("scoring.default_min_score", 0.2)
	viper.SetDefault("scoring.default_max_results", 20)

	// Cache defaults
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.lru_size", 1024)
	viper.SetDefault("cache.disease_ttl", "24h")
	viper.SetDefault("cache.corpus_ttl", "24h")
	viper.SetDefault("cache.validation_ttl", "1h")

	// Upstream source defaults
	viper.SetDefault("sources.opentargets.base_url", "https://api.platform.opentargets.org/api/v4/graphql")
	viper.SetDefault("sources.opentargets.timeout", "30s")
	viper.SetDefault("sources.opentargets.rate_limit", 10)
	viper.SetDefault("sources.opentargets.burst", 10)
	viper.SetDefault("sources.opentargets.retry_count", 3)

	viper.SetDefault("sources.chembl.base_url", "https://www.ebi.ac.uk/chembl/api/data")
	viper.SetDefault("sources.chembl.timeout", "30s")
	viper.SetDefault("sources.chembl.rate_limit", 10)
	viper.SetDefault("sources.chembl.burst", 10)
	viper.SetDefault("sources.chembl.retry_count", 3)

	viper.SetDefault("sources.dgidb.base_url", "https://dgidb.org/api/graphql")
	viper.SetDefault("sources.dgidb.timeout", "30s")
	viper.SetDefault("sources.dgidb.rate_limit", 10)
	viper.SetDefault("sources.dgidb.burst", 10)
	viper.SetDefault("sources.dgidb.retry_count", 3)

	viper.SetDefault("sources.clinicaltrials.base_url", "https://clinicaltrials.gov/api/v2")
	viper.SetDefault("sources.clinicaltrials.timeout", "30s")
	viper.SetDefault("sources.clinicaltrials.rate_limit", 5)
	viper.SetDefault("sources.clinicaltrials.burst", 5)
	viper.SetDefault("sources.clinicaltrials.retry_count", 3)

	// NCBI allows 3 req/s without an API key, 10 req/s with one.
	viper.SetDefault("sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	viper.SetDefault("sources.pubmed.timeout", "30s")
	viper.SetDefault("sources.pubmed.rate_limit", 3)
	viper.SetDefault("sources.pubmed.burst", 3)
	viper.SetDefault("sources.pubmed.retry_count", 3)

	viper.SetDefault("sources.openfda.base_url", "https://api.fda.gov")
	viper.SetDefault("sources.openfda.timeout", "30s")
	viper.SetDefault("sources.openfda.rate_limit", 4)
	viper.SetDefault("sources.openfda.burst", 4)
	viper.SetDefault("sources.openfda.retry_count", 3)

	// Circuit breaker defaults
	viper.SetDefault("breaker.consecutive_failures", 5)
	viper.SetDefault("breaker.open_timeout", "60s")
	viper.SetDefault("breaker.half_open_requests", 1)

	// History store defaults
	viper.SetDefault("history.backend", "sqlite")
	viper.SetDefault("history.sqlite_path", "repurpose_history.db")
	viper.SetDefault("history.host", "localhost")
	viper.SetDefault("history.port", 5432)
	viper.SetDefault("history.database", "repurpose")
	viper.SetDefault("history.username", "postgres")
	viper.SetDefault("history.password", "")
	viper.SetDefault("history.ssl_mode", "disable")

	// Corpus warehouse defaults
	viper.SetDefault("corpus.enabled", false)
	viper.SetDefault("corpus.url", "postgres://postgres@localhost:5432/repurpose_corpus?sslmode=disable")
	viper.SetDefault("corpus.migrate_on_start", true)
	viper.SetDefault("corpus.max_conns", 10)

	// LLM explanation defaults
	viper.SetDefault("llm.enabled", false)
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.max_tokens", 256)
	viper.SetDefault("llm.temperature", 0.2)
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetServerConfig returns server configuration.
func (m *Manager) GetServerConfig() *ServerConfig {
	return &m.config.Server
}

// GetScoringConfig returns scoring configuration.
func (m *Manager) GetScoringConfig() *ScoringConfig {
	return &m.config.Scoring
}

// GetSourcesConfig returns upstream source configuration.
func (m *Manager) GetSourcesConfig() *SourcesConfig {
	return &m.config.Sources
}

// GetHistoryConfig returns history store configuration.
func (m *Manager) GetHistoryConfig() *HistoryConfig {
	return &m.config.History
}

// Reload reloads the configuration.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	s := config.Scoring
	if s.GeneWeight < 0 || s.PathwayWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if math.Abs(s.GeneWeight+s.PathwayWeight-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", s.GeneWeight+s.PathwayWeight)
	}
	if !(0 < s.MediumConfidence && s.MediumConfidence < s.HighConfidence && s.HighConfidence <= 1) {
		return fmt.Errorf("confidence thresholds must satisfy 0 < medium < high <= 1")
	}
	if s.DefaultMinScore < 0 || s.DefaultMinScore >= 1 {
		return fmt.Errorf("invalid default min score: %.4f", s.DefaultMinScore)
	}
	if s.DefaultMaxResults <= 0 {
		return fmt.Errorf("default max results must be positive")
	}

	switch config.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("invalid cache backend: %s", config.Cache.Backend)
	}
	if config.Cache.Backend != "memory" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required for cache backend %s", config.Cache.Backend)
	}

	for name, src := range map[string]SourceConfig{
		"opentargets":    config.Sources.OpenTargets,
		"chembl":         config.Sources.ChEMBL,
		"dgidb":          config.Sources.DGIdb,
		"clinicaltrials": config.Sources.ClinicalTrials,
		"pubmed":         config.Sources.PubMed,
		"openfda":        config.Sources.OpenFDA,
	} {
		if src.BaseURL == "" {
			return fmt.Errorf("%s base URL is required", name)
		}
		if src.Timeout <= 0 {
			return fmt.Errorf("%s timeout must be positive", name)
		}
	}

	switch config.History.Backend {
	case "sqlite":
		if config.History.SQLitePath == "" {
			return fmt.Errorf("history sqlite path is required")
		}
	case "postgres":
		if config.History.Host == "" {
			return fmt.Errorf("history database host is required")
		}
		if config.History.Database == "" {
			return fmt.Errorf("history database name is required")
		}
		if config.History.Username == "" {
			return fmt.Errorf("history database username is required")
		}
	default:
		return fmt.Errorf("invalid history backend: %s", config.History.Backend)
	}

	if config.Corpus.Enabled && config.Corpus.URL == "" {
		return fmt.Errorf("corpus URL is required when corpus is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetHistoryDSN returns a formatted connection string for the postgres
// history backend.
func (m *Manager) GetHistoryDSN() string {
	h := m.config.History
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		h.Host, h.Port, h.Username, h.Password, h.Database, h.SSLMode)
}

// GetRedisConnectionString returns the Redis connection string.
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode.
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode.
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
