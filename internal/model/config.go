package model

import (
	"fmt"
	"time"
)

// Config holds all runtime configuration
type Config struct {
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	Extractor    ExtractorConfig    `mapstructure:"extractor" yaml:"extractor"`
	Embedding    EmbeddingConfig    `mapstructure:"embedding" yaml:"embedding"`
	Retrieval    RetrievalConfig    `mapstructure:"retrieval" yaml:"retrieval"`
	Database     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Logic        LogicConfig        `mapstructure:"logic" yaml:"logic"`
	NLI          NLIConfig          `mapstructure:"nli" yaml:"nli"`
	Decision     DecisionConfig     `mapstructure:"decision" yaml:"decision"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	HTTP         HTTPConfig         `mapstructure:"http" yaml:"http"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `mapstructure:"concurrency" yaml:"concurrency"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // json or console
}

// ExtractorConfig controls claim extraction
type ExtractorConfig struct {
	MinWords            int           `mapstructure:"min_words" yaml:"min_words"`
	MaxClaims           int           `mapstructure:"max_claims" yaml:"max_claims"` // 0 = unlimited
	ClassifierURL       string        `mapstructure:"classifier_url" yaml:"classifier_url"`
	ClassifierLabel     string        `mapstructure:"classifier_label" yaml:"classifier_label"` // Positive class label
	ClassifierThreshold float64       `mapstructure:"classifier_threshold" yaml:"classifier_threshold"`
	ClassifierTimeout   time.Duration `mapstructure:"classifier_timeout" yaml:"classifier_timeout"`
}

// EmbeddingConfig selects and configures the sentence encoder
type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider" yaml:"provider"` // openai or hashing
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey    string        `mapstructure:"api_key" yaml:"-"`
	Model     string        `mapstructure:"model" yaml:"model"`
	Dimension int           `mapstructure:"dimension" yaml:"dimension"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// RetrievalConfig holds the retriever's recall/precision knobs
type RetrievalConfig struct {
	TopK              int     `mapstructure:"top_k" yaml:"top_k"`
	DistanceThreshold float64 `mapstructure:"distance_threshold" yaml:"distance_threshold"`
}

// DatabaseConfig selects the knowledge store
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"` // postgres or memory
	DSN             string        `mapstructure:"dsn" yaml:"-"`
	Table           string        `mapstructure:"table" yaml:"table"`
	KBFile          string        `mapstructure:"kb_file" yaml:"kb_file"` // JSONL knowledge base for the memory driver
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// LogicConfig tunes the hard-rule checker
type LogicConfig struct {
	NumberTolerance  float64 `mapstructure:"number_tolerance" yaml:"number_tolerance"`
	OverlapThreshold float64 `mapstructure:"overlap_threshold" yaml:"overlap_threshold"`
	ExemptYears      bool    `mapstructure:"exempt_years" yaml:"exempt_years"`
}

// NLIConfig selects and configures the sequence-pair verifier
type NLIConfig struct {
	Provider        string            `mapstructure:"provider" yaml:"provider"` // crossencoder or openai
	BaseURL         string            `mapstructure:"base_url" yaml:"base_url"`
	APIKey          string            `mapstructure:"api_key" yaml:"-"`
	Model           string            `mapstructure:"model" yaml:"model"`
	Variant         string            `mapstructure:"variant" yaml:"variant"` // three_way or binary
	Labels          map[string]string `mapstructure:"labels" yaml:"labels"`   // Server label -> REFUTED/SUPPORTED/NEI
	BoostThreshold  float64           `mapstructure:"boost_threshold" yaml:"boost_threshold"`
	DominanceMargin float64           `mapstructure:"dominance_margin" yaml:"dominance_margin"`
	Timeout         time.Duration     `mapstructure:"timeout" yaml:"timeout"`
}

// DecisionConfig tunes article-level aggregation
type DecisionConfig struct {
	RefuteThreshold   float64 `mapstructure:"refute_threshold" yaml:"refute_threshold"`
	SupportRatio      float64 `mapstructure:"support_ratio" yaml:"support_ratio"`
	NeutralConfidence float64 `mapstructure:"neutral_confidence" yaml:"neutral_confidence"`
	ConfidencePolicy  string  `mapstructure:"confidence_policy" yaml:"confidence_policy"` // mean_supported, mean_evaluated, max_supported
}

// CacheConfig controls the embedding cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskDir   string        `mapstructure:"disk_dir" yaml:"disk_dir"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db" yaml:"redis_db"`
	RedisTTL  time.Duration `mapstructure:"redis_ttl" yaml:"redis_ttl"`
}

// HTTPConfig controls outbound article fetching and model-server clients
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	HTTPProxy     string        `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy       string        `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
	RespectRobots bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
}

// RateLimitingConfig throttles calls to model servers per host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size" yaml:"burst_size"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxRequestBytes int64         `mapstructure:"max_request_bytes" yaml:"max_request_bytes"`
	AdminToken      string        `mapstructure:"admin_token" yaml:"-"`
}

// DefaultConfig returns the calibrated defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Extractor: ExtractorConfig{
			MinWords:            6,
			MaxClaims:           30,
			ClassifierLabel:     "LABEL_1",
			ClassifierThreshold: 0.5,
			ClassifierTimeout:   10 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			BaseURL:   "http://localhost:8080/v1",
			Model:     "bkai-foundation-models/vietnamese-bi-encoder",
			Dimension: 768,
			BatchSize: 32,
			Timeout:   30 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TopK:              3,
			DistanceThreshold: 0.5,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Table:           "claims",
			MaxOpenConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logic: LogicConfig{
			NumberTolerance:  1e-6,
			OverlapThreshold: 0.85,
			ExemptYears:      true,
		},
		NLI: NLIConfig{
			Provider: "crossencoder",
			BaseURL:  "http://localhost:8081",
			Model:    "tinthat-nli-v6",
			Variant:  "three_way",
			Labels: map[string]string{
				"LABEL_0": string(VerdictRefuted),
				"LABEL_1": string(VerdictSupported),
				"LABEL_2": string(VerdictNEI),
			},
			BoostThreshold:  0.55,
			DominanceMargin: 0.15,
			Timeout:         30 * time.Second,
		},
		Decision: DecisionConfig{
			RefuteThreshold:   0.85,
			SupportRatio:      0.5,
			NeutralConfidence: 0.5,
			ConfidencePolicy:  "mean_supported",
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 1 * time.Hour,
			DiskDir:   "",
			DiskTTL:   7 * 24 * time.Hour,
			RedisTTL:  24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "tinthat/0.3 (+https://github.com/ppiankov/tinthat)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 50,
			BurstSize:         20,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Address:         ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			MaxRequestBytes: 1 << 20,
		},
	}
}

// Validate checks that thresholds and sizes are usable
func (c *Config) Validate() error {
	if c.Extractor.MinWords < 1 {
		return fmt.Errorf("extractor.min_words must be >= 1, got %d", c.Extractor.MinWords)
	}
	if err := unitInterval("extractor.classifier_threshold", c.Extractor.ClassifierThreshold); err != nil {
		return err
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	switch c.Embedding.Provider {
	case "openai", "hashing":
	default:
		return fmt.Errorf("unknown embedding provider: %s (supported: openai, hashing)", c.Embedding.Provider)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be >= 1, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.DistanceThreshold <= 0 || c.Retrieval.DistanceThreshold > 2 {
		return fmt.Errorf("retrieval.distance_threshold must be in (0, 2], got %g", c.Retrieval.DistanceThreshold)
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver: %s (supported: postgres, memory)", c.Database.Driver)
	}
	switch c.NLI.Provider {
	case "crossencoder", "openai":
	default:
		return fmt.Errorf("unknown nli provider: %s (supported: crossencoder, openai)", c.NLI.Provider)
	}
	switch c.NLI.Variant {
	case "three_way", "binary":
	default:
		return fmt.Errorf("unknown nli variant: %s (supported: three_way, binary)", c.NLI.Variant)
	}
	for name, v := range map[string]float64{
		"logic.overlap_threshold":     c.Logic.OverlapThreshold,
		"nli.boost_threshold":         c.NLI.BoostThreshold,
		"decision.refute_threshold":   c.Decision.RefuteThreshold,
		"decision.support_ratio":      c.Decision.SupportRatio,
		"decision.neutral_confidence": c.Decision.NeutralConfidence,
	} {
		if err := unitInterval(name, v); err != nil {
			return err
		}
	}
	switch c.Decision.ConfidencePolicy {
	case "mean_supported", "mean_evaluated", "max_supported":
	default:
		return fmt.Errorf("unknown decision.confidence_policy: %s", c.Decision.ConfidencePolicy)
	}
	return nil
}

func unitInterval(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %g", name, v)
	}
	return nil
}
