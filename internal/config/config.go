package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete screener configuration.
type Config struct {
	Client     ClientConfig     `yaml:"client"`
	Criteria   CriteriaConfig   `yaml:"criteria"`
	Indicators IndicatorsConfig `yaml:"indicators"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Risk       RiskConfig       `yaml:"risk"`
	Output     OutputConfig     `yaml:"output"`
	Cache      CacheConfig      `yaml:"cache"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Alerts     AlertsConfig     `yaml:"alerts"`
}

// ClientConfig configures the market-data client.
type ClientConfig struct {
	BaseURL    string        `yaml:"base_url"`
	VsCurrency string        `yaml:"vs_currency"`
	PageSize   int           `yaml:"page_size"`
	MaxRetries int           `yaml:"max_retries"`
	TimeoutMS  int           `yaml:"timeout_ms"`
	BackoffMS  BackoffConfig `yaml:"backoff_ms"`
	RPS        float64       `yaml:"rps"`
	Burst      int           `yaml:"burst"`
	Circuit    CircuitConfig `yaml:"circuit"`
	UserAgent  string        `yaml:"user_agent"`
}

// BackoffConfig configures exponential retry backoff.
type BackoffConfig struct {
	Base int `yaml:"base"` // Base backoff in milliseconds
	Max  int `yaml:"max"`  // Ceiling in milliseconds
}

// CircuitConfig configures the provider circuit breaker.
type CircuitConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"`
	CooldownSecs     int    `yaml:"cooldown_secs"`
}

// CriteriaConfig holds the filter thresholds for one scan. The orchestrator
// snapshots it into an immutable filter.Criteria per cycle.
type CriteriaConfig struct {
	PriceMin     float64 `yaml:"price_min"`
	PriceMax     float64 `yaml:"price_max"`
	VolumeMin    float64 `yaml:"volume_min"`
	ChangeMin    float64 `yaml:"change_min"`
	ChangeMax    float64 `yaml:"change_max"`
	MarketCapMin float64 `yaml:"mcap_min"`
	MarketCapMax float64 `yaml:"mcap_max"`
	RSIMin       int     `yaml:"rsi_min"`
	RSIMax       int     `yaml:"rsi_max"`
	RVolMin      float64 `yaml:"rvol_min"`
	EMARequired  bool    `yaml:"ema_required"`
	VWAPMaxAbs   float64 `yaml:"vwap_max_abs"`
	MentionsMin  int     `yaml:"mentions_min"`
	SentimentMin float64 `yaml:"sentiment_min"`
}

// IndicatorsConfig configures the synthetic indicator provider.
type IndicatorsConfig struct {
	Seed int64 `yaml:"seed"` // 0 rotates with wall clock
}

// ScoringConfig configures the composite score.
type ScoringConfig struct {
	WeightMomentum  float64 `yaml:"weight_momentum"`
	WeightLiquidity float64 `yaml:"weight_liquidity"`
	WeightSize      float64 `yaml:"weight_size"`
	WeightStrength  float64 `yaml:"weight_strength"`
	WeightSentiment float64 `yaml:"weight_sentiment"`
	JitterMean      float64 `yaml:"jitter_mean"`
	JitterSpread    float64 `yaml:"jitter_spread"`
	Seed            int64   `yaml:"seed"` // 0 rotates with wall clock
}

// RiskConfig holds the risk-plan constants.
type RiskConfig struct {
	BaseStopLoss    float64 `yaml:"base_stop_loss"`
	BaseTakeProfit  float64 `yaml:"base_take_profit"`
	PositionSizeCap float64 `yaml:"position_size_cap"`
	SizeMultiplier  float64 `yaml:"size_multiplier"`
	RewardFloor     float64 `yaml:"reward_floor"`
}

// OutputConfig controls result precision and the file sink.
type OutputConfig struct {
	Dir                 string  `yaml:"dir"`
	PriceDecimals       int     `yaml:"price_decimals"`
	SmallPriceDecimals  int     `yaml:"small_price_decimals"`
	SmallPriceThreshold float64 `yaml:"small_price_threshold"`
}

// CacheConfig configures the snapshot cache. An empty RedisAddr selects the
// in-process cache.
type CacheConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	TTLSecs   int    `yaml:"ttl_secs"`
}

// ServerConfig configures the read-only HTTP wrapper.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout_secs"`
	WriteTimeout int    `yaml:"write_timeout_secs"`
	IdleTimeout  int    `yaml:"idle_timeout_secs"`
}

// DatabaseConfig configures the optional Postgres results sink.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AlertsConfig configures the optional Kafka candidate publisher.
type AlertsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Load reads and validates a YAML configuration file. Environment variables
// override the addresses that differ per deployment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Alerts.Brokers = []string{brokers}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the stock configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			BaseURL:    "https://api.coingecko.com/api/v3",
			VsCurrency: "usd",
			PageSize:   250,
			MaxRetries: 3,
			TimeoutMS:  15000,
			BackoffMS:  BackoffConfig{Base: 1000, Max: 8000},
			RPS:        2,
			Burst:      2,
			Circuit:    CircuitConfig{FailureThreshold: 5, CooldownSecs: 60},
			UserAgent:  "coinsift/1.0",
		},
		Criteria: CriteriaConfig{
			PriceMin:     0.001,
			PriceMax:     100,
			VolumeMin:    10_000_000,
			ChangeMin:    2,
			ChangeMax:    20,
			MarketCapMin: 10_000_000,
			MarketCapMax: 5_000_000_000,
			RSIMin:       50,
			RSIMax:       70,
			RVolMin:      2,
			EMARequired:  true,
			VWAPMaxAbs:   2,
			MentionsMin:  10,
			SentimentMin: 0.6,
		},
		Scoring: ScoringConfig{
			WeightMomentum:  0.30,
			WeightLiquidity: 0.25,
			WeightSize:      0.15,
			WeightStrength:  0.15,
			WeightSentiment: 0.15,
			JitterMean:      0.5,
			JitterSpread:    0.2,
		},
		Risk: RiskConfig{
			BaseStopLoss:    0.02,
			BaseTakeProfit:  0.04,
			PositionSizeCap: 10,
			SizeMultiplier:  2,
			RewardFloor:     1,
		},
		Output: OutputConfig{
			Dir:                 "docs/data",
			PriceDecimals:       4,
			SmallPriceDecimals:  6,
			SmallPriceThreshold: 1,
		},
		Cache: CacheConfig{TTLSecs: 300},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  10,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		Database: DatabaseConfig{TimeoutSecs: 5},
		Alerts:   AlertsConfig{Topic: "coinsift.candidates"},
	}
}

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if err := c.Criteria.Validate(); err != nil {
		return fmt.Errorf("criteria: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// Validate ensures the client configuration is usable.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("timeout_ms must be positive, got %d", c.TimeoutMS)
	}
	if c.BackoffMS.Base <= 0 {
		return fmt.Errorf("backoff base must be positive, got %d", c.BackoffMS.Base)
	}
	if c.BackoffMS.Max < c.BackoffMS.Base {
		return fmt.Errorf("backoff max (%d) must be >= base (%d)", c.BackoffMS.Max, c.BackoffMS.Base)
	}
	if c.RPS <= 0 {
		return fmt.Errorf("rps must be positive, got %f", c.RPS)
	}
	if c.Burst <= 0 {
		return fmt.Errorf("burst must be positive, got %d", c.Burst)
	}
	return nil
}

// Validate ensures every threshold range is ordered.
func (c *CriteriaConfig) Validate() error {
	if c.PriceMin > c.PriceMax {
		return fmt.Errorf("price range inverted: [%f, %f]", c.PriceMin, c.PriceMax)
	}
	if c.ChangeMin > c.ChangeMax {
		return fmt.Errorf("change range inverted: [%f, %f]", c.ChangeMin, c.ChangeMax)
	}
	if c.MarketCapMin > c.MarketCapMax {
		return fmt.Errorf("mcap range inverted: [%f, %f]", c.MarketCapMin, c.MarketCapMax)
	}
	if c.RSIMin > c.RSIMax {
		return fmt.Errorf("rsi range inverted: [%d, %d]", c.RSIMin, c.RSIMax)
	}
	if c.RSIMin < 0 || c.RSIMax > 100 {
		return fmt.Errorf("rsi range outside [0, 100]: [%d, %d]", c.RSIMin, c.RSIMax)
	}
	if c.VolumeMin < 0 {
		return fmt.Errorf("volume_min cannot be negative, got %f", c.VolumeMin)
	}
	if c.SentimentMin < 0 || c.SentimentMin > 1 {
		return fmt.Errorf("sentiment_min outside [0, 1]: %f", c.SentimentMin)
	}
	return nil
}

// Validate ensures the score weights form a convex combination.
func (c *ScoringConfig) Validate() error {
	sum := c.WeightMomentum + c.WeightLiquidity + c.WeightSize + c.WeightStrength + c.WeightSentiment
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("weights must sum to 1.0, got %f", sum)
	}
	if c.JitterSpread < 0 {
		return fmt.Errorf("jitter_spread cannot be negative, got %f", c.JitterSpread)
	}
	return nil
}

// Validate ensures the risk constants are sane.
func (c *RiskConfig) Validate() error {
	if c.BaseStopLoss <= 0 || c.BaseStopLoss >= 1 {
		return fmt.Errorf("base_stop_loss must be in (0, 1), got %f", c.BaseStopLoss)
	}
	if c.BaseTakeProfit <= 0 {
		return fmt.Errorf("base_take_profit must be positive, got %f", c.BaseTakeProfit)
	}
	if c.PositionSizeCap <= 0 {
		return fmt.Errorf("position_size_cap must be positive, got %f", c.PositionSizeCap)
	}
	if c.SizeMultiplier <= 0 {
		return fmt.Errorf("size_multiplier must be positive, got %f", c.SizeMultiplier)
	}
	if c.RewardFloor < 0 {
		return fmt.Errorf("reward_floor cannot be negative, got %f", c.RewardFloor)
	}
	return nil
}

// Validate ensures precision settings round to something.
func (c *OutputConfig) Validate() error {
	if c.PriceDecimals < 0 || c.SmallPriceDecimals < 0 {
		return fmt.Errorf("decimals cannot be negative")
	}
	if c.SmallPriceThreshold < 0 {
		return fmt.Errorf("small_price_threshold cannot be negative, got %f", c.SmallPriceThreshold)
	}
	return nil
}

// GetTimeout returns the request timeout as a duration.
func (c *ClientConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetBaseBackoff returns the base backoff as a duration.
func (c *ClientConfig) GetBaseBackoff() time.Duration {
	return time.Duration(c.BackoffMS.Base) * time.Millisecond
}

// GetMaxBackoff returns the backoff ceiling as a duration.
func (c *ClientConfig) GetMaxBackoff() time.Duration {
	return time.Duration(c.BackoffMS.Max) * time.Millisecond
}

// GetCooldown returns the circuit-breaker open interval.
func (c *CircuitConfig) GetCooldown() time.Duration {
	return time.Duration(c.CooldownSecs) * time.Second
}

// GetTTL returns the cache TTL as a duration.
func (c *CacheConfig) GetTTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// GetTimeout returns the statement timeout for the results sink.
func (c *DatabaseConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}
