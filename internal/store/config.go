package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Pipeline struct {
		Mode string `yaml:"mode" toml:"mode"` // PARALLEL or SEQUENTIAL
	} `yaml:"pipeline" toml:"pipeline"`
	LLM struct {
		Provider    string  `yaml:"provider" toml:"provider"`
		Model       string  `yaml:"model" toml:"model"`
		MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
		Temperature float64 `yaml:"temperature" toml:"temperature"`
	} `yaml:"llm" toml:"llm"`
	MarketData struct {
		Source            string  `yaml:"source" toml:"source"` // YAHOO or STATIC
		BaseURL           string  `yaml:"base_url" toml:"base_url"`
		RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
		Burst             int     `yaml:"burst" toml:"burst"`
		TimeoutSeconds    int     `yaml:"timeout_seconds" toml:"timeout_seconds"`
	} `yaml:"market_data" toml:"market_data"`
	News struct {
		MaxArticles    int      `yaml:"max_articles" toml:"max_articles"`
		CacheMinutes   int      `yaml:"cache_minutes" toml:"cache_minutes"`
		TimeoutSeconds int      `yaml:"timeout_seconds" toml:"timeout_seconds"`
		Sources        []string `yaml:"sources" toml:"sources"`
		Finnhub        bool     `yaml:"finnhub" toml:"finnhub"`
	} `yaml:"news" toml:"news"`
	Cache struct {
		Backend    string `yaml:"backend" toml:"backend"` // memory, file or redis
		Dir        string `yaml:"dir" toml:"dir"`
		TTLMinutes int    `yaml:"ttl_minutes" toml:"ttl_minutes"`
		RedisAddr  string `yaml:"redis_addr" toml:"redis_addr"`
	} `yaml:"cache" toml:"cache"`
	Scoring struct {
		MinScore       *float64 `yaml:"min_score" toml:"min_score"` // nil means default; 0 disables the cutoff
		SectorCap      int      `yaml:"sector_cap" toml:"sector_cap"`
		MaxResults     int      `yaml:"max_results" toml:"max_results"`
		MomentumCap    float64  `yaml:"momentum_cap" toml:"momentum_cap"`
		FundamentalCap float64  `yaml:"fundamental_cap" toml:"fundamental_cap"`
	} `yaml:"scoring" toml:"scoring"`
	Server struct {
		Addr         string   `yaml:"addr" toml:"addr"`
		AllowOrigins []string `yaml:"allow_origins" toml:"allow_origins"`
	} `yaml:"server" toml:"server"`
	RunLog struct {
		Dir           string `yaml:"dir" toml:"dir"`
		RetentionDays int    `yaml:"retention_days" toml:"retention_days"`
	} `yaml:"run_log" toml:"run_log"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = "PARALLEL"
	}
	c.Pipeline.Mode = strings.ToUpper(c.Pipeline.Mode)
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 512
	}
	c.LLM.Provider = strings.ToUpper(c.LLM.Provider)

	if c.MarketData.Source == "" {
		c.MarketData.Source = "YAHOO"
	}
	c.MarketData.Source = strings.ToUpper(c.MarketData.Source)
	if c.MarketData.RequestsPerSecond == 0 {
		c.MarketData.RequestsPerSecond = 5
	}
	if c.MarketData.Burst == 0 {
		c.MarketData.Burst = 5
	}
	if c.MarketData.TimeoutSeconds == 0 {
		c.MarketData.TimeoutSeconds = 15
	}

	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 20
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 15
	}
	if c.News.TimeoutSeconds == 0 {
		c.News.TimeoutSeconds = 10
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	if c.Cache.Dir == "" {
		c.Cache.Dir = "cache/marketdata"
	}
	if c.Cache.TTLMinutes == 0 {
		c.Cache.TTLMinutes = 15
	}

	if c.Scoring.MinScore == nil {
		minScore := 3.0
		c.Scoring.MinScore = &minScore
	}
	if c.Scoring.SectorCap == 0 {
		c.Scoring.SectorCap = 2
	}
	if c.Scoring.MaxResults == 0 {
		c.Scoring.MaxResults = 10
	}
	if c.Scoring.MomentumCap == 0 {
		c.Scoring.MomentumCap = 4
	}
	if c.Scoring.FundamentalCap == 0 {
		c.Scoring.FundamentalCap = 6
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.AllowOrigins) == 0 {
		c.Server.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}

	if c.RunLog.Dir == "" {
		c.RunLog.Dir = "logs/runs"
	}
}

// Parallel reports whether discovery stages run concurrently.
func (c *Config) Parallel() bool {
	return c.Pipeline.Mode != "SEQUENTIAL"
}

func (c *Config) Validate() error {
	if c.Pipeline.Mode != "PARALLEL" && c.Pipeline.Mode != "SEQUENTIAL" {
		return fmt.Errorf("invalid pipeline.mode '%s': must be 'PARALLEL' or 'SEQUENTIAL'", c.Pipeline.Mode)
	}
	switch c.LLM.Provider {
	case "", "NONE", "OPENAI", "CLAUDE", "GEMINI":
	default:
		return fmt.Errorf("invalid llm.provider '%s': must be 'OPENAI', 'CLAUDE', 'GEMINI' or empty", c.LLM.Provider)
	}
	if c.MarketData.Source != "YAHOO" && c.MarketData.Source != "STATIC" {
		return fmt.Errorf("invalid market_data.source '%s': must be 'YAHOO' or 'STATIC'", c.MarketData.Source)
	}
	if c.MarketData.RequestsPerSecond < 0 {
		return fmt.Errorf("market_data.requests_per_second must be positive, got %.2f", c.MarketData.RequestsPerSecond)
	}
	switch c.Cache.Backend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("invalid cache.backend '%s': must be 'memory', 'file' or 'redis'", c.Cache.Backend)
	}
	if c.Scoring.MinScore != nil && *c.Scoring.MinScore < 0 {
		return fmt.Errorf("scoring.min_score must not be negative, got %.2f", *c.Scoring.MinScore)
	}
	if c.Scoring.SectorCap < 1 {
		return errors.New("scoring.sector_cap must be at least 1")
	}
	if c.Scoring.MaxResults < 1 {
		return errors.New("scoring.max_results must be at least 1")
	}
	return nil
}

// LoadConfig reads a YAML or TOML file (by extension), applies defaults and validates.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
