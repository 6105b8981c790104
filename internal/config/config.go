package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vitos/sentiment_mint/internal/domain"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Storage struct {
		Driver string `yaml:"driver"` // memory | sqlite
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`
	Dirs struct {
		Uploads   string `yaml:"uploads"`
		Generated string `yaml:"generated"`
	} `yaml:"dirs"`
	Animation struct {
		DurationSeconds int `yaml:"duration_seconds"`
		FPS             int `yaml:"fps"`
		Workers         int `yaml:"workers"`
	} `yaml:"animation"`
	Prices struct {
		AssetA float64 `yaml:"asset_a"`
		AssetB float64 `yaml:"asset_b"`
		LabelA string  `yaml:"label_a"`
		LabelB string  `yaml:"label_b"`
	} `yaml:"prices"`
	Thresholds *domain.Thresholds `yaml:"thresholds"`
	Fonts      struct {
		Candidates []string `yaml:"candidates"`
	} `yaml:"fonts"`
}

// Default is the configuration used when no file is present. The file is
// decoded over it, so every key it omits, each price included, keeps its default.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 5000
	cfg.Logging.Level = "info"
	cfg.Storage.Driver = "memory"
	cfg.Dirs.Uploads = "uploads"
	cfg.Dirs.Generated = "generated_gifs"
	def := domain.DefaultPrices()
	cfg.Prices.AssetA = def.AssetA
	cfg.Prices.AssetB = def.AssetB
	cfg.Prices.LabelA = "BTC"
	cfg.Prices.LabelB = "SOL"
	return &cfg
}

// Load reads .env (if any), then the YAML file at path, then applies
// MINT_* environment overrides. MINT_CONFIG replaces path when set.
// A missing file is not an error; defaults are used instead.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if p := os.Getenv("MINT_CONFIG"); p != "" {
		path = p
	}

	cfg := Default()
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MINT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MINT_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("MINT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// SentimentThresholds falls back to the built-in thresholds when the file
// has no thresholds section.
func (c *Config) SentimentThresholds() domain.Thresholds {
	if c.Thresholds == nil {
		return domain.DefaultThresholds()
	}
	return *c.Thresholds
}
