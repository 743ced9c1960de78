package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

type ChatConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	ListPollInterval time.Duration `mapstructure:"list_poll_interval"`
	RecentLimit      int           `mapstructure:"recent_limit"`
	PageSize         int           `mapstructure:"page_size"`
	NoticeTTL        time.Duration `mapstructure:"notice_ttl"`
	MaxImageBytes    int64         `mapstructure:"max_image_bytes"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	Dev   bool   `mapstructure:"dev"`
}

type Config struct {
	DataDir string     `mapstructure:"data_dir"`
	API     APIConfig  `mapstructure:"api"`
	Chat    ChatConfig `mapstructure:"chat"`
	Log     LogConfig  `mapstructure:"log"`
}

// DefaultDataDir returns ~/.haggle.
func DefaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".haggle")
}

// Load reads the config file at path (or <data dir>/config.yaml when path is empty).
// A missing file is not an error; HAGGLE_* environment variables override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("haggle")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("data_dir"))
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path == "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.DataDir, "haggle.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())

	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.requests_per_second", 10.0)
	v.SetDefault("api.burst", 5)
	v.SetDefault("api.breaker_failures", 5)
	v.SetDefault("api.breaker_timeout", 30*time.Second)

	v.SetDefault("chat.poll_interval", 3*time.Second)
	v.SetDefault("chat.list_poll_interval", 5*time.Second)
	v.SetDefault("chat.recent_limit", 50)
	v.SetDefault("chat.page_size", 20)
	v.SetDefault("chat.notice_ttl", 5*time.Second)
	v.SetDefault("chat.max_image_bytes", 10<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.dev", false)
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	if c.Chat.PollInterval <= 0 || c.Chat.ListPollInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	if c.Chat.RecentLimit <= 0 || c.Chat.PageSize <= 0 {
		return fmt.Errorf("chat.recent_limit and chat.page_size must be positive")
	}
	if c.Chat.NoticeTTL <= 0 {
		return fmt.Errorf("chat.notice_ttl must be positive")
	}
	return nil
}

// StatePath is the sqlite file holding location state and cached summaries.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.db")
}

func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.yml")
}

func (c *Config) SellersDir() string {
	return filepath.Join(c.DataDir, "sellers")
}
