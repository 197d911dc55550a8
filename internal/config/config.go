package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Notification listener strategies.
const (
	ListenPolling = "polling"
	ListenInband  = "inband"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port" validate:"gte=1,lte=65535"`

	// SignalingURL is the one place the service base address lives;
	// every client request derives from it.
	SignalingURL string `mapstructure:"signaling_url" validate:"url"`

	Secret   string        `mapstructure:"secret" validate:"required"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`

	ListenStrategy string        `mapstructure:"listen_strategy" validate:"oneof=polling inband"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	PollBackoff    time.Duration `mapstructure:"poll_backoff"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	// Optional integrations; empty keys disable the feature.
	LLMURL   string `mapstructure:"llm_url"`
	LLMKey   string `mapstructure:"llm_key"`
	LLMModel string `mapstructure:"llm_model"`

	PSTNURL    string `mapstructure:"pstn_url"`
	PSTNSid    string `mapstructure:"pstn_sid"`
	PSTNToken  string `mapstructure:"pstn_token"`
	PSTNNumber string `mapstructure:"pstn_number"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8000)
	v.SetDefault("signaling_url", "http://localhost:8000")
	v.SetDefault("secret", "dev-secret")
	v.SetDefault("token_ttl", "15m")
	v.SetDefault("listen_strategy", ListenPolling)
	v.SetDefault("poll_interval", "1s")
	v.SetDefault("poll_backoff", "5s")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("llm_model", "llama3-8b-8192")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
