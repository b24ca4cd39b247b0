package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Service Service `mapstructure:"service"`
	Chat    Chat    `mapstructure:"chat"`
	Typing  Typing  `mapstructure:"typing"`
	Store   Store   `mapstructure:"store"`
	Logging Logging `mapstructure:"logging"`
}

// Service configures the answering-service endpoint. The send timeout is the
// long tier: the service may fall back between backends before answering, so
// the client must not abandon a request it is still working on.
type Service struct {
	BaseURL            string        `mapstructure:"base_url" validate:"required,url"`
	SendTimeout        time.Duration `mapstructure:"send_timeout" validate:"min=1s"`
	QuickTimeout       time.Duration `mapstructure:"quick_timeout" validate:"min=1s"`
	HealthPollInterval time.Duration `mapstructure:"health_poll_interval" validate:"min=1s"`
}

type Chat struct {
	MaxResults   int  `mapstructure:"max_results" validate:"min=1,max=50"`
	AutoScroll   bool `mapstructure:"auto_scroll"`
	SoundEnabled bool `mapstructure:"sound_enabled"`
}

type Typing struct {
	Enabled      bool          `mapstructure:"enabled"`
	CharsPerTick int           `mapstructure:"chars_per_tick" validate:"min=0,max=100"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type Store struct {
	Path string `mapstructure:"path" validate:"required"`
}

type Logging struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Service
	v.SetDefault("service.base_url", "http://localhost:8000")
	v.SetDefault("service.send_timeout", "90s")
	v.SetDefault("service.quick_timeout", "5s")
	v.SetDefault("service.health_poll_interval", "300s")

	// Chat
	v.SetDefault("chat.max_results", 5)
	v.SetDefault("chat.auto_scroll", true)
	v.SetDefault("chat.sound_enabled", false)

	// Typing
	v.SetDefault("typing.enabled", true)
	v.SetDefault("typing.chars_per_tick", 3)
	v.SetDefault("typing.tick_interval", "30ms")

	// Store
	v.SetDefault("store.path", defaultStorePath())

	// Logging
	v.SetDefault("logging.level", "info")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("service.base_url", "TOONCHAT_SERVICE_URL")
	v.BindEnv("service.send_timeout", "TOONCHAT_SEND_TIMEOUT")
	v.BindEnv("service.quick_timeout", "TOONCHAT_QUICK_TIMEOUT")
	v.BindEnv("service.health_poll_interval", "TOONCHAT_HEALTH_POLL_INTERVAL")
	v.BindEnv("chat.max_results", "TOONCHAT_MAX_RESULTS")
	v.BindEnv("store.path", "TOONCHAT_STORE_PATH")
	v.BindEnv("logging.level", "TOONCHAT_LOG_LEVEL")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "toonchat.db"
	}
	return home + "/.toonchat/toonchat.db"
}
