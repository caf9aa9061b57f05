package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	Secret     string        `mapstructure:"secret"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	SendQueue  int           `mapstructure:"send_queue"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	// Upstream (Mumble) connection policy.
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	InsecureTLS     bool          `mapstructure:"insecure_tls"`
	ConnectLimit    int           `mapstructure:"connect_limit"`
	ConnectInterval time.Duration `mapstructure:"connect_interval"`

	// Bridging policy.
	AudioWindow     time.Duration `mapstructure:"audio_window"`
	AudioGuard      time.Duration `mapstructure:"audio_guard"`
	MaxMessageBytes int           `mapstructure:"max_message_bytes"`
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
	v.SetDefault("port", 9847)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("send_queue", 256)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("dial_timeout", "10s")
	v.SetDefault("insecure_tls", true)
	v.SetDefault("connect_limit", 5)
	v.SetDefault("connect_interval", "10s")
	v.SetDefault("audio_window", "60ms")
	v.SetDefault("audio_guard", "40ms")
	v.SetDefault("max_message_bytes", 5000)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).Int("port", cfg.Port).Bool("insecure_tls", cfg.InsecureTLS).
		Msg("effective config")
	return &cfg, nil
}
