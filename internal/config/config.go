package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`
	PublicURL  string        `mapstructure:"public_url"`

	RedisAddr          string `mapstructure:"redis_addr"`
	RedisPassword      string `mapstructure:"redis_password"`
	RedisChannelPrefix string `mapstructure:"redis_channel_prefix"`
	PostgresDSN        string `mapstructure:"postgres_dsn"`

	CoHostCanSwitchMode bool          `mapstructure:"cohost_can_switch_mode"`
	ChatHostsOnly       bool          `mapstructure:"chat_hosts_only"`
	ChatRateLimit       int           `mapstructure:"chat_rate_limit"`
	ChatRateInterval    time.Duration `mapstructure:"chat_rate_interval"`
	SampleRate          int           `mapstructure:"sample_rate"`
}

var keys = []string{
	"mode", "port", "log_level", "read_limit", "ping_period", "pong_wait", "write_wait",
	"send_buffer", "secret", "public_url", "redis_addr", "redis_password",
	"redis_channel_prefix", "postgres_dsn", "cohost_can_switch_mode", "chat_hosts_only",
	"chat_rate_limit", "chat_rate_interval", "sample_rate",
}

// Load reads config/config.<CONFIG_ENV>.yaml, then BROADCAST_* environment
// variables on top of it.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "")
	v.SetDefault("public_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_channel_prefix", "livestage:bus:")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("cohost_can_switch_mode", false)
	v.SetDefault("chat_hosts_only", false)
	v.SetDefault("chat_rate_limit", 5)
	v.SetDefault("chat_rate_interval", "1s")
	v.SetDefault("sample_rate", 16000)

	v.SetEnvPrefix("BROADCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Bool("redis", cfg.RedisAddr != "").
		Bool("postgres", cfg.PostgresDSN != "").
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Secret == "" {
		return fmt.Errorf("config: secret is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.PongWait > 0 && c.PingPeriod >= c.PongWait {
		return fmt.Errorf("config: ping_period %s must be shorter than pong_wait %s", c.PingPeriod, c.PongWait)
	}
	return nil
}
