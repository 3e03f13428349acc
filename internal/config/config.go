package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	ChatDBPath       string `mapstructure:"chat_db_path"`
	ChatHistoryLimit int    `mapstructure:"chat_history_limit"`

	// SignalBuffer is the per-connection outbound queue size; a full queue
	// triggers the backpressure policy.
	SignalBuffer int      `mapstructure:"signal_buffer"`
	ICEServers   []string `mapstructure:"ice_servers"`

	JoinRateLimit    int           `mapstructure:"join_rate_limit"`
	JoinRateInterval time.Duration `mapstructure:"join_rate_interval"`

	// AutoCreateConferences lets clients open conferences by connecting.
	AutoCreateConferences bool `mapstructure:"auto_create_conferences"`
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

	setDefaults(v)

	v.SetEnvPrefix("CONCLAVE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Chat DB: %s\n", cfg.Mode, cfg.Port, cfg.ChatDBPath)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "conclave-dev-secret")
	v.SetDefault("chat_db_path", "./data/chat.db")
	v.SetDefault("chat_history_limit", 100)
	v.SetDefault("signal_buffer", 64)
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("join_rate_limit", 5)
	v.SetDefault("join_rate_interval", "10s")
	v.SetDefault("auto_create_conferences", false)
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ChatHistoryLimit <= 0 {
		return fmt.Errorf("chat_history_limit must be positive, got %d", c.ChatHistoryLimit)
	}
	if c.SignalBuffer <= 0 {
		return fmt.Errorf("signal_buffer must be positive, got %d", c.SignalBuffer)
	}
	return nil
}
