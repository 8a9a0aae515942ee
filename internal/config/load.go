package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory.
	v.SetConfigName("hailcast")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// HAILCAST_SERVER_PORT overrides server.port, and so on.
	v.SetEnvPrefix("HAILCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if _, ok := cfg.Tiers[cfg.DefaultTierName()]; !ok {
		return nil, fmt.Errorf("config validation failed: tier table is missing the %q tier", cfg.DefaultTierName())
	}

	return &cfg, nil
}

// DefaultTierName returns the tier every new account starts on.
func (c *Config) DefaultTierName() string {
	return "base"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")

	// Registered empty so the env override is visible to Unmarshal;
	// validation rejects the empty value.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("queue.url", "nats://localhost:4222")
	v.SetDefault("queue.stream", "HAILCAST")
	v.SetDefault("queue.task_topic", "tasks.predict")
	v.SetDefault("queue.control_topic", "tasks.control")
	v.SetDefault("queue.durable_name", "hailcast-worker")
	v.SetDefault("queue.queue_group", "prediction-workers")
	v.SetDefault("queue.ack_wait", 5*time.Minute)
	v.SetDefault("queue.max_reconnects", -1)
	v.SetDefault("queue.reconnect_wait", 2*time.Second)

	v.SetDefault("models.dir", "models")
	v.SetDefault("models.names", []string{"lstmv3"})
	v.SetDefault("models.default", "lstmv3")
	v.SetDefault("models.cost_model", "")
	v.SetDefault("models.past_steps", 72)

	// Business values confirmed out-of-band; see DESIGN.md.
	v.SetDefault("tiers.base.price", 0)
	v.SetDefault("tiers.base.daily_limit", 10)
	v.SetDefault("tiers.base.task_cost", 20)
	v.SetDefault("tiers.base.duration_days", 30)

	v.SetDefault("tiers.tier2.price", 100)
	v.SetDefault("tiers.tier2.daily_limit", 100)
	v.SetDefault("tiers.tier2.task_cost", 15)
	v.SetDefault("tiers.tier2.duration_days", 30)

	v.SetDefault("tiers.tier3.price", 200)
	v.SetDefault("tiers.tier3.daily_limit", 1000)
	v.SetDefault("tiers.tier3.task_cost", 10)
	v.SetDefault("tiers.tier3.duration_days", 30)

	v.SetDefault("tiers.tier4.price", 300)
	v.SetDefault("tiers.tier4.daily_limit", -1)
	v.SetDefault("tiers.tier4.task_cost", 5)
	v.SetDefault("tiers.tier4.duration_days", 30)
}
