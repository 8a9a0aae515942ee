// Package config loads and validates application configuration from
// environment variables and optional config files.
package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig          `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig        `mapstructure:"database" validate:"required"`
	Auth     AuthConfig            `mapstructure:"auth"     validate:"required"`
	Queue    QueueConfig           `mapstructure:"queue"    validate:"required"`
	Models   ModelsConfig          `mapstructure:"models"   validate:"required"`
	Tiers    map[string]TierConfig `mapstructure:"tiers"    validate:"required,dive"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// QueueConfig contains the settings for the durable task queue.
type QueueConfig struct {
	// URL is the NATS server address.
	URL string `mapstructure:"url" validate:"required"`
	// Stream is the JetStream stream holding prediction task messages.
	Stream string `mapstructure:"stream" validate:"required"`
	// TaskTopic carries task descriptors from dispatcher to workers.
	TaskTopic string `mapstructure:"task_topic" validate:"required"`
	// ControlTopic carries maintenance commands (model reloads).
	ControlTopic string `mapstructure:"control_topic" validate:"required"`
	// DurableName identifies the workers' durable consumer.
	DurableName string `mapstructure:"durable_name" validate:"required"`
	// QueueGroup load-balances task messages across worker processes.
	QueueGroup string `mapstructure:"queue_group" validate:"required"`
	// AckWait is how long the broker waits for an ack before redelivering.
	AckWait       time.Duration `mapstructure:"ack_wait"       validate:"required"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// ModelsConfig describes the inference artifacts available to workers.
type ModelsConfig struct {
	// Dir is the directory holding model artifact files (<name>.json).
	Dir string `mapstructure:"dir" validate:"required"`
	// Names lists the registered model names.
	Names []string `mapstructure:"names" validate:"required,min=1"`
	// Default is the model used for task submissions.
	Default string `mapstructure:"default" validate:"required"`
	// CostModel, when set, names a secondary model used to derive
	// per-hour trip cost estimates for paid tasks.
	CostModel string `mapstructure:"cost_model"`
	// PastSteps is the width of the historical feature window.
	PastSteps int `mapstructure:"past_steps" validate:"required,gt=0"`
}

// TierConfig holds the business values for one subscription tier.
// These are configuration, not invariants: only the tier ordering is
// fixed in code.
type TierConfig struct {
	// Price is what purchasing (or renewing) the tier costs.
	Price float64 `mapstructure:"price" validate:"gte=0"`
	// DailyLimit is the task quota per UTC day; -1 means unlimited.
	DailyLimit int `mapstructure:"daily_limit" validate:"gte=-1"`
	// TaskCost is the per-task price on the paid submission path.
	TaskCost float64 `mapstructure:"task_cost" validate:"gte=0"`
	// DurationDays is how long a purchase extends the tier.
	DurationDays int `mapstructure:"duration_days" validate:"gt=0"`
}
