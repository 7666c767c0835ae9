// Package config loads the talenthos configuration.
package config

// Config represents the talenthos service configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Token    TokenConfig    `mapstructure:"token"`
	Mail     MailConfig     `mapstructure:"mail"`
	AI       AIConfig       `mapstructure:"ai"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// JobsConfig configures the durable job queues and worker pools
type JobsConfig struct {
	// Worker concurrency per queue. Mail queues run wider pools; the
	// evaluation pool stays narrow to respect AI provider rate limits.
	NotificationWorkers int `mapstructure:"notification_workers"`
	ReminderWorkers     int `mapstructure:"reminder_workers"`
	WelcomeWorkers      int `mapstructure:"welcome_workers"`
	EvaluationWorkers   int `mapstructure:"evaluation_workers"`

	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	BackoffBaseSeconds  int `mapstructure:"backoff_base_seconds"`

	// Retention windows for completed and permanently failed jobs
	CompletedRetentionHours int `mapstructure:"completed_retention_hours"`
	DeadRetentionHours      int `mapstructure:"dead_retention_hours"`
}

// TokenConfig configures assessment capability tokens
type TokenConfig struct {
	TTLHours          int `mapstructure:"ttl_hours"`           // default: 7 days
	ReminderLeadHours int `mapstructure:"reminder_lead_hours"` // how long before expiry the reminder fires
}

// MailConfig configures the outbound mail collaborator
type MailConfig struct {
	FromAddress    string `mapstructure:"from_address"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	AssessmentURL  string `mapstructure:"assessment_url"` // base URL; token value is appended as a path segment
}

// AIConfig configures the AI evaluation collaborator
type AIConfig struct {
	TimeoutSeconds    int `mapstructure:"timeout_seconds"`
	MaxCallsPerMinute int `mapstructure:"max_calls_per_minute"`
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}
