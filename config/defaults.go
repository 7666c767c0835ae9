package config

import "github.com/spf13/viper"

// SetDefaults registers default values for all configuration keys
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "talenthos.db")

	v.SetDefault("jobs.notification_workers", 5)
	v.SetDefault("jobs.reminder_workers", 5)
	v.SetDefault("jobs.welcome_workers", 5)
	v.SetDefault("jobs.evaluation_workers", 2)
	v.SetDefault("jobs.poll_interval_seconds", 1)
	v.SetDefault("jobs.backoff_base_seconds", 2)
	v.SetDefault("jobs.completed_retention_hours", 24)
	v.SetDefault("jobs.dead_retention_hours", 720)

	v.SetDefault("token.ttl_hours", 168)
	v.SetDefault("token.reminder_lead_hours", 24)

	v.SetDefault("mail.from_address", "no-reply@talenthos.example")
	v.SetDefault("mail.timeout_seconds", 10)
	v.SetDefault("mail.assessment_url", "https://app.talenthos.example/assessment")

	v.SetDefault("ai.timeout_seconds", 120)
	v.SetDefault("ai.max_calls_per_minute", 30)

	v.SetDefault("log.json", false)
}
