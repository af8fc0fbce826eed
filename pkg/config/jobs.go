package config

import "time"

// JobSchedule configures one periodic job
type JobSchedule struct {
	Interval       time.Duration `envconfig:"INTERVAL"`
	Timeout        time.Duration `envconfig:"TIMEOUT"`
	BatchSize      int           `envconfig:"BATCH_SIZE"`
	AlertOnFailure bool          `envconfig:"ALERT_ON_FAILURE"`
	Enabled        bool          `envconfig:"ENABLED"`
}

// JobsConfig is read with envconfig under the JOB_ prefix,
// e.g. JOB_EXECUTE_DRAFTS_INTERVAL=30s
type JobsConfig struct {
	Enabled          bool        `envconfig:"RUNNER_ENABLED"`
	ProcessResponses JobSchedule `envconfig:"PROCESS_RESPONSES"`
	SendFollowUps    JobSchedule `envconfig:"SEND_FOLLOW_UPS"`
	SendReminders    JobSchedule `envconfig:"SEND_REMINDERS"`
	CheckNoShows     JobSchedule `envconfig:"CHECK_NO_SHOWS"`
	ExecuteDrafts    JobSchedule `envconfig:"EXECUTE_DRAFTS"`
	ExpireDrafts     JobSchedule `envconfig:"EXPIRE_DRAFTS"`
}

// DefaultJobsConfig returns the built-in schedule
func DefaultJobsConfig() JobsConfig {
	return JobsConfig{
		Enabled: true,
		ProcessResponses: JobSchedule{
			Interval: time.Minute, Timeout: 2 * time.Minute, BatchSize: 25, AlertOnFailure: true, Enabled: true,
		},
		SendFollowUps: JobSchedule{
			Interval: 15 * time.Minute, Timeout: 5 * time.Minute, BatchSize: 100, AlertOnFailure: false, Enabled: true,
		},
		SendReminders: JobSchedule{
			Interval: 15 * time.Minute, Timeout: 5 * time.Minute, BatchSize: 100, AlertOnFailure: false, Enabled: true,
		},
		CheckNoShows: JobSchedule{
			Interval: 10 * time.Minute, Timeout: 5 * time.Minute, BatchSize: 100, AlertOnFailure: false, Enabled: true,
		},
		ExecuteDrafts: JobSchedule{
			Interval: 30 * time.Second, Timeout: 2 * time.Minute, BatchSize: 20, AlertOnFailure: true, Enabled: true,
		},
		ExpireDrafts: JobSchedule{
			Interval: time.Hour, Timeout: time.Minute, BatchSize: 500, AlertOnFailure: false, Enabled: true,
		},
	}
}
