package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName string `env:"DB_NAME" envDefault:"courtmatch.db"`
	Port   string `env:"PORT" envDefault:"8080"`

	TursoPrimaryURL string `env:"TURSO_PRIMARY_URL"`
	TursoAuthToken  string `env:"TURSO_AUTH_TOKEN"`

	// Notifier selects the notification backend: "log", "slack" or "pubsub".
	Notifier        string `env:"NOTIFIER" envDefault:"log"`
	NotifyQueueSize int    `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	SlackToken      string `env:"SLACK_BOT_TOKEN"`
	SlackChannelID  string `env:"SLACK_CHANNEL_ID"`
	SlackDryRun     bool   `env:"SLACK_DRY_RUN" envDefault:"false"`
	ProjectID       string `env:"GCP_PROJECT"`
	PubSubTopic     string `env:"PUBSUB_TOPIC" envDefault:"courtmatch-notifications"`

	SinglesKFactor float64 `env:"SINGLES_K_FACTOR" envDefault:"32"`
	DoublesKFactor float64 `env:"DOUBLES_K_FACTOR" envDefault:"32"`
	InitialRating  int     `env:"INITIAL_RATING" envDefault:"1000"`

	LockTTL                    time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	SweepInterval              time.Duration `env:"SWEEP_INTERVAL" envDefault:"15s"`
	AutoConfirmSinglesWaitlist bool          `env:"AUTO_CONFIRM_SINGLES_WAITLIST" envDefault:"false"`
	RequiredSlotsSingles       int           `env:"REQUIRED_SLOTS_SINGLES" envDefault:"1"`
	RequiredSlotsDoubles       int           `env:"REQUIRED_SLOTS_DOUBLES" envDefault:"2"`

	FreeCancellationWindow time.Duration `env:"FREE_CANCELLATION_WINDOW" envDefault:"2160h"`
	FreeCancellations      int           `env:"FREE_CANCELLATIONS" envDefault:"1"`
	// CancellationPenalty is the rating points charged per over-quota cancellation.
	CancellationPenalty    float64       `env:"CANCELLATION_PENALTY" envDefault:"0"`

	CacheTTL         time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	PrivilegedActors []string      `env:"PRIVILEGED_ACTORS" envSeparator:","`
}
