package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Cron       CronConfig       `yaml:"cron"`
	Booking    BookingConfig    `yaml:"booking"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Mail       MailConfig       `yaml:"mail"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// AuthConfig holds the settings used to verify identity-provider tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// CronConfig gates the internal batch endpoints and drives the optional in-process runner.
type CronConfig struct {
	SharedSecret            string        `yaml:"shared_secret"`
	Enabled                 bool          `yaml:"enabled"`
	SweepIntervalSeconds    int           `yaml:"sweep_interval_seconds"`
	AllocateIntervalSeconds int           `yaml:"allocate_interval_seconds"`
	SweepInterval           time.Duration `yaml:"-"`
	AllocateInterval        time.Duration `yaml:"-"`
}

// BookingConfig holds the session lifecycle tunables.
type BookingConfig struct {
	Timezone               string `yaml:"timezone"`
	GraceMinutes           int    `yaml:"grace_minutes"`
	ChatWindowHours        int    `yaml:"chat_window_hours"`
	ProposalLeadMinutes    int    `yaml:"proposal_lead_minutes"`
	ReminderLeadMinutes    int    `yaml:"reminder_lead_minutes"`
	AllocationBatchSize    int    `yaml:"allocation_batch_size"`
	AllocationQueueSize    int    `yaml:"allocation_queue_size"`
	SweepBatchSize         int    `yaml:"sweep_batch_size"`
	DefaultDurationMinutes int    `yaml:"default_duration_minutes"`
	MinDurationMinutes     int    `yaml:"min_duration_minutes"`
	MaxDurationMinutes     int    `yaml:"max_duration_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// MailConfig points at the transactional email provider.
type MailConfig struct {
	Endpoint         string `yaml:"endpoint"`
	APIKey           string `yaml:"api_key"`
	From             string `yaml:"from"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	BreakerThreshold uint32 `yaml:"breaker_threshold"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path. Secrets may be supplied
// through the environment (or a .env file) and take precedence over the file.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrideString(&cfg.Database.DSN, "DATABASE_DSN")
	overrideString(&cfg.Database.Driver, "DATABASE_DRIVER")
	overrideString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	overrideString(&cfg.Cron.SharedSecret, "CRON_SECRET")
	overrideString(&cfg.Push.PublicKey, "VAPID_PUBLIC_KEY")
	overrideString(&cfg.Push.PrivateKey, "VAPID_PRIVATE_KEY")
	overrideString(&cfg.Mail.APIKey, "MAIL_API_KEY")
	overrideString(&cfg.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Cron.SweepIntervalSeconds <= 0 {
		cfg.Cron.SweepIntervalSeconds = 300
	}
	if cfg.Cron.AllocateIntervalSeconds <= 0 {
		cfg.Cron.AllocateIntervalSeconds = 120
	}
	cfg.Cron.SweepInterval = time.Duration(cfg.Cron.SweepIntervalSeconds) * time.Second
	cfg.Cron.AllocateInterval = time.Duration(cfg.Cron.AllocateIntervalSeconds) * time.Second

	b := &cfg.Booking
	if b.Timezone == "" {
		b.Timezone = "UTC"
	}
	if b.GraceMinutes <= 0 {
		b.GraceMinutes = 15
	}
	if b.ChatWindowHours <= 0 {
		b.ChatWindowHours = 8
	}
	if b.ProposalLeadMinutes <= 0 {
		b.ProposalLeadMinutes = 5
	}
	if b.ReminderLeadMinutes <= 0 {
		b.ReminderLeadMinutes = 60
	}
	if b.AllocationBatchSize <= 0 {
		b.AllocationBatchSize = 50
	}
	if b.AllocationQueueSize <= 0 {
		b.AllocationQueueSize = 100
	}
	if b.SweepBatchSize <= 0 {
		b.SweepBatchSize = 200
	}
	if b.DefaultDurationMinutes <= 0 {
		b.DefaultDurationMinutes = 60
	}
	if b.MinDurationMinutes <= 0 {
		b.MinDurationMinutes = 30
	}
	if b.MaxDurationMinutes <= 0 {
		b.MaxDurationMinutes = 180
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 256
	}

	if cfg.Mail.From == "" {
		cfg.Mail.From = "TutorLink <no-reply@tutorlink.local>"
	}
	if cfg.Mail.TimeoutSeconds <= 0 {
		cfg.Mail.TimeoutSeconds = 10
	}
	if cfg.Mail.BreakerThreshold == 0 {
		cfg.Mail.BreakerThreshold = 5
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
