package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/hostwatch/internal/clock"
	"github.com/hamed0406/hostwatch/internal/monitor"
	"github.com/hamed0406/hostwatch/internal/probe"
)

// EnvPrefix is prepended to every environment key, e.g. HOSTWATCH_TARGET.
const EnvPrefix = "HOSTWATCH"

type Config struct {
	Target    string `yaml:"target" envconfig:"TARGET"`       // host, IP, host:port or URL depending on probe kind
	Reference string `yaml:"reference" envconfig:"REFERENCE"` // known-reliable host used to rule out a local outage

	PollInterval    time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
	MaxAttempts     int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	RetryDelay      time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY"` // short pause between attempts, < PollInterval
	ReminderCadence time.Duration `yaml:"reminder_cadence" envconfig:"REMINDER_CADENCE"`
	ReminderMode    string        `yaml:"reminder_mode" envconfig:"REMINDER_MODE"` // "modulo" | "elapsed"

	ProbeKind          string        `yaml:"probe_kind" envconfig:"PROBE_KIND"`                     // icmp | exec | tcp | http
	ReferenceProbeKind string        `yaml:"reference_probe_kind" envconfig:"REFERENCE_PROBE_KIND"` // empty means ProbeKind
	ProbeTimeout       time.Duration `yaml:"probe_timeout" envconfig:"PROBE_TIMEOUT"`

	NotifyURL     string        `yaml:"notify_url" envconfig:"NOTIFY_URL"`
	NotifyToken   string        `yaml:"notify_token" envconfig:"NOTIFY_TOKEN"`
	NotifyTimeout time.Duration `yaml:"notify_timeout" envconfig:"NOTIFY_TIMEOUT"`

	DisplayTimezone string `yaml:"display_timezone" envconfig:"DISPLAY_TIMEZONE"`
	TimeLayout      string `yaml:"time_layout" envconfig:"TIME_LAYOUT"`

	LogDir   string `yaml:"log_dir" envconfig:"LOG_DIR"`
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	StatusAddr    string   `yaml:"status_addr" envconfig:"STATUS_ADDR"` // empty disables the status endpoint
	StatusAPIKeys []string `yaml:"status_api_keys" envconfig:"STATUS_API_KEYS"`
}

func Default() Config {
	return Config{
		Reference:       "8.8.8.8",
		PollInterval:    10 * time.Second,
		MaxAttempts:     5,
		RetryDelay:      time.Second,
		ReminderCadence: 30 * time.Minute,
		ReminderMode:    string(monitor.ReminderModulo),
		ProbeKind:       string(probe.KindICMP),
		ProbeTimeout:    3 * time.Second,
		NotifyTimeout:   10 * time.Second,
		DisplayTimezone: "Asia/Taipei",
		TimeLayout:      "2006-01-02 15:04:05",
		LogDir:          "logs",
		LogLevel:        "info",
	}
}

// Load builds a Config from defaults, then the YAML file at yamlPath (if
// non-empty), then the dotenv file at envPath (if present), then the process
// environment. Later sources win. The result is not validated.
func Load(yamlPath, envPath string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		b, err := os.ReadFile(yamlPath)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", yamlPath, err)
		}
	}

	if envPath != "" {
		// a missing .env is fine, the real environment may carry everything
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	cfg.Target = strings.TrimSpace(cfg.Target)
	cfg.Reference = strings.TrimSpace(cfg.Reference)
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	if c.Target == "" {
		err = multierr.Append(err, errors.New("target is required"))
	}
	if c.Reference == "" {
		err = multierr.Append(err, errors.New("reference is required"))
	}
	if c.PollInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("poll_interval must be > 0, got %s", c.PollInterval))
	}
	if c.MaxAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("max_attempts must be >= 1, got %d", c.MaxAttempts))
	}
	if c.RetryDelay < 0 || (c.PollInterval > 0 && c.RetryDelay >= c.PollInterval) {
		err = multierr.Append(err, fmt.Errorf("retry_delay must be in [0, poll_interval), got %s", c.RetryDelay))
	}
	if c.ReminderCadence < c.PollInterval {
		err = multierr.Append(err, fmt.Errorf("reminder_cadence (%s) must be >= poll_interval (%s)", c.ReminderCadence, c.PollInterval))
	}
	if _, perr := monitor.ParseReminderPolicy(c.ReminderMode); perr != nil {
		err = multierr.Append(err, perr)
	}
	if _, perr := probe.ParseKind(c.ProbeKind); perr != nil {
		err = multierr.Append(err, perr)
	}
	if c.ReferenceProbeKind != "" {
		if _, perr := probe.ParseKind(c.ReferenceProbeKind); perr != nil {
			err = multierr.Append(err, fmt.Errorf("reference_probe_kind: %w", perr))
		}
	}
	if c.ProbeTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("probe_timeout must be > 0, got %s", c.ProbeTimeout))
	}
	if c.NotifyURL != "" && c.NotifyToken == "" {
		err = multierr.Append(err, errors.New("notify_token is required when notify_url is set"))
	}
	if c.NotifyTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("notify_timeout must be > 0, got %s", c.NotifyTimeout))
	}
	if _, ferr := clock.NewFormatter(c.DisplayTimezone, c.TimeLayout); ferr != nil {
		err = multierr.Append(err, ferr)
	}
	return err
}

// Monitor returns the state-machine settings. Call Validate first.
func (c Config) Monitor() monitor.Config {
	policy, _ := monitor.ParseReminderPolicy(c.ReminderMode)
	return monitor.Config{
		Target:          c.Target,
		Reference:       c.Reference,
		PollInterval:    c.PollInterval,
		MaxAttempts:     c.MaxAttempts,
		RetryDelay:      c.RetryDelay,
		ReminderCadence: c.ReminderCadence,
		Reminder:        policy,
	}
}

// TargetKind and ReferenceKind return the probe variants to build.
func (c Config) TargetKind() probe.Kind {
	k, _ := probe.ParseKind(c.ProbeKind)
	return k
}

func (c Config) ReferenceKind() probe.Kind {
	if c.ReferenceProbeKind == "" {
		return c.TargetKind()
	}
	k, _ := probe.ParseKind(c.ReferenceProbeKind)
	return k
}

// Redacted is safe to log.
func (c Config) Redacted() Config {
	out := c
	if out.NotifyToken != "" {
		out.NotifyToken = "***"
	}
	if len(out.StatusAPIKeys) > 0 {
		out.StatusAPIKeys = []string{fmt.Sprintf("%d keys", len(c.StatusAPIKeys))}
	}
	return out
}
