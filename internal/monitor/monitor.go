package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/hostwatch/internal/clock"
	"github.com/hamed0406/hostwatch/internal/domain"
	"github.com/hamed0406/hostwatch/internal/probe"
	"github.com/hamed0406/hostwatch/internal/repo"
)

// ErrLocalNetworkDown is returned by Run when the reference host was
// unreachable too, so a target outage cannot be told apart from our own.
var ErrLocalNetworkDown = errors.New("local network down: reference host unreachable")

type Config struct {
	Target          string
	Reference       string
	PollInterval    time.Duration
	MaxAttempts     int
	RetryDelay      time.Duration
	ReminderCadence time.Duration
	Reminder        ReminderPolicy
}

func (c Config) validate() error {
	var err error
	if c.Target == "" {
		err = multierr.Append(err, errors.New("target is empty"))
	}
	if c.Reference == "" {
		err = multierr.Append(err, errors.New("reference is empty"))
	}
	if c.PollInterval <= 0 {
		err = multierr.Append(err, errors.New("poll interval must be > 0"))
	}
	if c.MaxAttempts < 1 {
		err = multierr.Append(err, errors.New("max attempts must be >= 1"))
	}
	if c.RetryDelay < 0 {
		err = multierr.Append(err, errors.New("retry delay must be >= 0"))
	}
	if c.ReminderCadence < c.PollInterval {
		err = multierr.Append(err, errors.New("reminder cadence must be >= poll interval"))
	}
	return err
}

// Notifier is the best-effort sink; it must not block indefinitely and
// has nothing to report back.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Labeler renders the timestamp prefix of status lines.
type Labeler interface {
	Label() string
}

type Option func(*Monitor)

func WithLogger(l *zap.Logger) Option { return func(m *Monitor) { m.log = l } }

func WithSleep(s probe.SleepFunc) Option { return func(m *Monitor) { m.sleep = s } }

func WithClock(c Labeler) Option { return func(m *Monitor) { m.clock = c } }

func WithOutput(w io.Writer) Option { return func(m *Monitor) { m.out = w } }

func WithStatusStore(s repo.StatusStore) Option { return func(m *Monitor) { m.status = s } }

func WithMetrics(mt *Metrics) Option { return func(m *Monitor) { m.metrics = mt } }

func WithNow(now func() time.Time) Option { return func(m *Monitor) { m.now = now } }

func WithOutageID(f func() string) Option { return func(m *Monitor) { m.newID = f } }

// Monitor is the availability state machine. It is not safe for concurrent
// use; the status store is the only thing other goroutines should read.
type Monitor struct {
	cfg       Config
	target    probe.Checker
	reference probe.Checker
	retry     *probe.RetryChecker
	notifier  Notifier

	log     *zap.Logger
	sleep   probe.SleepFunc
	clock   Labeler
	out     io.Writer
	status  repo.StatusStore
	metrics *Metrics
	now     func() time.Time
	newID   func() string

	st state
}

type state struct {
	phase        domain.Phase
	attempts     int
	offline      time.Duration
	lastReminder time.Duration // offline value when the last reminder went out
	outageID     string
	outageStart  time.Time
	lastUp       bool
	lastCheckAt  time.Time
	lastMessage  string
}

// New builds a Monitor in the Polling phase. target probes cfg.Target and
// reference probes cfg.Reference; they may be the same Checker.
func New(cfg Config, target, reference probe.Checker, n Notifier, opts ...Option) (*Monitor, error) {
	err := cfg.validate()
	if target == nil || reference == nil {
		err = multierr.Append(err, errors.New("target and reference checkers are required"))
	}
	if n == nil {
		err = multierr.Append(err, errors.New("notifier is required"))
	}
	if err != nil {
		return nil, fmt.Errorf("monitor config: %w", err)
	}
	if cfg.Reminder == "" {
		cfg.Reminder = ReminderModulo
	}

	utc, _ := clock.NewFormatter("UTC", "")
	m := &Monitor{
		cfg:       cfg,
		target:    target,
		reference: reference,
		notifier:  n,
		log:       zap.NewNop(),
		sleep:     probe.Sleep,
		clock:     utc,
		out:       os.Stdout,
		metrics:   defaultMetrics(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	m.retry = &probe.RetryChecker{
		Inner:    target,
		Attempts: cfg.MaxAttempts,
		Backoff:  cfg.RetryDelay,
		Sleep:    m.sleep,
		OnResult: m.onAttempt,
	}
	m.st.phase = domain.PhasePolling
	return m, nil
}

// Run drives the state machine until ctx is done (returns ctx.Err()) or
// the monitor halts (returns ErrLocalNetworkDown).
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor_started",
		zap.String("target", m.cfg.Target),
		zap.String("reference", m.cfg.Reference),
		zap.Duration("poll_interval", m.cfg.PollInterval),
		zap.Int("max_attempts", m.cfg.MaxAttempts),
		zap.Duration("retry_delay", m.cfg.RetryDelay),
		zap.Duration("reminder_cadence", m.cfg.ReminderCadence),
		zap.String("reminder_policy", string(m.cfg.Reminder)),
	)
	m.publish(ctx)

	for {
		if m.st.phase == domain.PhaseHalted {
			m.log.Info("monitor_halted")
			return ErrLocalNetworkDown
		}
		err := ctx.Err()
		if err == nil {
			err = m.step(ctx)
		}
		if err != nil {
			m.log.Info("monitor_stopped", zap.Stringer("phase", m.st.phase), zap.Error(err))
			return err
		}
	}
}

// step runs one iteration of the current phase. It only fails when ctx is
// done; probe and notify failures are absorbed.
func (m *Monitor) step(ctx context.Context) error {
	switch m.st.phase {
	case domain.PhasePolling:
		return m.poll(ctx)
	case domain.PhaseConfirmingDown:
		return m.confirmDown(ctx)
	case domain.PhaseSustainedOutage:
		return m.watchOutage(ctx)
	default:
		return nil
	}
}

func (m *Monitor) poll(ctx context.Context) error {
	m.st.attempts = 0
	res := m.retry.Check(ctx, m.cfg.Target)
	m.st.attempts = res.Attempts
	m.observe(res)
	if err := ctx.Err(); err != nil {
		return err
	}

	if res.Success {
		m.print("Host is online.")
		m.log.Debug("target_online",
			zap.String("target", m.cfg.Target),
			zap.Int("attempts", res.Attempts),
			zap.Float64("latency_ms", res.LatencyMS),
		)
		return m.pause(ctx)
	}

	m.log.Warn("target_unreachable",
		zap.String("target", m.cfg.Target),
		zap.Int("attempts", res.Attempts),
		zap.String("reason", res.Message),
	)
	m.transition(domain.PhaseConfirmingDown)
	m.publish(ctx)
	return nil
}

// confirmDown probes only the reference host.
func (m *Monitor) confirmDown(ctx context.Context) error {
	res := m.reference.Check(ctx, m.cfg.Reference)
	m.metrics.probe(ctx, roleReference, res.Success)
	if err := ctx.Err(); err != nil {
		return err
	}

	if !res.Success {
		m.print(fmt.Sprintf("Local network is down: reference %s is unreachable too. Stopping monitor.", m.cfg.Reference))
		m.log.Error("local_network_down",
			zap.String("reference", m.cfg.Reference),
			zap.String("reason", res.Message),
		)
		m.transition(domain.PhaseHalted)
		m.publish(ctx)
		return nil
	}

	m.st.offline = 0
	m.st.lastReminder = 0
	m.st.outageID = m.newID()
	m.st.outageStart = m.now()
	m.metrics.outageStarted(ctx)
	m.log.Warn("outage_confirmed",
		zap.String("outage_id", m.st.outageID),
		zap.String("target", m.cfg.Target),
		zap.Int("attempts", m.st.attempts),
		zap.Float64("reference_latency_ms", res.LatencyMS),
	)
	m.announce(ctx, "unreachable", fmt.Sprintf("Host %s is unreachable after %d attempts!!!", m.cfg.Target, m.st.attempts))
	m.transition(domain.PhaseSustainedOutage)
	m.publish(ctx)
	return nil
}

// watchOutage is one iteration of the sustained-outage loop.
func (m *Monitor) watchOutage(ctx context.Context) error {
	res := m.target.Check(ctx, m.cfg.Target)
	m.metrics.probe(ctx, roleTarget, res.Success)
	m.observe(res)
	if err := ctx.Err(); err != nil {
		return err
	}

	if res.Success {
		offline := m.st.offline
		m.metrics.outageEnded(ctx, offline)
		m.log.Info("target_recovered",
			zap.String("outage_id", m.st.outageID),
			zap.Duration("offline", offline),
		)
		m.announce(ctx, "recovered", fmt.Sprintf("Server is back ONLINE after %d seconds offline.", seconds(offline)))
		m.st.offline = 0
		m.st.lastReminder = 0
		m.st.outageID = ""
		m.st.outageStart = time.Time{}
		m.transition(domain.PhasePolling)
		return m.pause(ctx)
	}

	m.st.offline += m.cfg.PollInterval
	msg := fmt.Sprintf("Server is still OFFLINE. Total offline time: %d seconds", seconds(m.st.offline))
	remind := m.cfg.Reminder.Due(m.st.offline, m.st.lastReminder, m.cfg.ReminderCadence)
	if remind {
		m.st.lastReminder = m.st.offline
		m.announce(ctx, "reminder", msg)
	} else {
		m.print(msg)
	}
	m.log.Info("target_still_offline",
		zap.String("outage_id", m.st.outageID),
		zap.Duration("offline", m.st.offline),
		zap.Bool("reminder", remind),
		zap.String("reason", res.Message),
	)
	return m.pause(ctx)
}

func (m *Monitor) onAttempt(attempt int, r probe.CheckResult) {
	m.metrics.probe(context.Background(), roleTarget, r.Success)
	m.log.Debug("probe_attempt",
		zap.String("target", m.cfg.Target),
		zap.Int("attempt", attempt),
		zap.Bool("up", r.Success),
		zap.String("message", r.Message),
	)
}

func (m *Monitor) observe(r probe.CheckResult) {
	m.st.lastUp = r.Success
	m.st.lastCheckAt = m.now()
}

// pause publishes the snapshot and sleeps one poll interval.
func (m *Monitor) pause(ctx context.Context) error {
	m.publish(ctx)
	return m.sleep(ctx, m.cfg.PollInterval)
}

func (m *Monitor) transition(to domain.Phase) {
	from := m.st.phase
	if from == to {
		return
	}
	m.st.phase = to
	m.log.Info("phase_changed", zap.Stringer("from", from), zap.Stringer("to", to))
}

// print writes a timestamped line to the local output.
func (m *Monitor) print(msg string) string {
	line := m.clock.Label() + ": " + msg
	fmt.Fprintln(m.out, line)
	m.st.lastMessage = msg
	return line
}

// announce prints msg and hands the same line to the notifier.
func (m *Monitor) announce(ctx context.Context, kind, msg string) {
	line := m.print(msg)
	m.notifier.Notify(ctx, line)
	m.metrics.notification(ctx, kind)
}

func (m *Monitor) snapshot() domain.Status {
	s := domain.Status{
		Phase:          m.st.phase,
		Target:         m.cfg.Target,
		Reference:      m.cfg.Reference,
		Attempts:       m.st.attempts,
		OfflineSeconds: seconds(m.st.offline),
		OutageID:       m.st.outageID,
		LastCheckUp:    m.st.lastUp,
		LastCheckAt:    m.st.lastCheckAt,
		LastMessage:    m.st.lastMessage,
		UpdatedAt:      m.now(),
	}
	if !m.st.outageStart.IsZero() {
		t := m.st.outageStart
		s.OutageStartedAt = &t
	}
	return s
}

func (m *Monitor) publish(ctx context.Context) {
	if m.status == nil {
		return
	}
	if err := m.status.Save(ctx, m.snapshot()); err != nil {
		m.log.Warn("status_save_failed", zap.Error(err))
	}
}

func seconds(d time.Duration) int64 { return int64(d / time.Second) }
