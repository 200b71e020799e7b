package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/hostwatch/internal/clock"
	"github.com/hamed0406/hostwatch/internal/domain"
	"github.com/hamed0406/hostwatch/internal/notify"
	"github.com/hamed0406/hostwatch/internal/probe"
	"github.com/hamed0406/hostwatch/internal/repo/memory"
)

// --- fakes ---

// scripted answers from results in order, then fallback forever.
type scripted struct {
	results  []bool
	fallback bool
	calls    int
	addrs    []string
}

func (s *scripted) Check(_ context.Context, addr string) probe.CheckResult {
	ok := s.fallback
	if s.calls < len(s.results) {
		ok = s.results[s.calls]
	}
	s.calls++
	s.addrs = append(s.addrs, addr)
	msg := "timeout"
	if ok {
		msg = "echo reply"
	}
	return probe.CheckResult{Success: ok, Message: msg, Attempts: 1}
}

func repeat(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}

type recNotifier struct{ msgs []string }

func (r *recNotifier) Notify(_ context.Context, msg string) { r.msgs = append(r.msgs, msg) }

func (r *recNotifier) count(substr string) int {
	n := 0
	for _, m := range r.msgs {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}

type sleeps struct {
	calls       []time.Duration
	cancelAfter int
	cancel      context.CancelFunc
}

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	if s.cancel != nil && len(s.calls) >= s.cancelAfter {
		s.cancel()
	}
	return ctx.Err()
}

type fixture struct {
	m      *Monitor
	target *scripted
	ref    *scripted
	notes  *recNotifier
	sleeps *sleeps
	out    *bytes.Buffer
}

func testConfig() Config {
	return Config{
		Target:          "10.0.0.5",
		Reference:       "8.8.8.8",
		PollInterval:    10 * time.Second,
		MaxAttempts:     5,
		RetryDelay:      time.Second,
		ReminderCadence: 30 * time.Second,
		Reminder:        ReminderModulo,
	}
}

func newFixture(t *testing.T, cfg Config, target, ref *scripted, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{target: target, ref: ref, notes: &recNotifier{}, sleeps: &sleeps{}, out: &bytes.Buffer{}}
	fmtr, err := clock.NewFormatter("UTC", "")
	require.NoError(t, err)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	base := []Option{
		WithSleep(f.sleeps.sleep),
		WithClock(fmtr.WithNow(func() time.Time { return fixed })),
		WithOutput(f.out),
		WithNow(func() time.Time { return fixed }),
		WithMetrics(nil),
	}
	m, err := New(cfg, target, ref, f.notes, append(base, opts...)...)
	require.NoError(t, err)
	f.m = m
	return f
}

func (f *fixture) steps(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.m.step(context.Background()), "step %d", i+1)
	}
}

// runOutage drives a confirmed outage of k failed outage probes followed by
// recovery and returns the notifications sent.
func runOutage(t *testing.T, cfg Config, k int) *fixture {
	t.Helper()
	target := &scripted{results: append(repeat(false, cfg.MaxAttempts+k), true)}
	f := newFixture(t, cfg, target, &scripted{fallback: true})
	f.steps(t, 2+k+1) // poll, confirm, k outage iterations, recovery
	require.Equal(t, domain.PhasePolling, f.m.st.phase)
	return f
}

// --- tests ---

func TestPolling_AllFailPerformsExactlyMaxAttempts(t *testing.T) {
	for _, n := range []int{1, 3, 5, 8} {
		t.Run(fmt.Sprintf("attempts=%d", n), func(t *testing.T) {
			cfg := testConfig()
			cfg.MaxAttempts = n
			f := newFixture(t, cfg, &scripted{}, &scripted{fallback: true})

			f.steps(t, 1)

			assert.Equal(t, n, f.target.calls)
			assert.Equal(t, domain.PhaseConfirmingDown, f.m.st.phase)
			assert.Equal(t, n, f.m.st.attempts)
			assert.Equal(t, 0, f.ref.calls, "reference is only probed once confirming")
			assert.Empty(t, f.notes.msgs)
			// short delay between attempts, never the full interval
			assert.Equal(t, repeat(true, n-1), durationsEqual(f.sleeps.calls, time.Second))
		})
	}
}

func durationsEqual(ds []time.Duration, want time.Duration) []bool {
	out := make([]bool, len(ds))
	for i, d := range ds {
		out[i] = d == want
	}
	return out
}

func TestPolling_AnySuccessStaysPolling(t *testing.T) {
	f := newFixture(t, testConfig(), &scripted{results: []bool{false, false, true}}, &scripted{fallback: true})

	f.steps(t, 1)

	assert.Equal(t, domain.PhasePolling, f.m.st.phase)
	assert.Equal(t, 3, f.target.calls)
	assert.Equal(t, 3, f.m.st.attempts)
	assert.Empty(t, f.notes.msgs, "no unreachable notification")
	assert.Equal(t, []time.Duration{time.Second, time.Second, 10 * time.Second}, f.sleeps.calls)
	assert.Equal(t, "2025-01-02 03:04:05: Host is online.\n", f.out.String())

	// the attempt counter resets every cycle
	f.target.results = append(f.target.results, true)
	f.steps(t, 1)
	assert.Equal(t, 1, f.m.st.attempts)
}

func TestConfirmingDown_ReferenceDownHalts(t *testing.T) {
	f := newFixture(t, testConfig(), &scripted{}, &scripted{results: []bool{false}})

	f.steps(t, 2)

	assert.Equal(t, domain.PhaseHalted, f.m.st.phase)
	assert.Equal(t, 5, f.target.calls, "target is not probed while confirming")
	assert.Equal(t, 1, f.ref.calls)
	assert.Equal(t, []string{"8.8.8.8"}, f.ref.addrs)
	assert.Empty(t, f.notes.msgs)
	assert.Contains(t, f.out.String(), "Local network is down")
}

func TestConfirmingDown_DependsOnlyOnReference(t *testing.T) {
	// whatever the target would answer now, the reference decides
	for _, targetNow := range []bool{false, true} {
		for _, refUp := range []bool{false, true} {
			results := append(repeat(false, 5), targetNow)
			f := newFixture(t, testConfig(), &scripted{results: results}, &scripted{results: []bool{refUp}})
			f.steps(t, 2)

			want := domain.PhaseHalted
			if refUp {
				want = domain.PhaseSustainedOutage
			}
			assert.Equal(t, want, f.m.st.phase, "target=%v ref=%v", targetNow, refUp)
			assert.Equal(t, 5, f.target.calls)
		}
	}
}

func TestRoundTrip_OutageRemindersRecovery(t *testing.T) {
	// online, then 5 failed attempts, reference up, 7 failed outage probes
	// (70s offline, cadence 30s), then recovery
	results := []bool{true}
	results = append(results, repeat(false, 5+7)...)
	results = append(results, true)
	store := memory.New()
	f := newFixture(t, testConfig(), &scripted{results: results}, &scripted{fallback: true},
		WithStatusStore(store),
		WithOutageID(func() string { return "outage-1" }),
	)

	f.steps(t, 1)
	assert.Equal(t, domain.PhasePolling, f.m.st.phase)

	f.steps(t, 2) // failing poll, confirm
	require.Equal(t, domain.PhaseSustainedOutage, f.m.st.phase)
	require.Len(t, f.notes.msgs, 1)
	assert.Equal(t, "2025-01-02 03:04:05: Host 10.0.0.5 is unreachable after 5 attempts!!!", f.notes.msgs[0])

	st, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.PhaseSustainedOutage, st.Phase)
	assert.Equal(t, "outage-1", st.OutageID)
	assert.NotNil(t, st.OutageStartedAt)

	f.steps(t, 7)
	assert.Equal(t, domain.PhaseSustainedOutage, f.m.st.phase)
	assert.Equal(t, 70*time.Second, f.m.st.offline)
	assert.Equal(t, 2, f.notes.count("Server is still OFFLINE"))
	assert.Equal(t, 1, f.notes.count("Total offline time: 30 seconds"))
	assert.Equal(t, 1, f.notes.count("Total offline time: 60 seconds"))
	assert.Equal(t, 7, strings.Count(f.out.String(), "Server is still OFFLINE"), "every iteration is printed")

	f.steps(t, 1)
	assert.Equal(t, domain.PhasePolling, f.m.st.phase)
	require.Len(t, f.notes.msgs, 4)
	assert.Equal(t, 1, f.notes.count("unreachable after 5 attempts"))
	assert.Equal(t, 1, f.notes.count("back ONLINE"))
	assert.Contains(t, f.notes.msgs[3], "after 70 seconds offline")
	assert.Equal(t, time.Duration(0), f.m.st.offline)

	st, _, _ = store.Load(context.Background())
	assert.Equal(t, domain.PhasePolling, st.Phase)
	assert.Empty(t, st.OutageID)
	assert.True(t, st.LastCheckUp)
}

func TestReminderCount_Modulo(t *testing.T) {
	cases := []struct {
		interval, cadence time.Duration
		k                 int
	}{
		{10 * time.Second, 30 * time.Second, 7},
		{10 * time.Second, 30 * time.Second, 2},
		{10 * time.Second, 30 * time.Minute, 179},
		{10 * time.Second, 30 * time.Minute, 180},
		{10 * time.Second, 30 * time.Minute, 360},
		{5 * time.Second, 15 * time.Second, 3},
		{10 * time.Second, 10 * time.Second, 4},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("I=%s C=%s k=%d", c.interval, c.cadence, c.k), func(t *testing.T) {
			cfg := testConfig()
			cfg.PollInterval = c.interval
			cfg.ReminderCadence = c.cadence
			f := runOutage(t, cfg, c.k)

			want := int(time.Duration(c.k) * c.interval / c.cadence)
			assert.Equal(t, want, f.notes.count("Server is still OFFLINE"))
			assert.Len(t, f.notes.msgs, want+2, "unreachable + reminders + recovery")
		})
	}
}

func TestReminderCount_NonDividingInterval(t *testing.T) {
	cfg := testConfig()
	cfg.PollInterval = 7 * time.Second
	cfg.ReminderCadence = 30 * time.Second

	// 10 probes: offline 7s..70s never hits a multiple of 30
	f := runOutage(t, cfg, 10)
	assert.Equal(t, 0, f.notes.count("Server is still OFFLINE"))

	cfg.Reminder = ReminderElapsed
	f = runOutage(t, cfg, 10)
	assert.Equal(t, 2, f.notes.count("Server is still OFFLINE"))
	assert.Equal(t, 1, f.notes.count("Total offline time: 35 seconds"))
	assert.Equal(t, 1, f.notes.count("Total offline time: 70 seconds"))
}

func TestNotifierFailure_DoesNotStopTransitions(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sink := notify.NewBestEffort(notify.NotifierFunc(func(context.Context, string) error {
		return errors.New("sink down")
	}), time.Second, zap.New(core))

	results := append(repeat(false, 5+3), true)
	target := &scripted{results: results}
	cfg := testConfig()
	fmtr, _ := clock.NewFormatter("UTC", "")
	sl := &sleeps{}
	m, err := New(cfg, target, &scripted{fallback: true}, sink,
		WithSleep(sl.sleep), WithClock(fmtr), WithOutput(&bytes.Buffer{}), WithMetrics(nil))
	require.NoError(t, err)

	for i := 0; i < 2+3+1; i++ {
		require.NoError(t, m.step(context.Background()))
	}
	assert.Equal(t, domain.PhasePolling, m.st.phase)
	// unreachable, reminder at 30s, recovery
	assert.Equal(t, 3, logs.FilterMessage("notify_failed").Len())
}

func TestRun_HaltReturnsSentinel(t *testing.T) {
	f := newFixture(t, testConfig(), &scripted{}, &scripted{})

	err := f.m.Run(context.Background())

	assert.ErrorIs(t, err, ErrLocalNetworkDown)
	assert.Equal(t, domain.PhaseHalted, f.m.st.phase)
	assert.Equal(t, 1, f.ref.calls)
}

func TestRun_CancelStopsOutageLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, testConfig(), &scripted{}, &scripted{fallback: true})
	// 4 retry pauses while polling, then outage pauses
	f.sleeps.cancel = cancel
	f.sleeps.cancelAfter = 6

	err := f.m.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.PhaseSustainedOutage, f.m.st.phase)
	assert.Equal(t, 5+2, f.target.calls)
	assert.Equal(t, 20*time.Second, f.m.st.offline)
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newFixture(t, testConfig(), &scripted{fallback: true}, &scripted{fallback: true})

	assert.ErrorIs(t, f.m.Run(ctx), context.Canceled)
	assert.Equal(t, 0, f.target.calls)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 0
	cfg.PollInterval = 0
	_, err := New(cfg, &scripted{}, &scripted{}, &recNotifier{})
	require.Error(t, err)

	cfg = testConfig()
	cfg.ReminderCadence = time.Second
	_, err = New(cfg, &scripted{}, &scripted{}, &recNotifier{})
	require.Error(t, err)

	_, err = New(testConfig(), nil, &scripted{}, &recNotifier{})
	require.Error(t, err)

	_, err = New(testConfig(), &scripted{}, &scripted{}, nil)
	require.Error(t, err)
}

func TestRun_LogsLifecycle(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := newFixture(t, testConfig(), &scripted{}, &scripted{}, WithLogger(zap.New(core)))

	_ = f.m.Run(context.Background())

	assert.Equal(t, 1, logs.FilterMessage("monitor_started").Len())
	assert.Equal(t, 1, logs.FilterMessage("local_network_down").Len())
	assert.Equal(t, 1, logs.FilterMessage("monitor_halted").Len())
	changes := logs.FilterMessage("phase_changed").All()
	require.Len(t, changes, 2)
	assert.Equal(t, "confirming_down", changes[0].ContextMap()["to"])
	assert.Equal(t, "halted", changes[1].ContextMap()["to"])
}
