package probe

import (
	"context"
	"time"
)

// SleepFunc blocks for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryChecker runs Inner up to Attempts times, pausing Backoff between
// attempts (not after the last one), and stops at the first success.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
	Sleep    SleepFunc                        // nil means Sleep
	OnResult func(attempt int, r CheckResult) // optional, called after every attempt
}

func (r *RetryChecker) Check(ctx context.Context, target string) CheckResult {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var last CheckResult
	for i := 1; i <= attempts; i++ {
		last = r.Inner.Check(ctx, target)
		last.Attempts = i
		if r.OnResult != nil {
			r.OnResult(i, last)
		}
		if last.Success {
			return last
		}
		if i < attempts {
			if err := sleep(ctx, r.Backoff); err != nil {
				last.Message = last.Message + " (" + err.Error() + ")"
				return last
			}
		}
	}
	// annotate message so you can see it was a retry series
	last.Message = last.Message + " (after retries)"
	return last
}
