package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Notifier delivers one message to the external sink.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

type NotifierFunc func(ctx context.Context, message string) error

func (f NotifierFunc) Send(ctx context.Context, message string) error { return f(ctx, message) }

// Nop drops every message. Used when no sink is configured.
type Nop struct{}

func (Nop) Send(context.Context, string) error { return nil }

// BestEffort bounds each Send by Timeout and swallows failures after logging
// them. There are no retries: a failed notification is not actionable here.
type BestEffort struct {
	Notifier Notifier
	Timeout  time.Duration
	Logger   *zap.Logger
	OnResult func(err error) // optional, e.g. metrics
}

// DefaultNotifyTimeout bounds a notification when no timeout is configured.
const DefaultNotifyTimeout = 10 * time.Second

func NewBestEffort(n Notifier, timeout time.Duration, logger *zap.Logger) *BestEffort {
	if n == nil {
		n = Nop{}
	}
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BestEffort{Notifier: n, Timeout: timeout, Logger: logger}
}

// Notify never returns an error and never blocks longer than Timeout,
// provided the underlying Notifier honours ctx.
func (b *BestEffort) Notify(ctx context.Context, message string) {
	cctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	err := b.Notifier.Send(cctx, message)
	if b.OnResult != nil {
		b.OnResult(err)
	}
	if err != nil {
		b.Logger.Warn("notify_failed", zap.String("message", message), zap.Error(err))
		return
	}
	b.Logger.Debug("notify_sent", zap.String("message", message))
}
