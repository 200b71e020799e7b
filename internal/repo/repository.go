package repo

import (
	"context"

	"github.com/hamed0406/hostwatch/internal/domain"
)

// StatusStore holds the latest monitor snapshot. The monitor is the only
// writer; readers (the status endpoint) may run concurrently.
type StatusStore interface {
	Save(ctx context.Context, s domain.Status) error
	// Load returns ok=false until the first Save.
	Load(ctx context.Context) (s domain.Status, ok bool, err error)
}
