package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/hostwatch/internal/domain"
	"github.com/hamed0406/hostwatch/internal/repo"
)

var _ repo.StatusStore = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	status domain.Status
	set    bool
}

func New() *Store {
	return &Store{}
}

func (m *Store) Save(ctx context.Context, s domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	m.status = detach(s)
	m.set = true
	return nil
}

func (m *Store) Load(ctx context.Context) (domain.Status, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return detach(m.status), m.set, nil
}

// detach gives s its own copy of pointer fields.
func detach(s domain.Status) domain.Status {
	if s.OutageStartedAt != nil {
		t := *s.OutageStartedAt
		s.OutageStartedAt = &t
	}
	return s
}
