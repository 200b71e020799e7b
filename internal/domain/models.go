package domain

import (
	"fmt"
	"time"
)

// Phase is the monitor's state-machine phase.
type Phase int

const (
	PhasePolling Phase = iota
	PhaseConfirmingDown
	PhaseSustainedOutage
	PhaseHalted
)

var phaseNames = [...]string{"polling", "confirming_down", "sustained_outage", "halted"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for i, n := range phaseNames {
		if n == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(b))
}

// Status is a point-in-time snapshot of the monitor, published after every
// step. Only the latest one is kept.
type Status struct {
	Phase           Phase      `json:"phase"`
	Target          string     `json:"target"`
	Reference       string     `json:"reference"`
	Attempts        int        `json:"attempts"`
	OfflineSeconds  int64      `json:"offline_seconds"`
	OutageID        string     `json:"outage_id,omitempty"`
	OutageStartedAt *time.Time `json:"outage_started_at,omitempty"`
	LastCheckUp     bool       `json:"last_check_up"`
	LastCheckAt     time.Time  `json:"last_check_at"`
	LastMessage     string     `json:"last_message,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
