package probe

import "context"

// CheckResult is the unified result of a single probe.
//
// Fields:
//   - Success: the only field callers should branch on. Timeouts, refused
//     connections and DNS failures all collapse to false.
//   - StatusCode: HTTP status code when available; 0 for everything else.
//   - Attempts: how many checks produced this result (1 unless retried).
type CheckResult struct {
	Name       string  `json:"name"`
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	LatencyMS  float64 `json:"latency_ms,omitempty"`
	StatusCode int     `json:"status_code,omitempty"`
	Attempts   int     `json:"attempts,omitempty"`
}

// Checker performs a single reachability check against an address.
// Implementations bound the check by their own timeout and by ctx.
type Checker interface {
	Check(ctx context.Context, address string) CheckResult
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, address string) CheckResult

func (f CheckerFunc) Check(ctx context.Context, address string) CheckResult {
	return f(ctx, address)
}
