package probe

import (
	"context"
	"net"
	"strings"
	"time"
)

// TCPChecker reports an address reachable when a TCP handshake completes.
// Addresses without a port use DefaultPort.
type TCPChecker struct {
	Timeout     time.Duration
	DefaultPort string
}

func NewTCPChecker(timeout time.Duration) *TCPChecker {
	return &TCPChecker{Timeout: timeout, DefaultPort: "443"}
}

func (c *TCPChecker) Check(ctx context.Context, address string) CheckResult {
	addr := withPort(strings.TrimSpace(address), c.DefaultPort)
	d := net.Dialer{Timeout: c.Timeout}

	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", addr)
	latency := time.Since(start).Seconds() * 1000
	if err != nil {
		return CheckResult{Name: "TCP", Success: false, Message: err.Error(), LatencyMS: latency, Attempts: 1}
	}
	_ = conn.Close()
	return CheckResult{Name: "TCP", Success: true, Message: "connected " + addr, LatencyMS: latency, Attempts: 1}
}

func withPort(address, port string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(strings.Trim(address, "[]"), port)
}
