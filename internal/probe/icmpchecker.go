package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	ping "github.com/digineo/go-ping"
)

// ICMPChecker sends one ICMP echo request per check over a shared raw
// socket. Creating it needs CAP_NET_RAW (or root) on Linux.
type ICMPChecker struct {
	Timeout  time.Duration
	Resolver *net.Resolver
	pinger   *ping.Pinger
}

func NewICMPChecker(timeout time.Duration) (*ICMPChecker, error) {
	p, err := ping.New("0.0.0.0", "")
	if err != nil {
		return nil, fmt.Errorf("open icmp socket: %w", err)
	}
	return &ICMPChecker{Timeout: timeout, pinger: p}, nil
}

func (c *ICMPChecker) Check(ctx context.Context, address string) CheckResult {
	res := resolveIPv4(ctx, c.Resolver, address)
	if res.Addr == nil {
		return CheckResult{Name: "ICMP", Success: false, Message: res.Class, Attempts: 1}
	}

	timeout := c.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return CheckResult{Name: "ICMP", Success: false, Message: context.DeadlineExceeded.Error(), Attempts: 1}
	}

	rtt, err := c.pinger.Ping(res.Addr, timeout)
	if err != nil {
		return CheckResult{Name: "ICMP", Success: false, Message: err.Error(), Attempts: 1}
	}
	return CheckResult{
		Name:      "ICMP",
		Success:   true,
		Message:   "echo reply from " + res.Addr.String(),
		LatencyMS: float64(rtt) / float64(time.Millisecond),
		Attempts:  1,
	}
}

func (c *ICMPChecker) Close() error {
	if c.pinger != nil {
		c.pinger.Close()
	}
	return nil
}
