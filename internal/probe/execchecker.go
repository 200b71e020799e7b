package probe

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// ExecChecker shells out to the system ping for a single echo request. It
// needs no raw-socket privilege, unlike ICMPChecker.
type ExecChecker struct {
	Timeout time.Duration
	GOOS    string // defaults to runtime.GOOS
	Command string // defaults to "ping"
}

func NewExecChecker(timeout time.Duration) *ExecChecker {
	return &ExecChecker{Timeout: timeout, GOOS: runtime.GOOS, Command: "ping"}
}

func (c *ExecChecker) Check(ctx context.Context, address string) CheckResult {
	address = strings.TrimSpace(address)
	if address == "" || strings.HasPrefix(address, "-") {
		return CheckResult{Name: "EXEC", Success: false, Message: ClassInvalidName, Attempts: 1}
	}
	goos := c.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	name := c.Command
	if name == "" {
		name = "ping"
	}

	// the command's own deadline flag is coarse, ctx is the hard bound
	ctx, cancel := context.WithTimeout(ctx, c.Timeout+time.Second)
	defer cancel()

	start := time.Now()
	out, err := exec.CommandContext(ctx, name, pingArgs(goos, address, c.Timeout)...).CombinedOutput()
	latency := time.Since(start).Seconds() * 1000
	if err != nil {
		msg := err.Error()
		if line := lastLine(out); line != "" {
			msg += ": " + line
		}
		return CheckResult{Name: "EXEC", Success: false, Message: msg, LatencyMS: latency, Attempts: 1}
	}
	return CheckResult{Name: "EXEC", Success: true, Message: lastLine(out), LatencyMS: latency, Attempts: 1}
}

// pingArgs builds single-packet ping arguments for goos.
func pingArgs(goos, address string, timeout time.Duration) []string {
	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	switch goos {
	case "windows":
		ms := timeout.Milliseconds()
		if ms < 1 {
			ms = 1000
		}
		return []string{"-n", "1", "-w", strconv.FormatInt(ms, 10), address}
	case "darwin", "freebsd", "netbsd", "openbsd", "dragonfly":
		// -W is milliseconds on the BSDs; -t is a whole-run deadline in seconds
		return []string{"-c", "1", "-t", strconv.Itoa(secs), address}
	default:
		return []string{"-c", "1", "-W", strconv.Itoa(secs), address}
	}
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
