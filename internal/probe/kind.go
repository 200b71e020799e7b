package probe

import (
	"fmt"
	"strings"
	"time"
)

// Kind names a Checker variant.
type Kind string

const (
	KindICMP Kind = "icmp"
	KindExec Kind = "exec"
	KindTCP  Kind = "tcp"
	KindHTTP Kind = "http"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindICMP, KindExec, KindTCP, KindHTTP:
		return k, nil
	default:
		return "", fmt.Errorf("unknown probe kind %q (want icmp, exec, tcp or http)", s)
	}
}

// New builds the checker for kind. Checkers holding sockets implement
// io.Closer.
func New(kind Kind, timeout time.Duration) (Checker, error) {
	switch kind {
	case KindICMP:
		c, err := NewICMPChecker(timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindExec:
		return NewExecChecker(timeout), nil
	case KindTCP:
		return NewTCPChecker(timeout), nil
	case KindHTTP:
		return NewHTTPChecker(timeout), nil
	default:
		return nil, fmt.Errorf("unknown probe kind %q", kind)
	}
}
