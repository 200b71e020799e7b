package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// Resolution classes, reported in CheckResult.Message when a name does not
// resolve to an IPv4 address.
const (
	ClassResolves    = "RESOLVES"
	ClassNXDomain    = "NXDOMAIN"
	ClassNoARecord   = "NO_A_RECORD"
	ClassServFail    = "SERVFAIL_or_TIMEOUT"
	ClassInvalidName = "INVALID_NAME"
)

var dnsTimeout = 3 * time.Second

type Resolution struct {
	Host  string
	Addr  *net.IPAddr
	Class string
	Err   error
}

// resolveIPv4 turns host into an IPv4 address. IP literals skip DNS.
func resolveIPv4(ctx context.Context, r *net.Resolver, host string) Resolution {
	res := Resolution{Host: strings.TrimSpace(host)}
	if res.Host == "" || strings.ContainsAny(res.Host, "/ ") {
		res.Class = ClassInvalidName
		res.Err = errors.New("invalid host name")
		return res
	}
	if ip := net.ParseIP(res.Host); ip != nil {
		if ip.To4() == nil {
			res.Class = ClassNoARecord
			res.Err = errors.New("not an IPv4 address")
			return res
		}
		res.Addr = &net.IPAddr{IP: ip}
		res.Class = ClassResolves
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()
	if r == nil {
		r = net.DefaultResolver
	}

	ips, err := r.LookupIP(ctx, "ip4", res.Host)
	if err != nil {
		res.Err = err
		res.Class = ClassServFail
		var de *net.DNSError
		if errors.As(err, &de) && de.IsNotFound {
			res.Class = ClassNXDomain
		}
		return res
	}
	if len(ips) == 0 {
		res.Class = ClassNoARecord
		res.Err = errors.New("no A record")
		return res
	}
	res.Addr = &net.IPAddr{IP: ips[0]}
	res.Class = ClassResolves
	return res
}
