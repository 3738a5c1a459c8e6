package webhook

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrInvalidTarget marks a URL that is not absolute HTTP or HTTPS.
	ErrInvalidTarget = errors.New("webhook: target must be an absolute http(s) url")

	// ErrForbiddenTarget marks a URL resolving to loopback, link-local,
	// or private address space.
	ErrForbiddenTarget = errors.New("webhook: target resolves to a forbidden address")
)

// ValidateTarget enforces the SSRF policy on a webhook URL. The same check
// runs at submission time and again defensively at delivery time; DNS may
// change between the two.
func ValidateTarget(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidTarget, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: no host", ErrInvalidTarget)
	}

	// Literal IPs are checked directly; hostnames are resolved and every
	// returned address must be allowed.
	if ip := net.ParseIP(host); ip != nil {
		if forbiddenIP(ip) {
			return fmt.Errorf("%w: %s", ErrForbiddenTarget, ip)
		}
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("%w: resolving %q: %v", ErrInvalidTarget, host, err)
	}
	for _, ip := range ips {
		if forbiddenIP(ip) {
			return fmt.Errorf("%w: %s resolves to %s", ErrForbiddenTarget, host, ip)
		}
	}
	return nil
}

// forbiddenIP reports whether an address falls in loopback, link-local,
// private (RFC1918 and ULA), or unspecified space.
func forbiddenIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() ||
		ip.IsUnspecified()
}
