// Package ssrf validates outbound URLs before the replay engine, the
// importer, or a post-redirect hop is allowed to dial them: scheme
// allowlisting, DNS resolution, and rejection of private, loopback,
// link-local, multicast, reserved, and cloud-metadata address ranges.
package ssrf

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"os"
)

const skipCheckEnv = "APITAP_SKIP_SSRF_CHECK"

// Result is the outcome of validating a URL.
type Result struct {
	Safe   bool
	Reason string
}

func unsafe(reason string) Result { return Result{Safe: false, Reason: reason} }

var safe = Result{Safe: true}

// cloudMetadataIP is the well-known cloud instance-metadata address,
// rejected even though 169.254.0.0/16 link-local already covers it — kept
// explicit so the reason string names it directly.
var cloudMetadataIP = netip.MustParseAddr("169.254.169.254")

// Resolver abstracts DNS lookup so tests can substitute a fake resolver
// without touching the network.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

var defaultResolver Resolver = net.DefaultResolver

// Validate parses rawURL, checks its scheme, resolves its host, and
// rejects the URL if any resolved address falls in a disallowed range.
// When APITAP_SKIP_SSRF_CHECK is set the check is bypassed for hermetic
// test servers, which commonly bind to loopback.
func Validate(ctx context.Context, rawURL string) Result {
	return ValidateWithResolver(ctx, rawURL, defaultResolver)
}

// ValidateWithResolver is Validate with an injectable Resolver, used by
// tests that need deterministic DNS answers.
func ValidateWithResolver(ctx context.Context, rawURL string, resolver Resolver) Result {
	if os.Getenv(skipCheckEnv) != "" {
		return safe
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return unsafe(fmt.Sprintf("invalid URL: %v", err))
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return unsafe(fmt.Sprintf("scheme %q not allowed", u.Scheme))
	}

	host := u.Hostname()
	if host == "" {
		return unsafe("missing host")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if r := checkAddr(addr); !r.Safe {
			return r
		}
		return safe
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return unsafe(fmt.Sprintf("dns resolution failed: %v", err))
	}
	if len(addrs) == 0 {
		return unsafe("dns resolution returned no addresses")
	}
	for _, a := range addrs {
		addr, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if r := checkAddr(addr); !r.Safe {
			return r
		}
	}
	return safe
}

func checkAddr(addr netip.Addr) Result {
	if addr == cloudMetadataIP {
		return unsafe("address is the cloud metadata endpoint")
	}
	if addr.IsLoopback() {
		return unsafe("address is loopback")
	}
	if addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return unsafe("address is link-local")
	}
	if addr.IsMulticast() {
		return unsafe("address is multicast")
	}
	if addr.IsUnspecified() {
		return unsafe("address is unspecified")
	}
	if isPrivate(addr) {
		return unsafe("address is in a private range")
	}
	if isReserved(addr) {
		return unsafe("address is in a reserved range")
	}
	return safe
}

var privateRanges4 = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

var reservedRanges4 = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"), // TEST-NET-1
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"), // TEST-NET-2
	netip.MustParsePrefix("203.0.113.0/24"),  // TEST-NET-3
	netip.MustParsePrefix("240.0.0.0/4"),
}

// isPrivate covers RFC1918 IPv4 ranges and IPv6 unique local addresses
// (fc00::/7).
func isPrivate(addr netip.Addr) bool {
	if addr.Is4() {
		for _, p := range privateRanges4 {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}
	return addr.Is6() && netip.MustParsePrefix("fc00::/7").Contains(addr)
}

func isReserved(addr netip.Addr) bool {
	if addr.Is4() {
		for _, p := range reservedRanges4 {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}
	return false
}
