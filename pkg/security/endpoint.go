// Package security holds checks applied to configuration before any
// network traffic happens.
package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// EndpointPolicy says which completion endpoints are acceptable.
type EndpointPolicy struct {
	// AllowLocal permits loopback, private and link-local targets as well as
	// localhost names. Plain http is only accepted together with AllowLocal.
	AllowLocal bool
}

// CheckEndpoint validates the base URL of a completion service. An empty URL
// means the provider default and is accepted. No DNS lookups are made, so
// only IP literals and well known local names are classified.
func CheckEndpoint(raw string, p EndpointPolicy) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %q", raw)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.Errorf("endpoint %q has no host", raw)
	}
	local := isLocalName(host)

	if addr, err := netip.ParseAddr(host); err == nil {
		if addr.Zone() != "" {
			local = true
		}
		addr = addr.Unmap()
		if addr.IsUnspecified() || addr.IsMulticast() {
			return errors.Errorf("endpoint address %s cannot be dialed", host)
		}
		if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() {
			local = true
		}
	}

	if local && !p.AllowLocal {
		return errors.Errorf("endpoint %s is on a local network, set allow-local-endpoint to use it", host)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if p.AllowLocal && local {
			return nil
		}
		return errors.Errorf("endpoint %s must use https", host)
	}
	return errors.Errorf("unsupported endpoint scheme %q", u.Scheme)
}

func isLocalName(host string) bool {
	return host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local")
}
