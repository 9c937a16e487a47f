package warmer

import (
	"fmt"
	"net/url"
)

// RewriteHost replaces the host of rawURL with host, preserving scheme,
// path, query, and fragment. Upstream URL generation may embed an
// incidental internal hostname (load balancer, alternate embed domain);
// warming must target the public canonical host so edge-cache keys match
// real user traffic.
//
// An empty host returns rawURL unchanged.
func RewriteHost(rawURL, host string) (string, error) {
	if host == "" {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}

	u.Host = host
	return u.String(), nil
}
