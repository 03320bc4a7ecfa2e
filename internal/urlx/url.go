// Package urlx normalizes page URLs into the canonical form used as the
// library's uniqueness key: one item per normalized URL.
package urlx

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize returns the canonical form of a page URL:
//
//   - scheme and host are lowercased
//   - the fragment is dropped
//   - default ports (:80 for http, :443 for https) are dropped
//   - a trailing slash on the path is trimmed ("/a/" -> "/a", "/" -> "")
//   - the query string is preserved as-is
//
// So "http://X.com:80/a/#frag" and "http://x.com/a" normalize equally.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing scheme or host", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if host, ok := strings.CutSuffix(u.Host, ":80"); ok && u.Scheme == "http" {
		u.Host = host
	}
	if host, ok := strings.CutSuffix(u.Host, ":443"); ok && u.Scheme == "https" {
		u.Host = host
	}

	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String(), nil
}
