package normalize

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errInvalidURL = errors.New("invalid url")

// trackingParams are query parameters that never change the linked content.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"msclkid": true,
	"mc_cid":  true,
	"mc_eid":  true,
	"ref":     true,
	"source":  true,
	"igshid":  true,
}

// CanonicalURL validates an http(s) URL and rewrites it into the form used for
// hashing and duplicate detection: lowercase scheme and host, no default port,
// no fragment, no tracking parameters, sorted query, no trailing slash.
func CanonicalURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("%w: empty", errInvalidURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidURL, err)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", errInvalidURL, parsed.Scheme)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: missing host", errInvalidURL)
	}

	port := parsed.Port()
	if (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	parsed.Host = host

	query := parsed.Query()
	for key := range query {
		lk := strings.ToLower(key)
		if trackingParams[lk] || strings.HasPrefix(lk, "utm_") {
			query.Del(key)
		}
	}
	// Encode sorts by key.
	parsed.RawQuery = query.Encode()
	parsed.ForceQuery = false

	parsed.Fragment = ""
	parsed.RawFragment = ""

	if parsed.Path == "/" {
		parsed.Path = ""
		parsed.RawPath = ""
	} else if strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		parsed.RawPath = strings.TrimSuffix(parsed.RawPath, "/")
	}

	return parsed.String(), nil
}
