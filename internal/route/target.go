package route

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"

	"NewsShell/internal/domain"
)

// DefaultRootDomain is used when the master config does not name one.
const DefaultRootDomain = "hankyung.com"

// Target is a URL prepared for rule matching: the query is stripped at the first '?'.
type Target struct {
	Raw      string
	Stripped string
	Scheme   string
	Host     string
	Path     string
	Query    url.Values
}

func parseTarget(raw string) (Target, *domain.ClassificationError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Target{}, &domain.ClassificationError{URL: raw, Reason: "empty url"}
	}
	if strings.IndexFunc(trimmed, unicode.IsControl) >= 0 {
		return Target{}, &domain.ClassificationError{URL: raw, Reason: "control characters"}
	}

	stripped, rawQuery, _ := strings.Cut(trimmed, "?")
	parsed, err := url.Parse(stripped)
	if err != nil {
		return Target{}, &domain.ClassificationError{URL: raw, Reason: "unparsable", Err: err}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		return Target{}, &domain.ClassificationError{URL: raw, Reason: "missing scheme"}
	}
	if (scheme == "http" || scheme == "https") && parsed.Host == "" {
		return Target{}, &domain.ClassificationError{URL: raw, Reason: "missing host"}
	}

	if idx := strings.Index(rawQuery, "#"); idx >= 0 {
		rawQuery = rawQuery[:idx]
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		// A broken query never decides routing; keep what parsed.
		query = url.Values{}
	}

	return Target{
		Raw:      trimmed,
		Stripped: stripped,
		Scheme:   scheme,
		Host:     strings.ToLower(parsed.Hostname()),
		Path:     parsed.Path,
		Query:    query,
	}, nil
}

// RootOf returns the registrable domain (eTLD+1) of host, or host itself when
// the public suffix list cannot tell.
func RootOf(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return ""
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return root
}

// NormalizeRoot turns a configured root (possibly "www.example.com" or a URL) into its eTLD+1.
func NormalizeRoot(configured string) string {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return DefaultRootDomain
	}
	if strings.Contains(configured, "://") {
		if parsed, err := url.Parse(configured); err == nil && parsed.Host != "" {
			configured = parsed.Hostname()
		}
	}
	return RootOf(configured)
}

func isUnder(host, domainName string) bool {
	domainName = strings.ToLower(strings.TrimSpace(domainName))
	if host == "" || domainName == "" {
		return false
	}
	return host == domainName || strings.HasSuffix(host, "."+domainName)
}
