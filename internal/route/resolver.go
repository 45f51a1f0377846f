package route

import (
	"strings"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
)

var _ ports.TargetResolver = (*Resolver)(nil)

var articleSegments = []string{"/news/", "/article/", "/detail/"}

var articleQueryKeys = []string{"aid"}

// joinPagePrefix also matches environment-suffixed join pages such as member.join_dev.
const joinPagePrefix = "member.join"

// Resolver maps a plain-web URL to where it should open. It must only be fed
// URLs the Classifier reported as plain web.
type Resolver struct {
	root     string
	accepted []string
	external []string
}

// NewResolver binds the allow/deny lists of a master config snapshot.
func NewResolver(cfg domain.MasterConfig) *Resolver {
	return &Resolver{
		root:     NormalizeRoot(cfg.RootDomain),
		accepted: normalizeDomains(cfg.AcceptedDomains),
		external: normalizeDomains(cfg.ExternalDomains),
	}
}

// ResolveBrowserTarget is the list-driven form used when no session config exists.
func ResolveBrowserTarget(rawURL string, acceptedDomains, externalDomains []string) domain.BrowserTarget {
	return NewResolver(domain.MasterConfig{
		AcceptedDomains: acceptedDomains,
		ExternalDomains: externalDomains,
	}).Resolve(rawURL)
}

// Resolve is pure; opening happens in the decision pipeline's command handlers.
func (r *Resolver) Resolve(rawURL string) domain.BrowserTarget {
	target, err := parseTarget(rawURL)
	if err != nil {
		return domain.TargetCurrentSurface
	}

	lowered := strings.ToLower(target.Stripped)
	if !isJoinPage(target.Path) {
		for _, ext := range r.external {
			if strings.Contains(lowered, ext) {
				return domain.TargetExternalBrowser
			}
		}
	}

	if looksLikeArticle(target) {
		return domain.TargetNewNativeScreen
	}

	if !r.isPrimaryHost(target.Host) {
		for _, accepted := range r.accepted {
			if isUnder(target.Host, accepted) {
				return domain.TargetInternalOverlay
			}
		}
	}

	return domain.TargetCurrentSurface
}

func (r *Resolver) isPrimaryHost(host string) bool {
	host = strings.TrimPrefix(host, "stg-")
	switch host {
	case r.root, "www." + r.root, "m." + r.root:
		return true
	default:
		return false
	}
}

// isJoinPage reports whether a path segment names a sign-up page.
func isJoinPage(path string) bool {
	for _, seg := range strings.Split(strings.ToLower(path), "/") {
		if seg == "join" || strings.HasPrefix(seg, joinPagePrefix) {
			return true
		}
	}
	return false
}

func looksLikeArticle(t Target) bool {
	if containsAny(strings.ToLower(t.Path), articleSegments) {
		return true
	}
	for _, key := range articleQueryKeys {
		if t.Query.Get(key) != "" {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
