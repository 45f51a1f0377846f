// Package route decides what an outgoing navigation URL is and where a plain
// web URL should be opened. Everything here is pure and safe for concurrent use.
package route

import (
	"fmt"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
)

var _ ports.URLClassifier = (*Classifier)(nil)

// Classifier evaluates the ordered rule table; the first match wins.
type Classifier struct {
	root  string
	rules []Rule
}

// NewClassifier binds the table to a master config snapshot.
func NewClassifier(cfg domain.MasterConfig) *Classifier {
	return NewClassifierWithContext(RuleContext{
		RootDomain:     cfg.RootDomain,
		DevModeSuffix:  cfg.EnvironmentSuffix,
		ConsensusPaths: cfg.ConsensusPaths,
	})
}

// NewClassifierWithContext builds a classifier from explicit rule inputs.
func NewClassifierWithContext(rc RuleContext) *Classifier {
	return &Classifier{
		root:  NormalizeRoot(rc.RootDomain),
		rules: BuildRules(rc),
	}
}

// Rules returns a copy of the table in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// RootDomain is the site root the classifier was built for.
func (c *Classifier) RootDomain() string {
	return c.root
}

// Classify never fails: unmatched input is plain web, malformed input is the error category.
func (c *Classifier) Classify(rawURL string) (result domain.Classification) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.Classification{
				Category: domain.RouteError,
				Err: &domain.ClassificationError{
					URL:    rawURL,
					Reason: "matcher failure",
					Err:    fmt.Errorf("%v", r),
				},
			}
		}
	}()

	target, cerr := parseTarget(rawURL)
	if cerr != nil {
		return domain.Classification{Category: domain.RouteError, Err: cerr}
	}

	ownDomain := RootOf(target.Host) == c.root
	for _, rule := range c.rules {
		if rule.Match(target) {
			return domain.Classification{
				Category:    rule.Category,
				MemberApp:   rule.MemberApp,
				IsOwnDomain: ownDomain,
				Rule:        rule.Name,
			}
		}
	}

	return domain.Classification{
		Category:    domain.RoutePlainWeb,
		IsOwnDomain: ownDomain,
	}
}
