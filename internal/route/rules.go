package route

import (
	"regexp"
	"strings"

	"NewsShell/internal/domain"
)

// Rule is one entry of the ordered classification table.
type Rule struct {
	Name      string
	Category  domain.RouteCategory
	MemberApp domain.MemberAppKind
	Match     func(t Target) bool
}

// RuleContext carries the per-session values substituted into the patterns.
type RuleContext struct {
	RootDomain     string
	DevModeSuffix  string
	ConsensusPaths []string
}

func matchRegexp(expr *regexp.Regexp) func(Target) bool {
	return func(t Target) bool {
		return expr.MatchString(t.Stripped)
	}
}

// BuildRules compiles the table. Order matters: member-site account paths must
// be tested before the generic subdomain rules that would also cover them.
func BuildRules(rc RuleContext) []Rule {
	root := regexp.QuoteMeta(NormalizeRoot(rc.RootDomain))
	sfx := regexp.QuoteMeta(rc.DevModeSuffix)

	mainHost := `^https?://(stg-)?(www\.|m\.)?` + root
	memberFrame := `^https?://(stg-)?member\.` + root + `/apps\.frame` + sfx + `/`

	mainSite := regexp.MustCompile(mainHost + `/?$`)
	menu := regexp.MustCompile(mainHost + `/(m/)?menu/?$`)
	articleApp := regexp.MustCompile(`^https?://([a-z0-9-]+\.)*` + root + `/article/app`)
	pdfSegment := regexp.MustCompile(`^[a-z]+://[^#]*/pdf/`)
	pdfSuffix := regexp.MustCompile(`(?i)\.pdf(#.*)?$`)
	login := regexp.MustCompile(memberFrame + `((member|common)\.)?login\b`)
	join := regexp.MustCompile(memberFrame + `(member\.)?join\b`)
	logout := regexp.MustCompile(memberFrame + `(common\.)?logout\b`)
	mypageFrame := regexp.MustCompile(memberFrame + `(member\.)?mypage\b`)
	mypage := regexp.MustCompile(`^https?://(stg-)?member\.` + root + `/mypage\b`)
	identity := regexp.MustCompile(`^https?://(stg-)?id\.` + root + `(/|$)`)
	plusMain := regexp.MustCompile(`^https?://(stg-)?(m\.)?plus\.` + root + `/?$`)
	members := regexp.MustCompile(`^https?://(stg-)?members\.` + root + `(/|$)`)

	consensus := make(map[string]struct{}, len(rc.ConsensusPaths))
	for _, entry := range rc.ConsensusPaths {
		entry = strings.ReplaceAll(strings.TrimSpace(entry), "{sfx}", rc.DevModeSuffix)
		if entry != "" {
			consensus[entry] = struct{}{}
		}
	}

	return []Rule{
		{Name: "main-site", Category: domain.RouteMainSite, Match: matchRegexp(mainSite)},
		{Name: "menu", Category: domain.RouteMenu, Match: matchRegexp(menu)},
		{Name: "article-app", Category: domain.RouteArticleNativeView, Match: matchRegexp(articleApp)},
		{Name: "pdf", Category: domain.RoutePDF, Match: func(t Target) bool {
			return pdfSegment.MatchString(t.Stripped) || pdfSuffix.MatchString(t.Stripped)
		}},
		{Name: "member-login", Category: domain.RouteLogin, Match: matchRegexp(login)},
		{Name: "member-join", Category: domain.RouteJoin, Match: matchRegexp(join)},
		{Name: "member-logout", Category: domain.RouteLogout, Match: matchRegexp(logout)},
		{Name: "member-mypage", Category: domain.RouteAccountInfo, Match: func(t Target) bool {
			return mypageFrame.MatchString(t.Stripped) || mypage.MatchString(t.Stripped)
		}},
		{Name: "identity-portal", Category: domain.RouteIdentityPortal, Match: matchRegexp(identity)},
		{Name: "plus-main", Category: domain.RouteMemberApp, MemberApp: domain.MemberAppPlusMain, Match: matchRegexp(plusMain)},
		{Name: "members", Category: domain.RouteMemberApp, MemberApp: domain.MemberAppMembers, Match: matchRegexp(members)},
		{Name: "consensus", Category: domain.RouteConsensusSpecial, Match: func(t Target) bool {
			if len(consensus) == 0 {
				return false
			}
			_, ok := consensus[t.Host+t.Path]
			return ok
		}},
	}
}
