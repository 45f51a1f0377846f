package domain

// RouteCategory is the classification of an outgoing navigation URL.
type RouteCategory string

const (
	RouteMainSite          RouteCategory = "main_site"
	RouteMenu              RouteCategory = "menu"
	RouteArticleNativeView RouteCategory = "article_native_view"
	RoutePDF               RouteCategory = "pdf"
	RouteLogin             RouteCategory = "login"
	RouteLogout            RouteCategory = "logout"
	RouteJoin              RouteCategory = "join"
	RouteAccountInfo       RouteCategory = "account_info"
	RouteIdentityPortal    RouteCategory = "identity_portal"
	RouteMemberApp         RouteCategory = "member_app"
	RouteConsensusSpecial  RouteCategory = "consensus_special"
	RoutePlainWeb          RouteCategory = "plain_web"
	RouteError             RouteCategory = "error"
)

// IsSpecial reports whether the category is handled natively rather than by the surface.
func (c RouteCategory) IsSpecial() bool {
	switch c {
	case RoutePlainWeb, RouteError, "":
		return false
	default:
		return true
	}
}

// MemberAppKind refines RouteMemberApp.
type MemberAppKind string

const (
	MemberAppNone     MemberAppKind = ""
	MemberAppPlusMain MemberAppKind = "plus_main"
	MemberAppMembers  MemberAppKind = "members"
)

// Classification is the result of classifying one URL.
type Classification struct {
	Category    RouteCategory `json:"category"`
	MemberApp   MemberAppKind `json:"memberApp,omitempty"`
	IsOwnDomain bool          `json:"isOwnDomain"`

	// Rule names the table entry that matched; empty for the default.
	Rule string               `json:"rule,omitempty"`
	Err  *ClassificationError `json:"-"`
}

// BrowserTarget is where a plain-web URL should be opened.
type BrowserTarget string

const (
	TargetCurrentSurface  BrowserTarget = "current_surface"
	TargetNewNativeScreen BrowserTarget = "new_native_screen"
	TargetInternalOverlay BrowserTarget = "internal_overlay"
	TargetExternalBrowser BrowserTarget = "external_browser"
)

// AccountFlowKind selects the native account screen to present.
type AccountFlowKind string

const (
	AccountLogin  AccountFlowKind = "login"
	AccountJoin   AccountFlowKind = "join"
	AccountLogout AccountFlowKind = "logout"
	AccountInfo   AccountFlowKind = "account_info"
)

// MasterConfig is the read-only routing configuration supplied at session start.
type MasterConfig struct {
	RootDomain        string            `yaml:"rootDomain" json:"rootDomain"`
	AcceptedDomains   []string          `yaml:"acceptedDomains" json:"acceptedDomains"`
	ExternalDomains   []string          `yaml:"externalDomains" json:"externalDomains"`
	EnvironmentSuffix string            `yaml:"environmentSuffix" json:"environmentSuffix"`
	ConsensusPaths    []string          `yaml:"consensusPaths" json:"consensusPaths"`
	AppHeaders        map[string]string `yaml:"appHeaders" json:"appHeaders"`
	MemberAppScheme   string            `yaml:"memberAppScheme" json:"memberAppScheme"`
}

// Clone returns a deep copy so callers can treat the snapshot as immutable.
func (m MasterConfig) Clone() MasterConfig {
	out := m
	out.AcceptedDomains = append([]string(nil), m.AcceptedDomains...)
	out.ExternalDomains = append([]string(nil), m.ExternalDomains...)
	out.ConsensusPaths = append([]string(nil), m.ConsensusPaths...)
	if m.AppHeaders != nil {
		out.AppHeaders = make(map[string]string, len(m.AppHeaders))
		for k, v := range m.AppHeaders {
			out.AppHeaders[k] = v
		}
	}
	return out
}
