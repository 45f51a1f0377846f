package usecase

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
	"NewsShell/internal/route"
)

// Decision reasons.
const (
	ReasonBlank          = "blank"
	ReasonSubframe       = "subframe"
	ReasonSameURL        = "same_url"
	ReasonClassifyError  = "classification_error"
	ReasonSpecial        = "special_category"
	ReasonResolved       = "resolved"
	ReasonMissingHeaders = "missing_app_headers"
	ReasonUnhandled      = "unhandled_category"
)

// PipelineDeps wires the routing collaborators into the decision pipeline.
type PipelineDeps struct {
	Config     domain.MasterConfig
	Classifier ports.URLClassifier
	Resolver   ports.TargetResolver
	// NewID mints decision IDs; defaults to random UUIDs.
	NewID  func() string
	Logger *slog.Logger
}

// Pipeline decides, per navigation event, whether the surface may continue and
// which native side effects to run. It holds only immutable configuration.
type Pipeline struct {
	cfg        domain.MasterConfig
	classifier ports.URLClassifier
	resolver   ports.TargetResolver
	newID      func() string
	logger     *slog.Logger
}

// NewPipeline constructs the decision component. Missing classifier or
// resolver are built from Config.
func NewPipeline(deps PipelineDeps) *Pipeline {
	cfg := deps.Config.Clone()
	if deps.Classifier == nil {
		deps.Classifier = route.NewClassifier(cfg)
	}
	if deps.Resolver == nil {
		deps.Resolver = route.NewResolver(cfg)
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Pipeline{
		cfg:        cfg,
		classifier: deps.Classifier,
		resolver:   deps.Resolver,
		newID:      deps.NewID,
		logger:     deps.Logger,
	}
}

// Config returns the snapshot the pipeline was built with.
func (p *Pipeline) Config() domain.MasterConfig {
	return p.cfg.Clone()
}

// Decide never fails; malformed URLs are allowed with no side effects.
func (p *Pipeline) Decide(ev domain.NavigationEvent) domain.Decision {
	d := domain.Decision{ID: p.newID(), Action: domain.ActionAllow}
	requested := strings.TrimSpace(ev.RequestedURL)

	if requested == "" || strings.EqualFold(requested, "about:blank") {
		d.Reason = ReasonBlank
		return d
	}
	if ev.IsSubframe {
		d.Reason = ReasonSubframe
		return d
	}
	if !ev.IsUserInitiated && (ev.IsSameURLAsCurrent || (ev.CurrentURL != "" && ev.CurrentURL == requested)) {
		d.Reason = ReasonSameURL
		return d
	}

	d.Classification = p.classifier.Classify(requested)
	category := d.Classification.Category

	switch {
	case category == domain.RouteError:
		d.Reason = ReasonClassifyError
		p.debug("classification failed", "url", requested, "error", d.Classification.Err)
		return d
	case category.IsSpecial():
		cmd, ok := p.specialCommand(d.Classification, requested)
		if !ok {
			d.Reason = ReasonUnhandled
			if p.logger != nil {
				p.logger.Warn("no command for route category", "url", requested, "category", category)
			}
			return d
		}
		d.Action = domain.ActionCancel
		d.Reason = ReasonSpecial
		d.Commands = []domain.Command{cmd}
		return d
	}

	d.Target = p.resolver.Resolve(requested)
	d.Reason = ReasonResolved
	switch d.Target {
	case domain.TargetNewNativeScreen:
		d.Action = domain.ActionCancel
		d.Commands = []domain.Command{{Kind: domain.CmdPresentNewNativeScreen, URL: requested}}
	case domain.TargetInternalOverlay:
		d.Action = domain.ActionCancel
		d.Commands = []domain.Command{{Kind: domain.CmdOpenInternalOverlay, URL: requested}}
	case domain.TargetExternalBrowser:
		d.Action = domain.ActionCancel
		d.Commands = []domain.Command{{Kind: domain.CmdOpenExternal, URL: requested}}
	default:
		if d.Classification.IsOwnDomain && !ev.CarriesAppHeaders && len(p.cfg.AppHeaders) > 0 {
			d.Action = domain.ActionCancel
			d.Reason = ReasonMissingHeaders
			d.Commands = []domain.Command{{
				Kind:    domain.CmdLoadInSurface,
				URL:     requested,
				Surface: ev.SourceSurface,
				Headers: p.Config().AppHeaders,
			}}
		}
	}
	return d
}

func (p *Pipeline) specialCommand(c domain.Classification, requested string) (domain.Command, bool) {
	switch c.Category {
	case domain.RouteLogin, domain.RouteIdentityPortal:
		return domain.Command{Kind: domain.CmdPresentAccountFlow, Account: domain.AccountLogin, URL: requested}, true
	case domain.RouteJoin:
		return domain.Command{Kind: domain.CmdPresentAccountFlow, Account: domain.AccountJoin, URL: requested}, true
	case domain.RouteLogout:
		return domain.Command{Kind: domain.CmdPresentAccountFlow, Account: domain.AccountLogout, URL: requested}, true
	case domain.RouteAccountInfo:
		return domain.Command{Kind: domain.CmdPresentAccountFlow, Account: domain.AccountInfo, URL: requested}, true
	case domain.RoutePDF:
		return domain.Command{Kind: domain.CmdPresentPDFViewer, URL: requested}, true
	case domain.RouteMemberApp:
		return domain.Command{Kind: domain.CmdOpenExternalApp, URL: p.memberAppURL(c.MemberApp, requested), FallbackURL: requested}, true
	case domain.RouteConsensusSpecial:
		return domain.Command{Kind: domain.CmdOpenInternalOverlay, URL: requested}, true
	case domain.RouteArticleNativeView:
		return domain.Command{Kind: domain.CmdPresentNewNativeScreen, URL: requested}, true
	case domain.RouteMainSite:
		return domain.Command{Kind: domain.CmdSelectHomeTab}, true
	case domain.RouteMenu:
		return domain.Command{Kind: domain.CmdPresentMenu}, true
	default:
		return domain.Command{}, false
	}
}

// memberAppURL builds the companion-app deep link; empty when no scheme is configured.
func (p *Pipeline) memberAppURL(kind domain.MemberAppKind, requested string) string {
	scheme := strings.TrimSpace(p.cfg.MemberAppScheme)
	if scheme == "" {
		return ""
	}
	if !strings.Contains(scheme, "://") {
		scheme += "://"
	}
	return scheme + string(kind) + "?url=" + url.QueryEscape(requested)
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
