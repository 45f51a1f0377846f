package ports

import (
	"context"
	"time"

	"NewsShell/internal/domain"
)

// SignalKind enumerates what a content surface reports back.
type SignalKind string

const (
	SignalProgress   SignalKind = "progress"
	SignalDOMReady   SignalKind = "dom_ready"
	SignalHTTPStatus SignalKind = "http_status"
	SignalFinished   SignalKind = "finished"
	SignalFailed     SignalKind = "failed"
)

// Signal is one observation from a content surface. Only the field matching Kind is set.
type Signal struct {
	Kind     SignalKind
	Progress float64
	Status   int
	Err      error
}

// ContentSurface is an embedded web view. Implementations may emit signals on any goroutine.
type ContentSurface interface {
	Load(url string, headers map[string]string)
	Reload()
	// Pause applies the background posture: media and animations paused, scroll snapshotted.
	Pause()
	// Resume applies the foreground posture.
	Resume()
	ExecJS(script string)
	Subscribe(fn func(Signal)) (unsubscribe func())
	Close()
}

// LoadingOverlay is the native chrome drawn over a surface.
type LoadingOverlay interface {
	ShowSpinner()
	HideSpinner()
	ShowRetry(reason string)
	HideRetry()
}

// SurfaceFactory builds the surface backing one pool slot.
type SurfaceFactory interface {
	NewSurface(id domain.SurfaceID, index int) (ContentSurface, LoadingOverlay, error)
}

// Presenter pushes or presents native screens.
type Presenter interface {
	PresentAccountFlow(kind domain.AccountFlowKind)
	PresentPDFViewer(url string)
	PresentNewNativeScreen(url, title string)
	OpenExternal(url string)
	OpenInternalOverlay(url string)
	OpenExternalApp(appURL, fallbackURL string)
	SelectHomeTab()
	PresentMenu()
}

// TabIndicator is the tab-strip underline or highlight.
type TabIndicator interface {
	Update(from, to int, progress float64)
}

// URLClassifier maps a navigation URL to a route category.
type URLClassifier interface {
	Classify(rawURL string) domain.Classification
}

// TargetResolver picks where a plain-web URL opens.
type TargetResolver interface {
	Resolve(rawURL string) domain.BrowserTarget
}

// SurfaceLoader starts a load on a pooled surface.
type SurfaceLoader interface {
	LoadInSurface(id domain.SurfaceID, url string, headers map[string]string) error
}

// MasterConfigSource supplies routing configuration at session start.
type MasterConfigSource interface {
	Fetch(ctx context.Context) (domain.MasterConfig, error)
}

// Journal persists decisions and transitions for audit.
type Journal interface {
	RecordDecision(ctx context.Context, rec domain.DecisionRecord) error
	RecordTransition(ctx context.Context, rec domain.TransitionRecord) error
	RecentDecisions(ctx context.Context, limit int) ([]domain.DecisionRecord, error)
}

// AuthChecker asks the member server whether the current login is still valid.
// A nil response with nil error means the server gave no answer.
type AuthChecker interface {
	Check(ctx context.Context) (*domain.AuthCheckResponse, error)
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
