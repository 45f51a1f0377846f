package domain

import "time"

// SurfaceID identifies one content surface inside a pool.
type SurfaceID uint64

// LifecycleState is the per-surface load state.
type LifecycleState string

const (
	StateIdle           LifecycleState = "idle"
	StateLoading        LifecycleState = "loading"
	StateContentVisible LifecycleState = "content_visible"
	StateLoaded         LifecycleState = "loaded"
	StateFailed         LifecycleState = "failed"
)

// Posture is the resource posture applied to a surface.
type Posture string

const (
	PostureUnset      Posture = ""
	PostureForeground Posture = "foreground"
	PostureBackground Posture = "background"
)

// SurfaceState is a snapshot of one pooled surface.
type SurfaceState struct {
	ID                SurfaceID      `json:"id"`
	Index             int            `json:"index"`
	URL               string         `json:"url"`
	Lifecycle         LifecycleState `json:"lifecycle"`
	LastActivatedAt   *time.Time     `json:"lastActivatedAt,omitempty"`
	LastLoadAt        time.Time      `json:"lastLoadAt"`
	HasVisibleContent bool           `json:"hasVisibleContent"`
	Posture           Posture        `json:"posture"`
	Banner            bool           `json:"banner"`
}

// Transition records one applied lifecycle change.
type Transition struct {
	Surface SurfaceID      `json:"surface"`
	From    LifecycleState `json:"from"`
	To      LifecycleState `json:"to"`
	Trigger string         `json:"trigger"`
	At      time.Time      `json:"at"`
	// Forced marks watchdog-driven transitions.
	Forced bool `json:"forced,omitempty"`
}

// CallSite names the screen that produced a navigation event.
type CallSite string

const (
	CallSiteDetail          CallSite = "detail"
	CallSiteTabContent      CallSite = "tab_content"
	CallSiteInternalOverlay CallSite = "internal_overlay"
	CallSiteAccountOverlay  CallSite = "account_overlay"
)

// NavigationEvent is built per navigation callback and never persisted.
type NavigationEvent struct {
	SourceSurface      SurfaceID
	RequestedURL       string
	CurrentURL         string
	IsUserInitiated    bool
	IsSameURLAsCurrent bool
	IsSubframe         bool
	CarriesAppHeaders  bool
}

// IntentSource tells where a pending navigation intent came from.
type IntentSource string

const (
	IntentPush        IntentSource = "push"
	IntentDeepLink    IntentSource = "deeplink"
	IntentLoginReturn IntentSource = "login_return"
)

// PendingIntent is a navigation requested before the receiving screen existed.
type PendingIntent struct {
	URL        string
	Source     IntentSource
	ReceivedAt time.Time
}
