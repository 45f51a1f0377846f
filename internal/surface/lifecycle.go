// Package surface drives the load lifecycle of a single content surface:
//
//	idle -> loading -> content_visible -> loaded
//	           \-> failed
//
// Every method must be called on the UI loop. Signals that arrive from the
// surface on other goroutines are posted to the loop before they touch state.
package surface

import (
	"log/slog"
	"sync"
	"time"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
	"NewsShell/internal/uiloop"
)

// Options tunes the lifecycle heuristics.
type Options struct {
	// Watchdog is the maximum wait before the load is forced to loaded.
	Watchdog time.Duration
	// SettleDelay is the pause between content becoming visible and the spinner hiding.
	SettleDelay time.Duration
	// VisibleProgress is the progress at which content counts as visible.
	VisibleProgress float64
	// ProgressDelta and ProgressInterval debounce progress observations.
	ProgressDelta    float64
	ProgressInterval time.Duration
}

// DefaultOptions mirrors the tab content view timings.
func DefaultOptions() Options {
	return Options{
		Watchdog:         10 * time.Second,
		SettleDelay:      300 * time.Millisecond,
		VisibleProgress:  0.3,
		ProgressDelta:    0.1,
		ProgressInterval: 500 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Watchdog <= 0 {
		o.Watchdog = def.Watchdog
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = def.SettleDelay
	}
	if o.VisibleProgress <= 0 {
		o.VisibleProgress = def.VisibleProgress
	}
	if o.ProgressDelta <= 0 {
		o.ProgressDelta = def.ProgressDelta
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = def.ProgressInterval
	}
	return o
}

// Lifecycle owns one ContentSurface and its loading overlay.
type Lifecycle struct {
	id      domain.SurfaceID
	surface ports.ContentSurface
	overlay ports.LoadingOverlay
	exec    uiloop.Executor
	clock   uiloop.Clock
	opts    Options
	logger  *slog.Logger

	state      domain.LifecycleState
	url        string
	headers    map[string]string
	visible    bool
	banner     bool
	spinner    bool
	generation uint64
	lastLoadAt time.Time

	lastProgress   float64
	lastProgressAt time.Time

	watchdog uiloop.Timer
	settle   uiloop.Timer

	unsubscribe func()
	observers   []func(domain.Transition)
	closed      bool

	// signalMu guards the generation snapshot read by the signal forwarder.
	signalMu  sync.Mutex
	signalGen uint64
}

// New wires a lifecycle to a surface and subscribes to its signals.
func New(id domain.SurfaceID, surface ports.ContentSurface, overlay ports.LoadingOverlay, exec uiloop.Executor, clock uiloop.Clock, opts Options, logger *slog.Logger) *Lifecycle {
	if overlay == nil {
		overlay = noopOverlay{}
	}
	if clock == nil {
		clock = uiloop.RealClock{}
	}
	l := &Lifecycle{
		id:      id,
		surface: surface,
		overlay: overlay,
		exec:    exec,
		clock:   clock,
		opts:    opts.withDefaults(),
		logger:  logger,
		state:   domain.StateIdle,
	}
	l.unsubscribe = surface.Subscribe(l.forward)
	return l
}

// forward runs on the surface's goroutine and marshals the signal to the loop.
func (l *Lifecycle) forward(sig ports.Signal) {
	l.signalMu.Lock()
	gen := l.signalGen
	l.signalMu.Unlock()
	l.exec.Post(func() { l.Handle(gen, sig) })
}

// OnTransition registers an observer called, in order, for every applied transition.
func (l *Lifecycle) OnTransition(fn func(domain.Transition)) {
	if fn != nil {
		l.observers = append(l.observers, fn)
	}
}

// ID returns the surface identifier.
func (l *Lifecycle) ID() domain.SurfaceID { return l.id }

// State returns the current lifecycle state.
func (l *Lifecycle) State() domain.LifecycleState { return l.state }

// URL returns the URL of the current load cycle.
func (l *Lifecycle) URL() string { return l.url }

// HasVisibleContent reports whether the visible-content heuristic holds for this cycle.
func (l *Lifecycle) HasVisibleContent() bool { return l.visible }

// BannerShown reports whether the retry affordance is up.
func (l *Lifecycle) BannerShown() bool { return l.banner }

// SpinnerShown reports whether the spinner is up.
func (l *Lifecycle) SpinnerShown() bool { return l.spinner }

// LastLoadAt is when the current cycle started; zero if never loaded.
func (l *Lifecycle) LastLoadAt() time.Time { return l.lastLoadAt }

// Surface exposes the underlying capability.
func (l *Lifecycle) Surface() ports.ContentSurface { return l.surface }

// Load starts a new cycle from any state. In-flight callbacks of the previous
// cycle are superseded.
func (l *Lifecycle) Load(url string, headers map[string]string) {
	if l.closed {
		return
	}
	l.beginCycle(url, headers, "load")
	l.surface.Load(url, headers)
}

// Reload restarts the current URL as a new cycle.
func (l *Lifecycle) Reload() {
	if l.closed || l.url == "" {
		return
	}
	l.beginCycle(l.url, l.headers, "reload")
	l.surface.Reload()
}

// Retry is the tap-to-retry action of the banner.
func (l *Lifecycle) Retry() {
	if l.url == "" {
		return
	}
	l.Load(l.url, l.headers)
}

func (l *Lifecycle) beginCycle(url string, headers map[string]string, trigger string) {
	l.stopTimers()
	l.generation++
	l.signalMu.Lock()
	l.signalGen = l.generation
	l.signalMu.Unlock()

	l.url = url
	l.headers = headers
	l.visible = false
	l.lastProgress = 0
	l.lastProgressAt = time.Time{}
	l.lastLoadAt = l.clock.Now()

	l.hideBanner()
	l.showSpinner()
	l.transition(domain.StateLoading, trigger, false)

	gen := l.generation
	l.watchdog = uiloop.After(l.exec, l.clock, l.opts.Watchdog, func() { l.onWatchdog(gen) })
}

// Handle applies a signal observed during cycle gen. Signals from older cycles
// are dropped so a superseded load can never fail the current one.
func (l *Lifecycle) Handle(gen uint64, sig ports.Signal) {
	if l.closed || gen != l.generation {
		return
	}
	switch sig.Kind {
	case ports.SignalProgress:
		l.Progress(sig.Progress)
	case ports.SignalDOMReady:
		l.DOMReady()
	case ports.SignalHTTPStatus:
		l.HTTPStatus(sig.Status)
	case ports.SignalFinished:
		l.Finished()
	case ports.SignalFailed:
		l.Failed(sig.Err)
	}
}

// Progress feeds a load-progress observation in [0,1].
func (l *Lifecycle) Progress(p float64) {
	if l.closed || l.state != domain.StateLoading {
		return
	}
	now := l.clock.Now()
	if !l.lastProgressAt.IsZero() &&
		p-l.lastProgress < l.opts.ProgressDelta &&
		now.Sub(l.lastProgressAt) < l.opts.ProgressInterval {
		return
	}
	l.lastProgress = p
	l.lastProgressAt = now
	if p >= l.opts.VisibleProgress {
		l.becomeVisible("progress")
	}
}

// DOMReady is the script message sent once the document is interactive.
func (l *Lifecycle) DOMReady() {
	if l.closed || l.state != domain.StateLoading {
		return
	}
	l.becomeVisible("dom_ready")
}

// Finished is the navigation-finished signal.
func (l *Lifecycle) Finished() {
	if l.closed {
		return
	}
	switch l.state {
	case domain.StateLoading, domain.StateContentVisible:
	default:
		return
	}
	l.stopTimers()
	l.visible = true
	l.hideSpinner()
	l.transition(domain.StateLoaded, "finished", false)
}

// Failed reports a transport error. Cancellation-class errors are ignored.
func (l *Lifecycle) Failed(err error) {
	if l.closed || domain.IsCancellation(err) {
		return
	}
	switch l.state {
	case domain.StateLoading, domain.StateContentVisible:
	default:
		return
	}
	terr := &domain.TransportError{URL: l.url, Cause: err}
	if l.visible {
		l.hideSpinner()
		l.showBanner(terr.Error())
		l.log("transport error after visible content", "error", terr)
		return
	}
	l.stopTimers()
	l.hideSpinner()
	l.showBanner(terr.Error())
	l.transition(domain.StateFailed, "transport_error", false)
	l.log("transport error", "error", terr)
}

// HTTPStatus reports the main-frame response status.
func (l *Lifecycle) HTTPStatus(status int) {
	if l.closed || status < 400 {
		return
	}
	switch l.state {
	case domain.StateLoading, domain.StateContentVisible:
	default:
		return
	}
	herr := &domain.HTTPStatusError{URL: l.url, Status: status}
	l.showBanner(herr.Error())
	if l.visible {
		l.log("http error with visible content", "status", status)
		return
	}
	l.stopTimers()
	l.hideSpinner()
	l.transition(domain.StateFailed, "http_status", false)
	l.log("http error", "status", status)
}

// ApplyForeground resumes the surface.
func (l *Lifecycle) ApplyForeground() {
	if !l.closed {
		l.surface.Resume()
	}
}

// ApplyBackground pauses the surface.
func (l *Lifecycle) ApplyBackground() {
	if !l.closed {
		l.surface.Pause()
	}
}

// Close cancels timers and stops observing the surface. It is idempotent.
func (l *Lifecycle) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.stopTimers()
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.surface.Close()
}

// Snapshot reports the lifecycle fields of a SurfaceState.
func (l *Lifecycle) Snapshot() domain.SurfaceState {
	return domain.SurfaceState{
		ID:                l.id,
		URL:               l.url,
		Lifecycle:         l.state,
		LastLoadAt:        l.lastLoadAt,
		HasVisibleContent: l.visible,
		Banner:            l.banner,
	}
}

func (l *Lifecycle) becomeVisible(trigger string) {
	l.visible = true
	l.transition(domain.StateContentVisible, trigger, false)
	gen := l.generation
	if l.settle != nil {
		l.settle.Stop()
	}
	l.settle = uiloop.After(l.exec, l.clock, l.opts.SettleDelay, func() {
		if gen == l.generation && !l.closed {
			l.hideSpinner()
		}
	})
}

func (l *Lifecycle) onWatchdog(gen uint64) {
	if l.closed || gen != l.generation {
		return
	}
	switch l.state {
	case domain.StateLoading, domain.StateContentVisible:
	default:
		return
	}
	l.watchdog = nil
	l.visible = true
	l.hideSpinner()
	l.transition(domain.StateLoaded, "watchdog", true)
	l.log("watchdog timeout", "url", l.url, "after", l.opts.Watchdog)
}

func (l *Lifecycle) transition(to domain.LifecycleState, trigger string, forced bool) {
	from := l.state
	l.state = to
	tr := domain.Transition{
		Surface: l.id,
		From:    from,
		To:      to,
		Trigger: trigger,
		At:      l.clock.Now(),
		Forced:  forced,
	}
	for _, fn := range l.observers {
		fn(tr)
	}
}

func (l *Lifecycle) stopTimers() {
	if l.watchdog != nil {
		l.watchdog.Stop()
		l.watchdog = nil
	}
	if l.settle != nil {
		l.settle.Stop()
		l.settle = nil
	}
}

func (l *Lifecycle) showSpinner() {
	if !l.spinner {
		l.spinner = true
		l.overlay.ShowSpinner()
	}
}

func (l *Lifecycle) hideSpinner() {
	if l.spinner {
		l.spinner = false
		l.overlay.HideSpinner()
	}
}

func (l *Lifecycle) showBanner(reason string) {
	if !l.banner {
		l.banner = true
		l.overlay.ShowRetry(reason)
	}
}

func (l *Lifecycle) hideBanner() {
	if l.banner {
		l.banner = false
		l.overlay.HideRetry()
	}
}

func (l *Lifecycle) log(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, append([]any{"surface", l.id}, args...)...)
	}
}

type noopOverlay struct{}

func (noopOverlay) ShowSpinner()     {}
func (noopOverlay) HideSpinner()     {}
func (noopOverlay) ShowRetry(string) {}
func (noopOverlay) HideRetry()       {}
