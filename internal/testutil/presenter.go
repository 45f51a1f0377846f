package testutil

import (
	"fmt"
	"sync"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
)

// Presenter records presenter calls as short strings, e.g. "pdf https://x/a.pdf".
type Presenter struct {
	mu    sync.Mutex
	Calls []string
}

var _ ports.Presenter = (*Presenter)(nil)

func (p *Presenter) record(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, fmt.Sprintf(format, args...))
}

func (p *Presenter) PresentAccountFlow(kind domain.AccountFlowKind) { p.record("account %s", kind) }
func (p *Presenter) PresentPDFViewer(url string)                    { p.record("pdf %s", url) }
func (p *Presenter) PresentNewNativeScreen(url, title string)       { p.record("screen %s %s", url, title) }
func (p *Presenter) OpenExternal(url string)                        { p.record("external %s", url) }
func (p *Presenter) OpenInternalOverlay(url string)                 { p.record("overlay %s", url) }
func (p *Presenter) OpenExternalApp(appURL, fallbackURL string)     { p.record("app %s %s", appURL, fallbackURL) }
func (p *Presenter) SelectHomeTab()                                 { p.record("home") }
func (p *Presenter) PresentMenu()                                   { p.record("menu") }

// Snapshot returns a copy of the recorded calls.
func (p *Presenter) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Calls...)
}

// Indicator records tab indicator updates.
type Indicator struct {
	mu      sync.Mutex
	Updates []IndicatorUpdate
}

// IndicatorUpdate is one recorded call.
type IndicatorUpdate struct {
	From, To int
	Progress float64
}

var _ ports.TabIndicator = (*Indicator)(nil)

func (i *Indicator) Update(from, to int, progress float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Updates = append(i.Updates, IndicatorUpdate{From: from, To: to, Progress: progress})
}

// Snapshot returns a copy of the updates.
func (i *Indicator) Snapshot() []IndicatorUpdate {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]IndicatorUpdate(nil), i.Updates...)
}
