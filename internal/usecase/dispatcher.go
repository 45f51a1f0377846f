package usecase

import (
	"log/slog"
	"time"

	"NewsShell/internal/domain"
	"NewsShell/internal/events"
	"NewsShell/internal/ports"
)

// Publisher receives session events.
type Publisher interface {
	Publish(topic string, payload any)
}

// DispatcherDeps wires a pipeline to the collaborators that execute its commands.
type DispatcherDeps struct {
	Pipeline  *Pipeline
	Presenter ports.Presenter
	Surfaces  ports.SurfaceLoader
	Journal   *JournalWriter
	Events    Publisher
	SessionID string
	Now       func() time.Time
	Logger    *slog.Logger
}

// Dispatcher is the single entry point every navigation call site goes through.
// It must run on the UI loop.
type Dispatcher struct {
	pipeline  *Pipeline
	presenter ports.Presenter
	surfaces  ports.SurfaceLoader
	journal   *JournalWriter
	events    Publisher
	sessionID string
	now       func() time.Time
	logger    *slog.Logger
}

// NewDispatcher constructs the command executor.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Dispatcher{
		pipeline:  deps.Pipeline,
		presenter: deps.Presenter,
		surfaces:  deps.Surfaces,
		journal:   deps.Journal,
		events:    deps.Events,
		sessionID: deps.SessionID,
		now:       deps.Now,
		logger:    deps.Logger,
	}
}

// Handle decides ev and runs the resulting commands. The returned decision
// tells the calling surface whether to continue.
func (d *Dispatcher) Handle(site domain.CallSite, ev domain.NavigationEvent) domain.Decision {
	decision := d.pipeline.Decide(ev)
	for _, cmd := range decision.Commands {
		d.execute(cmd)
	}

	d.log("navigation decided",
		"site", site,
		"url", ev.RequestedURL,
		"category", decision.Classification.Category,
		"target", decision.Target,
		"action", decision.Action,
		"reason", decision.Reason,
	)

	rec := domain.DecisionRecord{
		ID:        decision.ID,
		SessionID: d.sessionID,
		CallSite:  site,
		URL:       ev.RequestedURL,
		Category:  decision.Classification.Category,
		Target:    decision.Target,
		Action:    decision.Action,
		Reason:    decision.Reason,
		At:        d.now(),
	}
	for _, cmd := range decision.Commands {
		rec.Commands = append(rec.Commands, cmd.Kind)
	}
	if err := d.journal.Decision(rec); err != nil && d.logger != nil {
		d.logger.Warn("decision not journaled", "id", rec.ID, "error", err)
	}
	if d.events != nil {
		d.events.Publish(events.TopicDecision, rec)
	}
	return decision
}

// Present opens a native screen for url outside of any decision, e.g. for a
// pending intent that had no surface to continue in.
func (d *Dispatcher) Present(url, title string) {
	d.execute(domain.Command{Kind: domain.CmdPresentNewNativeScreen, URL: url, Title: title})
}

func (d *Dispatcher) execute(cmd domain.Command) {
	if d.presenter == nil && cmd.Kind != domain.CmdLoadInSurface {
		return
	}
	switch cmd.Kind {
	case domain.CmdPresentAccountFlow:
		d.presenter.PresentAccountFlow(cmd.Account)
	case domain.CmdPresentPDFViewer:
		d.presenter.PresentPDFViewer(cmd.URL)
	case domain.CmdPresentNewNativeScreen:
		d.presenter.PresentNewNativeScreen(cmd.URL, cmd.Title)
	case domain.CmdOpenInternalOverlay:
		d.presenter.OpenInternalOverlay(cmd.URL)
	case domain.CmdOpenExternal:
		d.presenter.OpenExternal(cmd.URL)
	case domain.CmdOpenExternalApp:
		if cmd.URL == "" {
			d.presenter.OpenExternal(cmd.FallbackURL)
			return
		}
		d.presenter.OpenExternalApp(cmd.URL, cmd.FallbackURL)
	case domain.CmdSelectHomeTab:
		d.presenter.SelectHomeTab()
	case domain.CmdPresentMenu:
		d.presenter.PresentMenu()
	case domain.CmdLoadInSurface:
		if d.surfaces == nil {
			return
		}
		if err := d.surfaces.LoadInSurface(cmd.Surface, cmd.URL, cmd.Headers); err != nil && d.logger != nil {
			d.logger.Warn("load in surface failed", "surface", cmd.Surface, "url", cmd.URL, "error", err)
		}
	}
}

func (d *Dispatcher) log(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
