package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsShell/internal/config"
	"NewsShell/internal/domain"
	"NewsShell/internal/events"
	"NewsShell/internal/logging"
	"NewsShell/internal/pool"
	"NewsShell/internal/ports"
	"NewsShell/internal/route"
	"NewsShell/internal/surface"
	"NewsShell/internal/tabsync"
	"NewsShell/internal/uiloop"
	"NewsShell/internal/usecase"
)

// ErrNotStarted is returned by operations that need a running session.
var ErrNotStarted = errors.New("session not started")

// TitleSource looks up a page title for screens opened from an intent.
type TitleSource interface {
	Title(ctx context.Context, url string) (string, error)
}

// Deps lists the collaborators of a session. Only Factory is required.
type Deps struct {
	Config    config.Config
	Factory   ports.SurfaceFactory
	Presenter ports.Presenter
	Indicator ports.TabIndicator
	Journal   ports.Journal
	Auth      ports.AuthChecker
	// Source and Cron drive the scheduled master-config refresh.
	Source ports.MasterConfigSource
	Cron   ports.Scheduler
	Store  *config.Store
	Titles TitleSource
	Clock  uiloop.Clock
	Logger *slog.Logger
}

// Session owns one UI loop with its surface pool and navigation pipeline. The
// master config is copied at construction and never changes for the session.
type Session struct {
	id     string
	cfg    config.Config
	master domain.MasterConfig
	logger *slog.Logger

	loop       *uiloop.Loop
	hub        *events.Hub
	store      *config.Store
	journal    ports.Journal
	writer     *usecase.JournalWriter
	pool       *pool.Pool
	tabs       *tabsync.Coordinator
	pipeline   *usecase.Pipeline
	dispatcher *usecase.Dispatcher
	classifier *route.Classifier
	resolver   *route.Resolver
	auth       *usecase.AuthGate
	scheduler  *usecase.Scheduler
	titles     TitleSource

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New wires a session. Nothing runs until Start.
func New(deps Deps) (*Session, error) {
	if deps.Factory == nil {
		return nil, errors.New("session needs a surface factory")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.New(deps.Config.Logging.Level)
	}
	store := deps.Store
	if store == nil {
		store = config.NewStore(deps.Config.Master)
	}
	presenter := deps.Presenter
	if presenter == nil {
		presenter = logPresenter{logger: logging.Component(logger, "presenter")}
	}
	indicator := deps.Indicator
	if indicator == nil {
		indicator = logIndicator{logger: logging.Component(logger, "tabs")}
	}

	s := &Session{
		id:      uuid.NewString(),
		cfg:     deps.Config,
		master:  store.Current(),
		store:   store,
		journal: deps.Journal,
		titles:  deps.Titles,
		done:    make(chan struct{}),
	}
	s.logger = logger.With("session", s.id)

	s.loop = uiloop.New(0, logging.Component(s.logger, "loop"))
	s.hub = events.NewHub(events.WithLogger(logging.Component(s.logger, "events")))
	s.writer = usecase.NewJournalWriter(deps.Journal, deps.Config.Journal.Buffer, logging.Component(s.logger, "journal"))
	s.classifier = route.NewClassifier(s.master)
	s.resolver = route.NewResolver(s.master)

	p, err := pool.New(s.loop, deps.Clock, deps.Factory, deps.Config.Pool.Tabs, poolOptions(deps.Config, s.master), logging.Component(s.logger, "pool"))
	if err != nil {
		return nil, fmt.Errorf("build pool: %w", err)
	}
	s.pool = p
	p.OnTransition(s.recordTransition)
	p.OnActiveChanged(func(change pool.ActiveChange) {
		s.hub.Publish(events.TopicActive, change)
	})
	// Snapshot changes only reach observers; this session keeps routing with s.master.
	store.OnChange(func(cfg domain.MasterConfig) {
		s.hub.Publish(events.TopicConfig, cfg)
	})
	s.tabs = tabsync.New(p, indicator, deps.Config.Pool.PreloadRadius, logging.Component(s.logger, "tabsync"))

	s.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Config:     s.master,
		Classifier: s.classifier,
		Resolver:   s.resolver,
		Logger:     logging.Component(s.logger, "pipeline"),
	})
	s.dispatcher = usecase.NewDispatcher(usecase.DispatcherDeps{
		Pipeline:  s.pipeline,
		Presenter: presenter,
		Surfaces:  p,
		Journal:   s.writer,
		Events:    s.hub,
		SessionID: s.id,
		Logger:    logging.Component(s.logger, "dispatcher"),
	})

	if deps.Auth != nil {
		s.auth = usecase.NewAuthGate(deps.Auth, presenter, s.loop, deps.Config.Account.SuccessCodes, logging.Component(s.logger, "auth"))
	}
	if deps.Source != nil && deps.Cron != nil {
		refresher := usecase.NewConfigRefresher(deps.Source, store, nil, logging.Component(s.logger, "refresh"))
		s.scheduler = usecase.NewScheduler(deps.Cron, refresher, logging.Component(s.logger, "scheduler"))
	}

	return s, nil
}

func poolOptions(cfg config.Config, master domain.MasterConfig) pool.Options {
	opts := pool.DefaultOptions()
	opts.PreloadRadius = cfg.Pool.PreloadRadius
	opts.PreloadCooldown = cfg.Pool.PreloadCooldown
	opts.MaxLive = cfg.Pool.MaxLive
	opts.LoadHeaders = master.AppHeaders
	opts.Surface = surface.Options{
		Watchdog:        cfg.Surface.Watchdog,
		SettleDelay:     cfg.Surface.SettleDelay,
		VisibleProgress: cfg.Surface.VisibleProgress,
	}
	return opts
}

// ID returns the session identifier used in the journal.
func (s *Session) ID() string { return s.id }

// Events exposes the session event hub.
func (s *Session) Events() *events.Hub { return s.hub }

// Journal returns the persistent journal, or nil when none is configured.
func (s *Session) Journal() ports.Journal { return s.journal }

// Master returns the config snapshot the session runs with.
func (s *Session) Master() domain.MasterConfig { return s.master.Clone() }

// Start runs the loop, shows the first tab and then routes intent, if any.
func (s *Session) Start(ctx context.Context, intent *domain.PendingIntent) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	s.started = true
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		_ = s.loop.Run(runCtx)
	}()
	s.writer.Start(runCtx)

	var initErr error
	if err := s.loop.Do(ctx, func() {
		if initErr = s.pool.Init(0); initErr == nil {
			s.pool.PreloadAround(0, s.cfg.Pool.PreloadRadius)
		}
	}); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	if initErr != nil {
		return fmt.Errorf("start session: %w", initErr)
	}

	if s.scheduler != nil {
		if err := s.scheduler.Start(runCtx); err != nil {
			s.logger.Warn("config refresh not scheduled", "error", err)
		}
	}
	if s.auth != nil {
		go s.checkAuth(runCtx)
	}

	s.logger.Info("session started", "tabs", s.pool.Len())

	if intent != nil {
		if _, err := s.RouteIntent(ctx, *intent); err != nil {
			return fmt.Errorf("route pending intent: %w", err)
		}
	}
	return nil
}

// RouteIntent sends a navigation requested before any screen existed through
// the pipeline. When the pipeline lets it continue, a native screen is opened
// for it since no surface is there to load it in place.
func (s *Session) RouteIntent(ctx context.Context, intent domain.PendingIntent) (domain.Decision, error) {
	var title string
	if s.titles != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		t, err := s.titles.Title(lookupCtx, intent.URL)
		cancel()
		if err != nil {
			s.logger.Debug("intent title lookup failed", "url", intent.URL, "error", err)
		}
		title = t
	}

	ev := domain.NavigationEvent{
		RequestedURL:      intent.URL,
		IsUserInitiated:   true,
		CarriesAppHeaders: true,
	}
	var decision domain.Decision
	err := s.loop.Do(ctx, func() {
		decision = s.dispatcher.Handle(domain.CallSiteDetail, ev)
		if decision.Action == domain.ActionAllow && decision.Reason == usecase.ReasonResolved {
			s.dispatcher.Present(intent.URL, title)
		}
	})
	if err != nil {
		return domain.Decision{}, err
	}
	s.logger.Info("pending intent routed", "source", intent.Source, "url", intent.URL, "action", decision.Action, "reason", decision.Reason)
	return decision, nil
}

// Navigate is the entry point for navigation callbacks of every call site.
func (s *Session) Navigate(ctx context.Context, site domain.CallSite, ev domain.NavigationEvent) (domain.Decision, error) {
	var decision domain.Decision
	if err := s.loop.Do(ctx, func() { decision = s.dispatcher.Handle(site, ev) }); err != nil {
		return domain.Decision{}, err
	}
	return decision, nil
}

// Decide evaluates ev without running side effects or journaling.
func (s *Session) Decide(ev domain.NavigationEvent) domain.Decision {
	return s.pipeline.Decide(ev)
}

// Classify exposes the session classifier.
func (s *Session) Classify(rawURL string) domain.Classification {
	return s.classifier.Classify(rawURL)
}

// Resolve exposes the session target resolver.
func (s *Session) Resolve(rawURL string) domain.BrowserTarget {
	return s.resolver.Resolve(rawURL)
}

// Select makes index the active tab and preloads its neighbours.
func (s *Session) Select(ctx context.Context, index int) error {
	var selErr error
	if err := s.loop.Do(ctx, func() { selErr = s.tabs.Select(index) }); err != nil {
		return err
	}
	return selErr
}

// Drag forwards a swipe progress update; it is flushed on the next Frame.
func (s *Session) Drag(from, to int, progress float64) {
	s.loop.Post(func() { s.tabs.Drag(from, to, progress) })
}

// Frame flushes buffered indicator updates, as a display tick would.
func (s *Session) Frame() {
	s.loop.Post(func() { s.tabs.Frame() })
}

// Retry reloads the surface at index after a failure.
func (s *Session) Retry(ctx context.Context, index int) error {
	var retryErr error
	if err := s.loop.Do(ctx, func() { retryErr = s.pool.Retry(index) }); err != nil {
		return err
	}
	return retryErr
}

// Tabs snapshots every live surface.
func (s *Session) Tabs(ctx context.Context) ([]domain.SurfaceState, int, error) {
	var (
		states []domain.SurfaceState
		active int
	)
	if err := s.loop.Do(ctx, func() {
		states = s.pool.States()
		active = s.pool.Active()
	}); err != nil {
		return nil, 0, err
	}
	return states, active, nil
}

// MemoryPressure asks every live surface to release resources.
func (s *Session) MemoryPressure(ctx context.Context) (int, error) {
	var sent int
	if err := s.loop.Do(ctx, func() { sent = s.pool.OnMemoryPressure() }); err != nil {
		return 0, err
	}
	return sent, nil
}

// Close stops the scheduler, tears down surfaces and flushes the journal.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()
	if !started {
		s.hub.Close()
		return ErrNotStarted
	}

	var errs []error
	if s.scheduler != nil {
		if err := s.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if err := s.loop.Do(ctx, s.pool.Close); err != nil && !errors.Is(err, uiloop.ErrStopped) {
		errs = append(errs, fmt.Errorf("close pool: %w", err))
	}
	cancel()
	<-s.done
	s.writer.Close()
	s.hub.Close()

	if dropped, failed := s.writer.Stats(); dropped > 0 || failed > 0 {
		s.logger.Warn("journal incomplete", "dropped", dropped, "failed", failed)
	}
	s.logger.Info("session closed")
	return errors.Join(errs...)
}

func (s *Session) checkAuth(ctx context.Context) {
	loggedOut, err := s.auth.Check(ctx)
	switch {
	case err != nil:
		s.logger.Warn("auth check failed, keeping login", "error", err)
	case loggedOut:
		s.logger.Info("auth check requested logout")
	}
}

// recordTransition runs on the loop for every lifecycle change in the pool.
func (s *Session) recordTransition(index int, tr domain.Transition) {
	url := ""
	if urls := s.pool.URLs(); index >= 0 && index < len(urls) {
		url = urls[index]
	}
	rec := domain.TransitionRecord{SessionID: s.id, URL: url, Transition: tr}
	if err := s.writer.Transition(rec); err != nil {
		s.logger.Debug("transition not journaled", "surface", tr.Surface, "error", err)
	}
	s.hub.Publish(events.TopicTransition, rec)
}
