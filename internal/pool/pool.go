// Package pool keeps one long-lived content surface per tab or slide, preloads
// neighbours and moves surfaces between foreground and background postures.
package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
	"NewsShell/internal/surface"
	"NewsShell/internal/uiloop"
)

var (
	ErrIndexOutOfRange = errors.New("pool: index out of range")
	ErrClosed          = errors.New("pool: closed")
	ErrEmptyURLs       = errors.New("pool: url list is empty")
	ErrNotInitialized  = errors.New("pool: not initialized")
	ErrUnknownSurface  = errors.New("pool: unknown surface")
)

// Options tunes a pool.
type Options struct {
	PreloadRadius   int
	PreloadCooldown time.Duration
	// MaxLive bounds the number of live surfaces; zero keeps every surface ever created.
	MaxLive int
	// LoadHeaders are sent with every pool-initiated load.
	LoadHeaders map[string]string
	Surface     surface.Options
	Cleanup     CleanupDirective
	// Workers runs preload planning off the UI loop. Defaults to a goroutine per plan.
	Workers uiloop.Executor
}

// DefaultOptions returns the reference behaviour: radius 2, 30s cooldown, unbounded.
func DefaultOptions() Options {
	return Options{
		PreloadRadius:   2,
		PreloadCooldown: 30 * time.Second,
		Surface:         surface.DefaultOptions(),
		Cleanup:         DefaultCleanup(),
	}
}

// minBoundedLive keeps the active surface and both immediate neighbours alive.
const minBoundedLive = 3

// ActiveChange is emitted once per applied SetActive.
type ActiveChange struct {
	From int
	To   int
}

type slot struct {
	index           int
	url             string
	lc              *surface.Lifecycle
	posture         domain.Posture
	lastActivatedAt *time.Time
}

// Pool must only be used from the UI loop given to New.
type Pool struct {
	exec    uiloop.Executor
	clock   uiloop.Clock
	factory ports.SurfaceFactory
	opts    Options
	logger  *slog.Logger

	urls   []string
	epoch  uint64
	slots  map[int]*slot
	byID   map[domain.SurfaceID]*slot
	nextID domain.SurfaceID
	warmed map[int]time.Time
	active int

	transitioning bool
	pending       *int

	recency      *simplelru.LRU[int, struct{}]
	evicted      []int
	muteEvictLog bool

	activeObservers     []func(ActiveChange)
	transitionObservers []func(index int, tr domain.Transition)
	closed              bool
}

// New builds a pool bound to urls. Call Init before using it.
func New(exec uiloop.Executor, clock uiloop.Clock, factory ports.SurfaceFactory, urls []string, opts Options, logger *slog.Logger) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyURLs
	}
	def := DefaultOptions()
	if opts.PreloadRadius <= 0 {
		opts.PreloadRadius = def.PreloadRadius
	}
	if opts.PreloadCooldown <= 0 {
		opts.PreloadCooldown = def.PreloadCooldown
	}
	if opts.Cleanup.MaxPerPass <= 0 {
		opts.Cleanup = def.Cleanup
	}
	if opts.Workers == nil {
		opts.Workers = uiloop.Goroutine{}
	}
	if clock == nil {
		clock = uiloop.RealClock{}
	}

	p := &Pool{
		exec:    exec,
		clock:   clock,
		factory: factory,
		opts:    opts,
		logger:  logger,
		urls:    append([]string(nil), urls...),
		slots:   map[int]*slot{},
		byID:    map[domain.SurfaceID]*slot{},
		warmed:  map[int]time.Time{},
		active:  -1,
	}

	if opts.MaxLive > 0 {
		size := opts.MaxLive
		if size < minBoundedLive {
			size = minBoundedLive
		}
		recency, err := simplelru.NewLRU[int, struct{}](size, func(index int, _ struct{}) {
			if !p.muteEvictLog {
				p.evicted = append(p.evicted, index)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("build recency list: %w", err)
		}
		p.recency = recency
	}

	return p, nil
}

// OnActiveChanged registers an observer of applied transitions.
func (p *Pool) OnActiveChanged(fn func(ActiveChange)) {
	if fn != nil {
		p.activeObservers = append(p.activeObservers, fn)
	}
}

// OnTransition registers an observer of every surface's lifecycle transitions.
func (p *Pool) OnTransition(fn func(index int, tr domain.Transition)) {
	if fn != nil {
		p.transitionObservers = append(p.transitionObservers, fn)
	}
}

// Init creates and foregrounds the initial active surface.
func (p *Pool) Init(active int) error {
	if p.closed {
		return ErrClosed
	}
	if err := p.checkIndex(active); err != nil {
		return fmt.Errorf("init pool: %w", err)
	}
	return p.SetActive(active)
}

// Len returns the number of navigable indices.
func (p *Pool) Len() int { return len(p.urls) }

// Active returns the active index, or -1 before Init.
func (p *Pool) Active() int { return p.active }

// URLs returns a copy of the bound URL list.
func (p *Pool) URLs() []string { return append([]string(nil), p.urls...) }

// Get returns the surface for index, creating and loading it on first access.
func (p *Pool) Get(index int) (domain.SurfaceID, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if err := p.checkIndex(index); err != nil {
		return 0, fmt.Errorf("get surface: %w", err)
	}
	s, err := p.ensure(index, index != p.active)
	if err != nil {
		return 0, err
	}
	return s.lc.ID(), nil
}

// Lifecycle returns the live lifecycle for index, if one exists.
func (p *Pool) Lifecycle(index int) (*surface.Lifecycle, bool) {
	s, ok := p.slots[index]
	if !ok {
		return nil, false
	}
	return s.lc, true
}

// LoadInSurface starts a load on a live surface identified by id.
func (p *Pool) LoadInSurface(id domain.SurfaceID, url string, headers map[string]string) error {
	if p.closed {
		return ErrClosed
	}
	s, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("load in surface %d: %w", id, ErrUnknownSurface)
	}
	s.lc.Load(url, mergeHeaders(p.opts.LoadHeaders, headers))
	return nil
}

// Retry reloads the surface at index after a failure.
func (p *Pool) Retry(index int) error {
	s, ok := p.slots[index]
	if !ok {
		return fmt.Errorf("retry %d: %w", index, ErrUnknownSurface)
	}
	s.lc.Retry()
	return nil
}

// SetActive foregrounds index and backgrounds every other live surface.
// A call made while a transition is being applied (for example from an
// observer) is coalesced: only the latest such target is applied, once,
// after the current transition completes.
func (p *Pool) SetActive(index int) error {
	if p.closed {
		return ErrClosed
	}
	if err := p.checkIndex(index); err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if p.transitioning {
		target := index
		p.pending = &target
		return nil
	}

	p.transitioning = true
	defer func() { p.transitioning = false }()

	if err := p.apply(index); err != nil {
		p.pending = nil
		return err
	}
	for p.pending != nil {
		next := *p.pending
		p.pending = nil
		if err := p.apply(next); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pool) apply(target int) error {
	if target == p.active {
		return nil
	}
	s, err := p.ensure(target, false)
	if err != nil {
		return err
	}

	for idx, other := range p.slots {
		if idx == target || other.posture == domain.PostureBackground {
			continue
		}
		other.lc.ApplyBackground()
		other.posture = domain.PostureBackground
	}
	if s.posture != domain.PostureForeground {
		s.lc.ApplyForeground()
		s.posture = domain.PostureForeground
	}

	now := p.clock.Now()
	s.lastActivatedAt = &now
	from := p.active
	p.active = target
	p.touch(target)

	p.debug("active changed", "from", from, "to", target)
	change := ActiveChange{From: from, To: target}
	for _, fn := range p.activeObservers {
		fn(change)
	}
	return nil
}

// PreloadAround warms surfaces within radius of index. The candidate set is
// planned on a worker; creation happens back on the UI loop.
func (p *Pool) PreloadAround(index, radius int) {
	if p.closed {
		return
	}
	if radius <= 0 {
		radius = p.opts.PreloadRadius
	}
	snap := p.preloadSnapshot()
	p.opts.Workers.Post(func() {
		candidates := planPreload(snap, index, radius)
		if len(candidates) == 0 {
			return
		}
		p.exec.Post(func() { p.applyPreload(snap.epoch, candidates) })
	})
}

func (p *Pool) applyPreload(epoch uint64, candidates []int) {
	if p.closed || epoch != p.epoch {
		p.debug("preload plan dropped", "epoch", epoch, "current", p.epoch)
		return
	}
	now := p.clock.Now()
	for _, idx := range candidates {
		if idx == p.active || idx < 0 || idx >= len(p.urls) {
			continue
		}
		if at, ok := p.warmed[idx]; ok && now.Sub(at) < p.opts.PreloadCooldown {
			continue
		}
		if s, ok := p.slots[idx]; ok && p.recentlyLoaded(s, now) {
			continue
		}
		p.warm(idx, now)
	}
}

func (p *Pool) warm(idx int, now time.Time) {
	s, ok := p.slots[idx]
	if !ok {
		if _, err := p.ensure(idx, true); err != nil {
			p.debug("preload failed", "index", idx, "error", err)
			return
		}
		p.warmed[idx] = now
		return
	}
	switch s.lc.State() {
	case domain.StateIdle, domain.StateFailed:
		s.lc.Load(s.url, p.opts.LoadHeaders)
	}
	p.warmed[idx] = now
}

func (p *Pool) recentlyLoaded(s *slot, now time.Time) bool {
	last := s.lc.LastLoadAt()
	return !last.IsZero() && now.Sub(last) < p.opts.PreloadCooldown
}

// WarmedAt returns when index was last warmed since the URL list was set.
func (p *Pool) WarmedAt(index int) (time.Time, bool) {
	at, ok := p.warmed[index]
	return at, ok
}

// SetURLs rebinds the pool. Preload bookkeeping is reset and surfaces whose URL
// changed are torn down so their index gets a fresh SurfaceID on next access.
func (p *Pool) SetURLs(urls []string) error {
	if p.closed {
		return ErrClosed
	}
	if len(urls) == 0 {
		return ErrEmptyURLs
	}
	p.urls = append([]string(nil), urls...)
	p.epoch++
	p.warmed = map[int]time.Time{}

	activeReplaced := false
	for idx, s := range p.slots {
		if idx < len(p.urls) && p.urls[idx] == s.url {
			continue
		}
		if idx == p.active {
			activeReplaced = true
		}
		p.destroy(idx)
	}

	if p.active >= len(p.urls) || activeReplaced {
		target := p.active
		if target >= len(p.urls) {
			target = len(p.urls) - 1
		}
		p.active = -1
		return p.SetActive(target)
	}
	return nil
}

// OnMemoryPressure broadcasts the cleanup directive to every live surface and
// returns how many received it. No surface is destroyed.
func (p *Pool) OnMemoryPressure() int {
	if p.closed {
		return 0
	}
	script := p.opts.Cleanup.Script()
	sent := 0
	for _, idx := range p.sortedIndices() {
		p.slots[idx].lc.Surface().ExecJS(script)
		sent++
	}
	p.debug("memory pressure cleanup", "surfaces", sent)
	return sent
}

// States returns a snapshot of every live surface ordered by index.
func (p *Pool) States() []domain.SurfaceState {
	out := make([]domain.SurfaceState, 0, len(p.slots))
	for _, idx := range p.sortedIndices() {
		s := p.slots[idx]
		st := s.lc.Snapshot()
		st.Index = idx
		st.Posture = s.posture
		st.LastActivatedAt = s.lastActivatedAt
		out = append(out, st)
	}
	return out
}

// LiveCount returns the number of live surfaces.
func (p *Pool) LiveCount() int { return len(p.slots) }

// Close tears down every surface.
func (p *Pool) Close() {
	if p.closed {
		return
	}
	for idx := range p.slots {
		p.destroy(idx)
	}
	p.closed = true
}

func (p *Pool) ensure(index int, background bool) (*slot, error) {
	if s, ok := p.slots[index]; ok {
		return s, nil
	}

	p.nextID++
	id := p.nextID
	cs, overlay, err := p.factory.NewSurface(id, index)
	if err != nil {
		return nil, fmt.Errorf("create surface %d: %w", index, err)
	}

	lc := surface.New(id, cs, overlay, p.exec, p.clock, p.opts.Surface, p.logger)
	lc.OnTransition(func(tr domain.Transition) {
		for _, fn := range p.transitionObservers {
			fn(index, tr)
		}
	})

	s := &slot{index: index, url: p.urls[index], lc: lc}
	p.slots[index] = s
	p.byID[id] = s

	lc.Load(s.url, p.opts.LoadHeaders)
	if background {
		lc.ApplyBackground()
		s.posture = domain.PostureBackground
	}
	p.debug("surface created", "index", index, "id", id, "url", s.url)

	if index != p.active {
		p.touch(index)
	}
	return s, nil
}

func (p *Pool) destroy(index int) {
	s, ok := p.slots[index]
	if !ok {
		return
	}
	delete(p.slots, index)
	delete(p.byID, s.lc.ID())
	delete(p.warmed, index)
	s.lc.Close()
	if p.recency != nil {
		p.muteEvictLog = true
		p.recency.Remove(index)
		p.muteEvictLog = false
	}
	p.debug("surface destroyed", "index", index, "id", s.lc.ID())
}

// touch records index as most recently used and evicts overflow, never the active surface.
func (p *Pool) touch(index int) {
	if p.recency == nil {
		return
	}
	p.recency.Add(index, struct{}{})
	for len(p.evicted) > 0 {
		victim := p.evicted[0]
		p.evicted = p.evicted[1:]
		if victim == p.active {
			p.recency.Add(victim, struct{}{})
			continue
		}
		if victim == index {
			// The slot being touched was squeezed out re-adding the active one.
			continue
		}
		p.destroy(victim)
	}
}

func (p *Pool) preloadSnapshot() preloadSnapshot {
	snap := preloadSnapshot{
		epoch:    p.epoch,
		count:    len(p.urls),
		active:   p.active,
		now:      p.clock.Now(),
		cooldown: p.opts.PreloadCooldown,
		warmed:   make(map[int]time.Time, len(p.warmed)),
		loadedAt: make(map[int]time.Time, len(p.slots)),
	}
	for idx, at := range p.warmed {
		snap.warmed[idx] = at
	}
	for idx, s := range p.slots {
		snap.loadedAt[idx] = s.lc.LastLoadAt()
	}
	return snap
}

func (p *Pool) checkIndex(index int) error {
	if index < 0 || index >= len(p.urls) {
		return fmt.Errorf("index %d of %d: %w", index, len(p.urls), ErrIndexOutOfRange)
	}
	return nil
}

func (p *Pool) sortedIndices() []int {
	out := make([]int, 0, len(p.slots))
	for idx := range p.slots {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func (p *Pool) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func mergeHeaders(base, extra map[string]string) map[string]string {
	if len(base) == 0 {
		return extra
	}
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
