// Package testutil holds in-memory fakes of the external capabilities.
package testutil

import (
	"sync"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
)

// Surface records every call made on a content surface and lets tests emit signals.
type Surface struct {
	mu          sync.Mutex
	ID          domain.SurfaceID
	Index       int
	Loads       []string
	LastHeaders map[string]string
	Reloads     int
	Pauses      int
	Resumes     int
	Scripts     []string
	Closed      bool
	subscribers map[int]func(ports.Signal)
	nextSub     int
}

var _ ports.ContentSurface = (*Surface)(nil)

// NewSurface builds an unbound fake.
func NewSurface() *Surface {
	return &Surface{subscribers: map[int]func(ports.Signal){}}
}

func (s *Surface) Load(url string, headers map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Loads = append(s.Loads, url)
	s.LastHeaders = headers
}

func (s *Surface) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reloads++
}

func (s *Surface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pauses++
}

func (s *Surface) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Resumes++
}

func (s *Surface) ExecJS(script string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scripts = append(s.Scripts, script)
}

func (s *Surface) Subscribe(fn func(ports.Signal)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
}

// Emit delivers sig to every subscriber.
func (s *Surface) Emit(sig ports.Signal) {
	s.mu.Lock()
	subs := make([]func(ports.Signal), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(sig)
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Surface) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Counts returns pause and resume counters.
func (s *Surface) Counts() (pauses, resumes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Pauses, s.Resumes
}

// Overlay records spinner and banner calls.
type Overlay struct {
	mu           sync.Mutex
	Spinner      bool
	Banner       bool
	BannerReason string
	SpinnerHides int
}

var _ ports.LoadingOverlay = (*Overlay)(nil)

func (o *Overlay) ShowSpinner() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Spinner = true
}

func (o *Overlay) HideSpinner() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Spinner = false
	o.SpinnerHides++
}

func (o *Overlay) ShowRetry(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Banner = true
	o.BannerReason = reason
}

func (o *Overlay) HideRetry() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Banner = false
}

// Factory hands out fake surfaces and keeps them by ID.
type Factory struct {
	mu       sync.Mutex
	Surfaces map[domain.SurfaceID]*Surface
	Overlays map[domain.SurfaceID]*Overlay
	ByIndex  map[int][]*Surface
	Err      error
}

var _ ports.SurfaceFactory = (*Factory)(nil)

// NewFactory builds an empty factory.
func NewFactory() *Factory {
	return &Factory{
		Surfaces: map[domain.SurfaceID]*Surface{},
		Overlays: map[domain.SurfaceID]*Overlay{},
		ByIndex:  map[int][]*Surface{},
	}
}

func (f *Factory) NewSurface(id domain.SurfaceID, index int) (ports.ContentSurface, ports.LoadingOverlay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, nil, f.Err
	}
	s := NewSurface()
	s.ID = id
	s.Index = index
	o := &Overlay{}
	f.Surfaces[id] = s
	f.Overlays[id] = o
	f.ByIndex[index] = append(f.ByIndex[index], s)
	return s, o, nil
}

// At returns the most recent surface created for index, or nil.
func (f *Factory) At(index int) *Surface {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.ByIndex[index]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

// Created returns how many surfaces were built.
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Surfaces)
}
