package chromesurface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
)

const (
	pauseScript  = `document.querySelectorAll('video,audio').forEach(function(m){m.pause()});window.__newsshellScrollY=window.scrollY;`
	resumeScript = `if(typeof window.__newsshellScrollY==='number'){window.scrollTo(0,window.__newsshellScrollY)}`
)

// Surface is one Chrome tab. Signals are emitted from the DevTools event goroutine.
type Surface struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	logger  *slog.Logger
	onClose func()

	mu        sync.Mutex
	subs      map[int]func(ports.Signal)
	nextSub   int
	mainFrame cdp.FrameID
	// documents maps in-flight document requests to the frame that issued them.
	documents map[network.RequestID]cdp.FrameID
	closed    bool
}

var _ ports.ContentSurface = (*Surface)(nil)

func newSurface(ctx context.Context, cancel context.CancelFunc, timeout time.Duration, logger *slog.Logger) *Surface {
	return &Surface{
		ctx:       ctx,
		cancel:    cancel,
		timeout:   timeout,
		logger:    logger,
		subs:      make(map[int]func(ports.Signal)),
		documents: make(map[network.RequestID]cdp.FrameID),
	}
}

// Load navigates the tab, sending headers with the main document request.
func (s *Surface) Load(url string, headers map[string]string) {
	extra := make(network.Headers, len(headers))
	for k, v := range headers {
		extra[k] = v
	}
	s.run("load", func(ctx context.Context) error {
		if err := network.SetExtraHTTPHeaders(extra).Do(ctx); err != nil {
			return fmt.Errorf("set headers: %w", err)
		}
		return chromedp.Navigate(url).Do(ctx)
	})
}

func (s *Surface) Reload() {
	s.run("reload", func(ctx context.Context) error {
		return chromedp.Reload().Do(ctx)
	})
}

func (s *Surface) Pause() {
	s.ExecJS(pauseScript)
}

func (s *Surface) Resume() {
	s.ExecJS(resumeScript)
}

// ExecJS evaluates script and discards the result.
func (s *Surface) ExecJS(script string) {
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
		var discard any
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &discard)); err != nil {
			s.debug("script failed", "error", err)
		}
	}()
}

func (s *Surface) Subscribe(fn func(ports.Signal)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close closes the tab. It is idempotent.
func (s *Surface) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.subs = map[int]func(ports.Signal){}
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.onClose != nil {
		s.onClose()
	}
}

// run executes a navigation action off the caller's goroutine and reports
// failures as signals.
func (s *Surface) run(op string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
		err := chromedp.Run(ctx, chromedp.ActionFunc(fn))
		if err == nil {
			return
		}
		s.debug("navigation failed", "op", op, "error", err)
		s.emit(ports.Signal{Kind: ports.SignalFailed, Err: classify(err)})
	}()
}

// handleEvent translates DevTools events of the tab into surface signals.
func (s *Surface) handleEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame != nil && e.Frame.ParentID == "" {
			s.mu.Lock()
			s.mainFrame = e.Frame.ID
			s.mu.Unlock()
		}
	case *page.EventFrameStartedLoading:
		if s.isMainFrame(e.FrameID) {
			s.emit(ports.Signal{Kind: ports.SignalProgress, Progress: 0.1})
		}
	case *page.EventDomContentEventFired:
		s.emit(ports.Signal{Kind: ports.SignalProgress, Progress: 0.5})
		s.emit(ports.Signal{Kind: ports.SignalDOMReady})
	case *page.EventLoadEventFired:
		s.emit(ports.Signal{Kind: ports.SignalProgress, Progress: 1})
		s.emit(ports.Signal{Kind: ports.SignalFinished})
	case *network.EventResponseReceived:
		if e.Type != network.ResourceTypeDocument || e.Response == nil || !s.isMainFrame(e.FrameID) {
			return
		}
		s.emit(ports.Signal{Kind: ports.SignalHTTPStatus, Status: int(e.Response.Status)})
	case *network.EventRequestWillBeSent:
		if e.Type != network.ResourceTypeDocument {
			return
		}
		s.mu.Lock()
		s.documents[e.RequestID] = e.FrameID
		s.mu.Unlock()
	case *network.EventLoadingFinished:
		s.forgetDocument(e.RequestID)
	case *network.EventLoadingFailed:
		if e.Type != network.ResourceTypeDocument {
			return
		}
		frame, ok := s.forgetDocument(e.RequestID)
		if !ok || !s.isMainFrame(frame) {
			return
		}
		var err error
		if e.Canceled {
			err = domain.ErrTransportCancelled
		} else {
			err = classify(errors.New(e.ErrorText))
		}
		s.emit(ports.Signal{Kind: ports.SignalFailed, Err: err})
	}
}

func (s *Surface) forgetDocument(id network.RequestID) (cdp.FrameID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame, ok := s.documents[id]
	delete(s.documents, id)
	return frame, ok
}

// isMainFrame is true until the first main-frame navigation is observed.
func (s *Surface) isMainFrame(id cdp.FrameID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mainFrame == "" || s.mainFrame == id
}

func (s *Surface) emit(sig ports.Signal) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	subs := make([]func(ports.Signal), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(sig)
	}
}

func (s *Surface) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// classify folds aborted navigations into the cancellation class.
func classify(err error) error {
	if domain.IsCancellation(err) {
		return fmt.Errorf("%w: %v", domain.ErrTransportCancelled, err)
	}
	return err
}
