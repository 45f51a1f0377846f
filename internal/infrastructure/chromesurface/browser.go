// Package chromesurface backs pool slots with headless Chrome tabs driven over
// the DevTools protocol.
package chromesurface

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
)

// Options configures the browser process.
type Options struct {
	ExecPath string
	Width    int
	Height   int
	// Timeout bounds each DevTools command issued for a surface.
	Timeout  time.Duration
	Headless bool
}

// Browser owns one Chrome process. Each surface is a tab in it.
type Browser struct {
	opts   Options
	logger *slog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	tabs   map[domain.SurfaceID]*Surface
	closed bool
}

var _ ports.SurfaceFactory = (*Browser)(nil)

// NewBrowser launches Chrome and waits until it accepts commands.
func NewBrowser(ctx context.Context, opts Options, logger *slog.Logger) (*Browser, error) {
	if opts.Width <= 0 {
		opts.Width = 390
	}
	if opts.Height <= 0 {
		opts.Height = 844
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("start chrome: %w", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, ctx.Err()
	}

	return &Browser{
		opts:          opts,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          make(map[domain.SurfaceID]*Surface),
	}, nil
}

// NewSurface opens a tab for the slot. The overlay only logs.
func (b *Browser) NewSurface(id domain.SurfaceID, index int) (ports.ContentSurface, ports.LoadingOverlay, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, fmt.Errorf("browser closed")
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	logger := b.logger
	if logger != nil {
		logger = logger.With("surface", id, "index", index)
	}
	s := newSurface(tabCtx, cancel, b.opts.Timeout, logger)
	s.onClose = func() { b.forget(id) }

	setupCtx, setupCancel := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer setupCancel()
	if err := chromedp.Run(setupCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(b.opts.Width), int64(b.opts.Height)),
	); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("open tab for surface %d: %w", id, err)
	}
	chromedp.ListenTarget(tabCtx, s.handleEvent)

	b.tabs[id] = s
	return s, logOverlay{logger: logger}, nil
}

// Tabs reports how many tabs are open.
func (b *Browser) Tabs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tabs)
}

func (b *Browser) forget(id domain.SurfaceID) {
	b.mu.Lock()
	delete(b.tabs, id)
	b.mu.Unlock()
}

// Close shuts every tab and the Chrome process.
func (b *Browser) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.browserCancel()
	b.allocCancel()
}

// logOverlay stands in for native loading chrome when there is no screen.
type logOverlay struct {
	logger *slog.Logger
}

func (o logOverlay) ShowSpinner()            { o.debug("spinner shown") }
func (o logOverlay) HideSpinner()            { o.debug("spinner hidden") }
func (o logOverlay) ShowRetry(reason string) { o.debug("retry shown", "reason", reason) }
func (o logOverlay) HideRetry()              { o.debug("retry hidden") }

func (o logOverlay) debug(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}
