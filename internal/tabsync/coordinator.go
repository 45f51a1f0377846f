// Package tabsync keeps a tab-strip indicator in step with the surface pool.
package tabsync

import (
	"fmt"
	"log/slog"
	"math"

	"NewsShell/internal/pool"
	"NewsShell/internal/ports"
)

// MinDelta is the smallest progress change forwarded to the indicator.
const MinDelta = 0.01

// ActivePool is the part of the surface pool the coordinator drives.
type ActivePool interface {
	SetActive(index int) error
	PreloadAround(index, radius int)
	OnActiveChanged(fn func(pool.ActiveChange))
}

type dragState struct {
	from     int
	to       int
	progress float64
}

// Coordinator must be used from the UI loop.
type Coordinator struct {
	pool          ActivePool
	indicator     ports.TabIndicator
	preloadRadius int
	logger        *slog.Logger

	pending *dragState
	sent    *dragState
}

// New subscribes the coordinator to pool activation changes.
func New(p ActivePool, indicator ports.TabIndicator, preloadRadius int, logger *slog.Logger) *Coordinator {
	c := &Coordinator{
		pool:          p,
		indicator:     indicator,
		preloadRadius: preloadRadius,
		logger:        logger,
	}
	p.OnActiveChanged(c.activeChanged)
	return c
}

func (c *Coordinator) activeChanged(change pool.ActiveChange) {
	c.pending = nil
	c.send(dragState{from: change.From, to: change.To, progress: 1})
}

// Drag buffers in-flight swipe progress; it is flushed by Frame.
func (c *Coordinator) Drag(from, to int, progress float64) {
	c.pending = &dragState{from: from, to: to, progress: clamp(progress)}
}

// Frame flushes at most one buffered update. It reports whether the indicator was updated.
func (c *Coordinator) Frame() bool {
	if c.pending == nil {
		return false
	}
	next := *c.pending
	c.pending = nil
	if c.sent != nil && c.sent.from == next.from && c.sent.to == next.to &&
		math.Abs(c.sent.progress-next.progress) < MinDelta {
		return false
	}
	c.send(next)
	return true
}

// Select handles a tap on the tab strip.
func (c *Coordinator) Select(index int) error {
	if err := c.pool.SetActive(index); err != nil {
		return fmt.Errorf("select tab %d: %w", index, err)
	}
	c.pool.PreloadAround(index, c.preloadRadius)
	return nil
}

func (c *Coordinator) send(st dragState) {
	c.sent = &st
	c.indicator.Update(st.from, st.to, st.progress)
	if c.logger != nil {
		c.logger.Debug("indicator updated", "from", st.from, "to", st.to, "progress", st.progress)
	}
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
