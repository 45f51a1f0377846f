package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
	"NewsShell/internal/testutil"
	"NewsShell/internal/uiloop"
)

func tabURLs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "https://www.hankyung.com/tab/" + string(rune('a'+i))
	}
	return out
}

type queueExecutor struct {
	tasks []func()
}

func (q *queueExecutor) Post(fn func()) { q.tasks = append(q.tasks, fn) }

func (q *queueExecutor) drain() {
	for len(q.tasks) > 0 {
		fn := q.tasks[0]
		q.tasks = q.tasks[1:]
		fn()
	}
}

type poolHarness struct {
	clock   *uiloop.FakeClock
	factory *testutil.Factory
	pool    *Pool
}

func newPoolHarness(t *testing.T, n int, opts Options) *poolHarness {
	t.Helper()
	h := &poolHarness{
		clock:   uiloop.NewFakeClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
		factory: testutil.NewFactory(),
	}
	if opts.Workers == nil {
		opts.Workers = uiloop.Inline{}
	}
	p, err := New(uiloop.Inline{}, h.clock, h.factory, tabURLs(n), opts, nil)
	require.NoError(t, err)
	h.pool = p
	return h
}

func TestNewRejectsEmptyURLs(t *testing.T) {
	_, err := New(uiloop.Inline{}, nil, testutil.NewFactory(), nil, Options{}, nil)
	assert.ErrorIs(t, err, ErrEmptyURLs)
}

func TestInitForegroundsOnlyActive(t *testing.T) {
	h := newPoolHarness(t, 4, Options{})
	require.NoError(t, h.pool.Init(0))

	assert.Equal(t, 0, h.pool.Active())
	assert.Equal(t, 1, h.factory.Created(), "surfaces are created lazily")

	s0 := h.factory.At(0)
	require.NotNil(t, s0)
	pauses, resumes := s0.Counts()
	assert.Equal(t, 0, pauses)
	assert.Equal(t, 1, resumes)
	assert.Equal(t, []string{"https://www.hankyung.com/tab/a"}, s0.Loads)

	assert.ErrorIs(t, h.pool.Init(9), ErrIndexOutOfRange)
}

func TestSetActiveTogglesPostureExactlyOnce(t *testing.T) {
	h := newPoolHarness(t, 4, Options{})
	require.NoError(t, h.pool.Init(0))

	require.NoError(t, h.pool.SetActive(1))
	require.NoError(t, h.pool.SetActive(2))

	s1 := h.factory.At(1)
	pauses, resumes := s1.Counts()
	assert.Equal(t, 1, pauses, "previous active is backgrounded once")
	assert.Equal(t, 1, resumes, "new active is foregrounded once")

	s2 := h.factory.At(2)
	pauses, resumes = s2.Counts()
	assert.Equal(t, 0, pauses)
	assert.Equal(t, 1, resumes)

	s0 := h.factory.At(0)
	pauses, resumes = s0.Counts()
	assert.Equal(t, 1, pauses, "already-background surfaces are left alone")
	assert.Equal(t, 1, resumes)

	require.NoError(t, h.pool.SetActive(2))
	pauses, resumes = s2.Counts()
	assert.Equal(t, 0, pauses)
	assert.Equal(t, 1, resumes, "re-activating the active index is a no-op")
}

func TestSetActiveCoalescesNestedRequests(t *testing.T) {
	h := newPoolHarness(t, 5, Options{})
	var changes []ActiveChange
	h.pool.OnActiveChanged(func(c ActiveChange) {
		changes = append(changes, c)
		if c.To == 1 {
			require.NoError(t, h.pool.SetActive(2))
			require.NoError(t, h.pool.SetActive(3))
		}
	})

	require.NoError(t, h.pool.Init(0))
	require.NoError(t, h.pool.SetActive(1))

	assert.Equal(t, 3, h.pool.Active())
	assert.Equal(t, []ActiveChange{{From: -1, To: 0}, {From: 0, To: 1}, {From: 1, To: 3}}, changes)
	assert.Nil(t, h.factory.At(2), "superseded pending target is never applied")
}

func TestGetCreatesBackgroundSurfaceWithStableID(t *testing.T) {
	h := newPoolHarness(t, 3, Options{})
	require.NoError(t, h.pool.Init(0))

	id, err := h.pool.Get(2)
	require.NoError(t, err)
	again, err := h.pool.Get(2)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	pauses, resumes := h.factory.At(2).Counts()
	assert.Equal(t, 1, pauses)
	assert.Equal(t, 0, resumes)

	_, err = h.pool.Get(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestPreloadAroundStaysInRangeAndRespectsCooldown(t *testing.T) {
	h := newPoolHarness(t, 6, Options{})
	require.NoError(t, h.pool.Init(0))

	h.pool.PreloadAround(0, 2)
	assert.Equal(t, 3, h.factory.Created())
	for _, idx := range []int{1, 2} {
		s := h.factory.At(idx)
		require.NotNil(t, s, "index %d", idx)
		assert.Len(t, s.Loads, 1)
	}
	assert.Nil(t, h.factory.At(3))

	h.clock.Advance(10 * time.Second)
	h.pool.PreloadAround(0, 2)
	assert.Len(t, h.factory.At(1).Loads, 1, "no re-warm inside the cooldown")

	h.factory.At(1).Emit(ports.Signal{Kind: ports.SignalFailed, Err: assert.AnError})
	lc, ok := h.pool.Lifecycle(1)
	require.True(t, ok)
	require.Equal(t, domain.StateLoaded, lc.State(), "watchdog already settled the load")

	h.clock.Advance(25 * time.Second)
	h.pool.PreloadAround(0, 2)
	assert.Len(t, h.factory.At(1).Loads, 1, "loaded surfaces are not reloaded")
	at, ok := h.pool.WarmedAt(1)
	require.True(t, ok)
	assert.Equal(t, h.clock.Now(), at)
}

func TestPreloadReloadsFailedSurfaceAfterCooldown(t *testing.T) {
	h := newPoolHarness(t, 4, Options{})
	require.NoError(t, h.pool.Init(0))
	h.pool.PreloadAround(0, 1)

	h.factory.At(1).Emit(ports.Signal{Kind: ports.SignalFailed, Err: assert.AnError})
	lc, _ := h.pool.Lifecycle(1)
	require.Equal(t, domain.StateFailed, lc.State())

	h.clock.Advance(29 * time.Second)
	h.pool.PreloadAround(0, 1)
	assert.Len(t, h.factory.At(1).Loads, 1)

	h.clock.Advance(2 * time.Second)
	h.pool.PreloadAround(0, 1)
	assert.Len(t, h.factory.At(1).Loads, 2)
}

func TestPreloadNeverLeavesBounds(t *testing.T) {
	h := newPoolHarness(t, 3, Options{})
	require.NoError(t, h.pool.Init(2))
	h.pool.PreloadAround(2, 5)

	for _, st := range h.pool.States() {
		assert.GreaterOrEqual(t, st.Index, 0)
		assert.Less(t, st.Index, 3)
	}
	assert.Equal(t, 3, h.pool.LiveCount())
}

func TestPreloadPlanDroppedAfterURLChange(t *testing.T) {
	workers := &queueExecutor{}
	h := newPoolHarness(t, 5, Options{Workers: workers})
	require.NoError(t, h.pool.Init(0))

	h.pool.PreloadAround(0, 2)
	require.NoError(t, h.pool.SetURLs(tabURLs(5)))
	workers.drain()

	assert.Equal(t, 1, h.factory.Created())
}

func TestSetURLsResetsBookkeepingAndReplacesChangedSurfaces(t *testing.T) {
	h := newPoolHarness(t, 4, Options{})
	require.NoError(t, h.pool.Init(0))
	h.pool.PreloadAround(0, 1)
	oldID, err := h.pool.Get(1)
	require.NoError(t, err)

	urls := tabURLs(4)
	urls[1] = "https://www.hankyung.com/tab/changed"
	require.NoError(t, h.pool.SetURLs(urls))

	assert.True(t, h.factory.Surfaces[oldID].Closed)
	_, warmed := h.pool.WarmedAt(1)
	assert.False(t, warmed)

	newID, err := h.pool.Get(1)
	require.NoError(t, err)
	assert.NotEqual(t, oldID, newID)
	assert.Equal(t, []string{"https://www.hankyung.com/tab/changed"}, h.factory.At(1).Loads)
	assert.False(t, h.factory.At(0).Closed, "unchanged surfaces survive")

	assert.ErrorIs(t, h.pool.SetURLs(nil), ErrEmptyURLs)
}

func TestSetURLsRecreatesActiveSurface(t *testing.T) {
	h := newPoolHarness(t, 3, Options{})
	require.NoError(t, h.pool.Init(2))
	first := h.factory.At(2)

	require.NoError(t, h.pool.SetURLs(tabURLs(2)))
	assert.True(t, first.Closed)
	assert.Equal(t, 1, h.pool.Active())
	_, resumes := h.factory.At(1).Counts()
	assert.Equal(t, 1, resumes)
}

func TestMemoryPressureBroadcastsWithoutDestroying(t *testing.T) {
	h := newPoolHarness(t, 4, Options{})
	require.NoError(t, h.pool.Init(1))
	h.pool.PreloadAround(1, 1)
	require.Equal(t, 3, h.pool.LiveCount())

	assert.Equal(t, 3, h.pool.OnMemoryPressure())
	for _, idx := range []int{0, 1, 2} {
		s := h.factory.At(idx)
		require.Len(t, s.Scripts, 1)
		assert.Contains(t, s.Scripts[0], "limit = 10")
		assert.False(t, s.Closed)
	}
	assert.Equal(t, 3, h.pool.LiveCount())
}

func TestBoundedPoolEvictsLeastRecentButNeverActive(t *testing.T) {
	h := newPoolHarness(t, 8, Options{MaxLive: 1})
	require.NoError(t, h.pool.Init(0))

	for _, idx := range []int{1, 2, 3} {
		_, err := h.pool.Get(idx)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, h.pool.LiveCount(), "bound is clamped to three")
	_, ok := h.pool.Lifecycle(0)
	assert.True(t, ok, "active surface survives eviction")
	assert.True(t, h.factory.At(1).Closed)

	require.NoError(t, h.pool.SetActive(4))
	assert.Equal(t, 3, h.pool.LiveCount())
	_, ok = h.pool.Lifecycle(4)
	assert.True(t, ok)
}

func TestLoadInSurfaceAndRetry(t *testing.T) {
	h := newPoolHarness(t, 2, Options{LoadHeaders: map[string]string{"X-App-Version": "7"}})
	require.NoError(t, h.pool.Init(0))
	id, err := h.pool.Get(0)
	require.NoError(t, err)

	require.NoError(t, h.pool.LoadInSurface(id, "https://www.hankyung.com/article/1", map[string]string{"X-App": "1"}))
	s := h.factory.At(0)
	assert.Equal(t, "https://www.hankyung.com/article/1", s.Loads[len(s.Loads)-1])
	assert.Equal(t, map[string]string{"X-App-Version": "7", "X-App": "1"}, s.LastHeaders)

	assert.ErrorIs(t, h.pool.LoadInSurface(99, "https://x", nil), ErrUnknownSurface)

	require.NoError(t, h.pool.Retry(0))
	assert.Len(t, s.Loads, 3)
	assert.ErrorIs(t, h.pool.Retry(1), ErrUnknownSurface)
}

func TestTransitionsAreReportedWithIndex(t *testing.T) {
	h := newPoolHarness(t, 2, Options{})
	var seen []int
	h.pool.OnTransition(func(index int, tr domain.Transition) {
		if tr.To == domain.StateLoading {
			seen = append(seen, index)
		}
	})
	require.NoError(t, h.pool.Init(1))
	h.pool.PreloadAround(1, 1)
	assert.Equal(t, []int{1, 0}, seen)
}

func TestCloseTearsDownEverySurface(t *testing.T) {
	h := newPoolHarness(t, 3, Options{})
	require.NoError(t, h.pool.Init(0))
	h.pool.PreloadAround(0, 2)

	h.pool.Close()
	for _, idx := range []int{0, 1, 2} {
		assert.True(t, h.factory.At(idx).Closed)
	}
	assert.Zero(t, h.clock.Pending())
	assert.ErrorIs(t, h.pool.SetActive(1), ErrClosed)
}

func TestPreloadMarshalsBackToLoop(t *testing.T) {
	loop := uiloop.New(16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = loop.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	factory := testutil.NewFactory()
	var (
		p       *Pool
		initErr error
	)
	require.NoError(t, loop.Do(ctx, func() {
		p, initErr = New(loop, uiloop.NewFakeClock(time.Now()), factory, tabURLs(5), Options{}, nil)
		if initErr == nil {
			initErr = p.Init(2)
			p.PreloadAround(2, 2)
		}
	}))
	require.NoError(t, initErr)

	require.Eventually(t, func() bool {
		var n int
		_ = loop.Do(ctx, func() { n = p.LiveCount() })
		return n == 5
	}, time.Second, 5*time.Millisecond)
}
