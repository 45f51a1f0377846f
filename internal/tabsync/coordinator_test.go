package tabsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsShell/internal/pool"
	"NewsShell/internal/testutil"
	"NewsShell/internal/uiloop"
)

func newCoordinator(t *testing.T, tabs int) (*Coordinator, *pool.Pool, *testutil.Indicator, *testutil.Factory) {
	t.Helper()
	urls := make([]string, tabs)
	for i := range urls {
		urls[i] = "https://www.hankyung.com/section/" + string(rune('a'+i))
	}
	factory := testutil.NewFactory()
	clock := uiloop.NewFakeClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	p, err := pool.New(uiloop.Inline{}, clock, factory, urls, pool.Options{Workers: uiloop.Inline{}}, nil)
	require.NoError(t, err)
	ind := &testutil.Indicator{}
	c := New(p, ind, 1, nil)
	return c, p, ind, factory
}

func TestActiveChangeSnapsIndicator(t *testing.T) {
	c, p, ind, _ := newCoordinator(t, 4)
	require.NoError(t, p.Init(0))
	require.NoError(t, p.SetActive(2))

	assert.Equal(t, []testutil.IndicatorUpdate{
		{From: -1, To: 0, Progress: 1},
		{From: 0, To: 2, Progress: 1},
	}, ind.Snapshot())
	assert.False(t, c.Frame(), "nothing buffered")
}

func TestDragFlushesOncePerFrame(t *testing.T) {
	c, p, ind, _ := newCoordinator(t, 3)
	require.NoError(t, p.Init(0))
	base := len(ind.Snapshot())

	c.Drag(0, 1, 0.2)
	c.Drag(0, 1, 0.25)
	c.Drag(0, 1, 0.4)
	assert.True(t, c.Frame())
	assert.False(t, c.Frame())

	updates := ind.Snapshot()[base:]
	require.Len(t, updates, 1)
	assert.Equal(t, testutil.IndicatorUpdate{From: 0, To: 1, Progress: 0.4}, updates[0])
}

func TestDragSkipsTinyDeltas(t *testing.T) {
	c, p, ind, _ := newCoordinator(t, 3)
	require.NoError(t, p.Init(0))
	base := len(ind.Snapshot())

	c.Drag(0, 1, 0.5)
	require.True(t, c.Frame())
	c.Drag(0, 1, 0.505)
	assert.False(t, c.Frame())
	c.Drag(0, 1, 0.52)
	assert.True(t, c.Frame())
	c.Drag(0, 1, 1.7)
	assert.True(t, c.Frame())

	updates := ind.Snapshot()[base:]
	require.Len(t, updates, 3)
	assert.Equal(t, 1.0, updates[2].Progress, "progress is clamped")
}

func TestActiveChangeDiscardsBufferedDrag(t *testing.T) {
	c, p, ind, _ := newCoordinator(t, 3)
	require.NoError(t, p.Init(0))

	c.Drag(0, 1, 0.6)
	require.NoError(t, p.SetActive(1))
	assert.False(t, c.Frame())

	last := ind.Snapshot()[len(ind.Snapshot())-1]
	assert.Equal(t, testutil.IndicatorUpdate{From: 0, To: 1, Progress: 1}, last)
}

func TestSelectActivatesAndPreloads(t *testing.T) {
	c, p, _, factory := newCoordinator(t, 5)
	require.NoError(t, p.Init(0))

	require.NoError(t, c.Select(3))
	assert.Equal(t, 3, p.Active())
	assert.NotNil(t, factory.At(2))
	assert.NotNil(t, factory.At(4))
	assert.Nil(t, factory.At(1))

	assert.ErrorIs(t, c.Select(7), pool.ErrIndexOutOfRange)
}
