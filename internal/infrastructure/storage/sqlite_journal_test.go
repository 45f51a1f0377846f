package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsShell/internal/domain"
)

func openTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "journal.db")
	j, err := OpenSQLiteJournal(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndListDecisions(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	base := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordDecision(ctx, domain.DecisionRecord{
		ID: "a", SessionID: "s", CallSite: domain.CallSiteDetail, URL: "https://www.hankyung.com/a.pdf",
		Category: domain.RoutePDF, Action: domain.ActionCancel,
		Commands: []domain.CommandKind{domain.CmdPresentPDFViewer}, Reason: "special_category", At: base,
	}))
	require.NoError(t, j.RecordDecision(ctx, domain.DecisionRecord{
		ID: "b", SessionID: "s", CallSite: domain.CallSiteTabContent, URL: "https://www.hankyung.com/economy",
		Category: domain.RoutePlainWeb, Target: domain.TargetCurrentSurface, Action: domain.ActionAllow,
		Reason: "resolved", At: base.Add(time.Second),
	}))
	// Re-recording the same ID updates in place.
	require.NoError(t, j.RecordDecision(ctx, domain.DecisionRecord{
		ID: "a", SessionID: "s", CallSite: domain.CallSiteDetail, URL: "https://www.hankyung.com/a.pdf",
		Category: domain.RoutePDF, Action: domain.ActionCancel, Reason: "again", At: base,
	}))

	recs, err := j.RecentDecisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, domain.TargetCurrentSurface, recs[0].Target)
	assert.Nil(t, recs[0].Commands)
	assert.Equal(t, "a", recs[1].ID)
	assert.Equal(t, "again", recs[1].Reason)
	assert.True(t, recs[1].At.Equal(base))

	limited, err := j.RecentDecisions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordTransitions(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	at := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

	for _, tr := range []domain.Transition{
		{Surface: 4, From: domain.StateIdle, To: domain.StateLoading, Trigger: "load", At: at},
		{Surface: 4, From: domain.StateLoading, To: domain.StateLoaded, Trigger: "watchdog", Forced: true, At: at.Add(10 * time.Second)},
		{Surface: 5, From: domain.StateIdle, To: domain.StateLoading, Trigger: "load", At: at},
	} {
		require.NoError(t, j.RecordTransition(ctx, domain.TransitionRecord{SessionID: "s", URL: "https://www.hankyung.com/", Transition: tr}))
	}

	got, err := j.TransitionsFor(ctx, "s", 4)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.StateLoading, got[0].To)
	assert.True(t, got[1].Forced)
	assert.Equal(t, "watchdog", got[1].Trigger)
}

func TestCommandListRoundTrip(t *testing.T) {
	kinds := []domain.CommandKind{domain.CmdLoadInSurface, domain.CmdPresentMenu}
	assert.Equal(t, kinds, splitCommands(joinCommands(kinds)))
	assert.Nil(t, splitCommands(joinCommands(nil)))
}
