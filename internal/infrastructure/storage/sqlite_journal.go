package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS navigation_decisions (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	call_site   TEXT NOT NULL,
	url         TEXT NOT NULL,
	category    TEXT NOT NULL,
	target      TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	commands    TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	decided_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_navigation_decisions_decided_at ON navigation_decisions(decided_at);
CREATE TABLE IF NOT EXISTS surface_transitions (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	surface_id  INTEGER NOT NULL,
	url         TEXT NOT NULL,
	from_state  TEXT NOT NULL,
	to_state    TEXT NOT NULL,
	cause       TEXT NOT NULL,
	forced      INTEGER NOT NULL DEFAULT 0,
	occurred_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_surface_transitions_surface ON surface_transitions(session_id, surface_id);
`

const timeLayout = time.RFC3339Nano

// SQLiteJournal persists navigation decisions and lifecycle transitions.
type SQLiteJournal struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

var _ ports.Journal = (*SQLiteJournal)(nil)

// OpenSQLiteJournal opens dsn with the pure-Go sqlite driver and ensures the schema.
func OpenSQLiteJournal(ctx context.Context, dsn string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	j := NewSQLiteJournal(db)
	if err := j.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// NewSQLiteJournal wires an existing sql.DB.
func NewSQLiteJournal(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db, qb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
}

// Migrate creates the journal tables when missing.
func (j *SQLiteJournal) Migrate(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (j *SQLiteJournal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordDecision upserts a decision by ID.
func (j *SQLiteJournal) RecordDecision(ctx context.Context, rec domain.DecisionRecord) error {
	if j.db == nil {
		return nil
	}

	query, args, err := j.qb.Insert("navigation_decisions").
		Columns("id", "session_id", "call_site", "url", "category", "target", "action", "commands", "reason", "decided_at").
		Values(rec.ID, rec.SessionID, string(rec.CallSite), rec.URL, string(rec.Category), string(rec.Target),
			string(rec.Action), joinCommands(rec.Commands), rec.Reason, rec.At.UTC().Format(timeLayout)).
		Suffix("ON CONFLICT(id) DO UPDATE SET action = excluded.action, commands = excluded.commands, reason = excluded.reason").
		ToSql()
	if err != nil {
		return fmt.Errorf("build decision insert: %w", err)
	}

	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert decision %s: %w", rec.ID, err)
	}
	return nil
}

// RecordTransition appends one lifecycle transition.
func (j *SQLiteJournal) RecordTransition(ctx context.Context, rec domain.TransitionRecord) error {
	if j.db == nil {
		return nil
	}

	tr := rec.Transition
	forced := 0
	if tr.Forced {
		forced = 1
	}
	query, args, err := j.qb.Insert("surface_transitions").
		Columns("session_id", "surface_id", "url", "from_state", "to_state", "cause", "forced", "occurred_at").
		Values(rec.SessionID, int64(tr.Surface), rec.URL, string(tr.From), string(tr.To), tr.Trigger, forced, tr.At.UTC().Format(timeLayout)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build transition insert: %w", err)
	}

	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// RecentDecisions returns up to limit decisions, newest first.
func (j *SQLiteJournal) RecentDecisions(ctx context.Context, limit int) ([]domain.DecisionRecord, error) {
	if j.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query, args, err := j.qb.Select("id", "session_id", "call_site", "url", "category", "target", "action", "commands", "reason", "decided_at").
		From("navigation_decisions").
		OrderBy("decided_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build decision query: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []domain.DecisionRecord
	for rows.Next() {
		var (
			rec                                      domain.DecisionRecord
			site, category, target, action, commands string
			at                                       string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &site, &rec.URL, &category, &target, &action, &commands, &rec.Reason, &at); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		rec.CallSite = domain.CallSite(site)
		rec.Category = domain.RouteCategory(category)
		rec.Target = domain.BrowserTarget(target)
		rec.Action = domain.Action(action)
		rec.Commands = splitCommands(commands)
		if rec.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("parse decided_at %q: %w", at, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// TransitionsFor returns the recorded transitions of one surface in order.
func (j *SQLiteJournal) TransitionsFor(ctx context.Context, sessionID string, surface domain.SurfaceID) ([]domain.Transition, error) {
	query, args, err := j.qb.Select("from_state", "to_state", "cause", "forced", "occurred_at").
		From("surface_transitions").
		Where(sq.Eq{"session_id": sessionID, "surface_id": int64(surface)}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build transition query: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transition
	for rows.Next() {
		var (
			from, to, trigger, at string
			forced                int
		)
		if err := rows.Scan(&from, &to, &trigger, &forced, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		ts, err := time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("parse occurred_at %q: %w", at, err)
		}
		out = append(out, domain.Transition{
			Surface: surface,
			From:    domain.LifecycleState(from),
			To:      domain.LifecycleState(to),
			Trigger: trigger,
			Forced:  forced == 1,
			At:      ts,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func joinCommands(kinds []domain.CommandKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

func splitCommands(raw string) []domain.CommandKind {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]domain.CommandKind, len(parts))
	for i, p := range parts {
		out[i] = domain.CommandKind(p)
	}
	return out
}
