package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Event is one entry of the session event log.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Seq       int64          `json:"seq"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventFilter narrows ReadEvents. Zero fields match everything.
type EventFilter struct {
	SessionID string
	Kind      string

	// Limit keeps only the most recent Limit matches. Results stay in
	// ascending seq order.
	Limit int
}

// AppendEvent inserts an event. Uses ON CONFLICT(id) DO NOTHING for
// idempotency - duplicate IDs are silently ignored.
func (s *Store) AppendEvent(ctx context.Context, e Event) error {
	payload, err := marshalPayload(e.Payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, session_id, seq, kind, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, e.SessionID, e.Seq, e.Kind, payload, created.UnixMilli())
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ReadEvents returns the events matching f ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}

	query := `SELECT id, session_id, seq, kind, payload, created_at FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC, id COLLATE BINARY DESC LIMIT ?)`
		args = append(args, f.Limit)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// MaxEventSeq returns the highest seq in the log, or 0 when it is empty.
// Used to resume the logical clock across sessions.
func (s *Store) MaxEventSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max event seq: %w", err)
	}
	return seq.Int64, nil
}

// Sessions returns the distinct session ids in order of first appearance.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id
		FROM events
		GROUP BY session_id
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return ids, nil
}

func scanEvent(rows *sql.Rows) (Event, error) {
	var (
		e       Event
		payload string
		created int64
	)
	if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &e.Kind, &payload, &created); err != nil {
		return Event{}, fmt.Errorf("scan event: %w", err)
	}
	p, err := unmarshalPayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	e.Payload = p
	e.CreatedAt = time.UnixMilli(created).UTC()
	return e, nil
}
