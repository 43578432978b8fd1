// internal/history/repo.go
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/kvlogger/internal/poller"
)

// SQLite stores samples and device events.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

const insertSample = `INSERT INTO samples (cycle_id, device, name, format, recorded_at, value, raw) VALUES (?, ?, ?, ?, ?, ?, ?)`

// Append stores every value of a successful cycle in one transaction,
// all rows sharing the cycle id. Failed cycles store nothing.
func (r *SQLite) Append(ctx context.Context, res poller.PollResult) (int, error) {
	if res.Err != nil || res.Frame.Len() == 0 {
		return 0, nil
	}

	cycle := res.CycleID
	if cycle == uuid.Nil {
		cycle = uuid.New()
	}
	at := res.At
	if at.IsZero() {
		at = time.Now()
	}
	ts := formatTS(at)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, key := range res.Frame.Keys {
		v := res.Frame.Values[key]

		var val *float64
		if f := v.Float64(); !math.IsNaN(f) && !math.IsInf(f, 0) {
			val = &f
		}

		if _, err := tx.ExecContext(ctx, insertSample,
			cycle.String(),
			res.DeviceID,
			key,
			v.Format.String(),
			ts,
			val,
			v.Int,
		); err != nil {
			return 0, fmt.Errorf("history: insert %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit: %w", err)
	}
	return res.Frame.Len(), nil
}

// List returns samples matching f, oldest first.
func (r *SQLite) List(ctx context.Context, f Filter) ([]Sample, error) {
	var (
		conds []string
		args  []any
	)

	if name := strings.TrimSpace(f.Name); name != "" {
		conds = append(conds, "name = ?")
		args = append(args, name)
	}
	if !f.From.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, formatTS(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "recorded_at <= ?")
		args = append(args, formatTS(f.To))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	q := `SELECT id, cycle_id, device, name, format, recorded_at, value, raw FROM samples`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY recorded_at ASC, id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Sample, 0, 64)
	for rows.Next() {
		var (
			s   Sample
			ts  sqlTime
			val sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &s.CycleID, &s.Device, &s.Name, &s.Format, &ts, &val, &s.Raw); err != nil {
			return nil, err
		}
		s.RecordedAt = ts.t
		if val.Valid {
			f := val.Float64
			s.Value = &f
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Prune deletes samples recorded before t and returns the count.
func (r *SQLite) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM samples WHERE recorded_at < ?`, formatTS(before))
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}

// AppendEvent records a device status transition.
func (r *SQLite) AppendEvent(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_events (id, device, occurred_at, status, code, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Device,
		formatTS(e.OccurredAt),
		e.Status,
		int64(e.Code),
		e.Message,
	)
	return err
}

// ListEvents returns up to limit events, newest first.
func (r *SQLite) ListEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device, occurred_at, status, code, message FROM device_events ORDER BY occurred_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e    Event
			ts   sqlTime
			code int64
		)
		if err := rows.Scan(&e.ID, &e.Device, &ts, &e.Status, &code, &e.Message); err != nil {
			return nil, err
		}
		e.OccurredAt = ts.t
		e.Code = uint16(code)
		out = append(out, e)
	}
	return out, rows.Err()
}
