package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Delivery outcomes.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Page size limits for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// timeLayout is fixed width so created_at sorts and compares as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrInvalidEntry is returned by Create for entries missing required fields.
var ErrInvalidEntry = errors.New("audit: invalid delivery entry")

// Entry is one delivery trail row.
type Entry struct {
	ID          string    `json:"id"`
	Class       uint32    `json:"class"`
	Transport   string    `json:"transport"`
	Address     string    `json:"address"`
	ProcessID   uint32    `json:"process_id"`
	EventObject string    `json:"event_object"`
	ToState     string    `json:"to_state"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	DurationMS  float64   `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Class   *uint32 // optional: one notification class
	Outcome string  // optional: sent or failed
	Limit   int     // default 50, max 200
	Offset  int
}

// ListResult is one page of entries, most recent first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for delivery trail storage.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository stores the trail in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new delivery trail repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Compile-time check.
var _ Repository = (*SQLiteRepository)(nil)

// Create inserts an entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.Outcome != OutcomeSent && e.Outcome != OutcomeFailed {
		return fmt.Errorf("%w: outcome %q", ErrInvalidEntry, e.Outcome)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO delivery_log (id, class_instance, transport, address, process_id,
		     event_object, to_state, outcome, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Class, e.Transport, e.Address, e.ProcessID,
		e.EventObject, e.ToState, e.Outcome, nullableString(e.Error), e.DurationMS,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting delivery entry: %w", err)
	}
	return nil
}

// nullableString returns nil for empty strings so the column stays NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Class != nil {
		conditions = append(conditions, "class_instance = ?")
		args = append(args, *filter.Class)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM delivery_log " + where //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting delivery entries: %w", err)
	}

	query := `SELECT id, class_instance, transport, address, process_id, event_object,
	              to_state, outcome, error, duration_ms, created_at
	          FROM delivery_log ` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?` //nolint:gosec // as above
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying delivery entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var errText sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Class, &e.Transport, &e.Address, &e.ProcessID,
			&e.EventObject, &e.ToState, &e.Outcome, &errText, &e.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning delivery entry: %w", err)
		}
		if errText.Valid {
			e.Error = errText.String
		}
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing delivery timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating delivery entries: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// Prune deletes entries created before the given instant and reports how
// many went.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM delivery_log WHERE created_at < ?`,
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning delivery entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning delivery entries: %w", err)
	}
	return n, nil
}
