package store

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/drv/internal/domain"
)

// RecordAction appends a to the journal.
func (db *DB) RecordAction(ctx context.Context, a domain.Activity) error {
	if a.ID == "" {
		return errors.New("record action: missing id")
	}
	if a.Occurred.IsZero() {
		a.Occurred = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO activity (id, kind, order_id, detail, outcome, error, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Kind, a.OrderID.String(), a.Detail, a.Outcome, a.Error, a.Occurred.UnixMilli())
	return err
}

// ListActions returns up to limit entries, newest first. A non-empty
// orderID restricts the result to that order.
func (db *DB) ListActions(ctx context.Context, orderID domain.ID, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, kind, order_id, detail, outcome, error, occurred_at FROM activity`
	args := []any{}
	if orderID != "" {
		query += ` WHERE order_id = ?`
		args = append(args, orderID.String())
	}
	query += ` ORDER BY occurred_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Activity
	for rows.Next() {
		var (
			a     domain.Activity
			order string
			ms    int64
		)
		if err := rows.Scan(&a.ID, &a.Kind, &order, &a.Detail, &a.Outcome, &a.Error, &ms); err != nil {
			return nil, err
		}
		a.OrderID = domain.ID(order)
		a.Occurred = time.UnixMilli(ms)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune deletes entries older than cutoff and reports how many went.
func (db *DB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM activity WHERE occurred_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
