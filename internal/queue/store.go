package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const requestColumns = "id, entity, activity, argument, attempts, failures, created_at, completed_at"

// ErrUnknownAxis is returned when a caller passes an axis outside Axes().
var ErrUnknownAxis = errors.New("unknown axis")

func checkAxis(axis Axis) error {
	if _, ok := axisActivities[axis]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAxis, axis)
	}
	return nil
}

func validateNew(req NewRequest) error {
	if err := checkAxis(req.Axis); err != nil {
		return err
	}
	if strings.TrimSpace(req.Entity) == "" {
		return fmt.Errorf("enqueue %s: entity is required", req.Axis)
	}
	if _, err := req.Axis.ParseActivity(string(req.Activity)); err != nil {
		return err
	}
	return nil
}

// Enqueue inserts a single pending request.
func (s *Store) Enqueue(ctx context.Context, req NewRequest) (*Request, error) {
	if err := validateNew(req); err != nil {
		return nil, err
	}
	now := s.stamp()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO `+req.Axis.table()+` (entity, activity, argument, attempts, created_at) VALUES (?, ?, ?, 0, ?)`,
		req.Entity, string(req.Activity), nullableString(req.Argument), now,
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", req, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Request{
		ID:        id,
		Axis:      req.Axis,
		Entity:    req.Entity,
		Activity:  req.Activity,
		Argument:  req.Argument,
		CreatedAt: parseTime(now),
	}, nil
}

// EnqueueMany inserts every request in one transaction. Either all rows land
// or none do.
func (s *Store) EnqueueMany(ctx context.Context, reqs []NewRequest) (int, error) {
	if len(reqs) == 0 {
		return 0, nil
	}
	for _, req := range reqs {
		if err := validateNew(req); err != nil {
			return 0, err
		}
	}
	ctx = ensureContext(ctx)
	now := s.stamp()
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		for _, req := range reqs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO `+req.Axis.table()+` (entity, activity, argument, attempts, created_at) VALUES (?, ?, ?, 0, ?)`,
				req.Entity, string(req.Activity), nullableString(req.Argument), now,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue batch: %w", err)
	}
	return len(reqs), nil
}

// FetchPending returns up to limit pending requests for axis, oldest first,
// and increments attempts on exactly the returned rows. When maxFailures is
// positive, rows whose failure count reached it are skipped.
func (s *Store) FetchPending(ctx context.Context, axis Axis, limit, maxFailures int) ([]*Request, error) {
	if err := checkAxis(axis); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	ctx = ensureContext(ctx)

	query := `SELECT ` + requestColumns + ` FROM ` + axis.table() + ` WHERE completed_at IS NULL`
	args := []any{}
	if maxFailures > 0 {
		query += ` AND failures < ?`
		args = append(args, maxFailures)
	}
	query += ` ORDER BY created_at, id LIMIT ?`
	args = append(args, limit)

	var batch []*Request
	err := retryOnBusy(ctx, func() error {
		batch = nil
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		for rows.Next() {
			req, err := scanRequest(rows, axis)
			if err != nil {
				_ = rows.Close()
				return err
			}
			batch = append(batch, req)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()
		if len(batch) == 0 {
			return tx.Commit()
		}

		ids := make([]any, len(batch))
		for i, req := range batch {
			ids[i] = req.ID
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE `+axis.table()+` SET attempts = attempts + 1 WHERE id IN (`+makePlaceholders(len(ids))+`)`,
			ids...,
		); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("fetch pending %s: %w", axis, err)
	}
	for _, req := range batch {
		req.Attempts++
	}
	return batch, nil
}

// MarkComplete stamps completed_at on the given requests. Rows that were
// already completed keep their original timestamp.
func (s *Store) MarkComplete(ctx context.Context, axis Axis, ids []int64) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, s.stamp())
	for _, id := range ids {
		args = append(args, id)
	}
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE `+axis.table()+` SET completed_at = ? WHERE completed_at IS NULL AND id IN (`+makePlaceholders(len(ids))+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("mark complete %s: %w", axis, err)
	}
	return nil
}

// MarkFailed counts a failure caused by the requests' own entity, such as a
// render error. Attempts spent on backend outages are not counted here.
func (s *Store) MarkFailed(ctx context.Context, axis Axis, ids []int64) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE `+axis.table()+` SET failures = failures + 1 WHERE completed_at IS NULL AND id IN (`+makePlaceholders(len(ids))+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("mark failed %s: %w", axis, err)
	}
	return nil
}

// Get fetches a request by identifier. A missing row yields nil, nil.
func (s *Store) Get(ctx context.Context, axis Axis, id int64) (*Request, error) {
	if err := checkAxis(axis); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+requestColumns+` FROM `+axis.table()+` WHERE id = ?`, id)
	req, err := scanRequest(row, axis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s request: %w", axis, err)
	}
	return req, nil
}

// List returns the pending requests for axis, or every request when
// includeCompleted is set, oldest first.
func (s *Store) List(ctx context.Context, axis Axis, includeCompleted bool) ([]*Request, error) {
	if err := checkAxis(axis); err != nil {
		return nil, err
	}
	query := `SELECT ` + requestColumns + ` FROM ` + axis.table()
	if !includeCompleted {
		query += ` WHERE completed_at IS NULL`
	}
	query += ` ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ensureContext(ctx), query)
	if err != nil {
		return nil, fmt.Errorf("list %s requests: %w", axis, err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows, axis)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Summary groups the pending requests for axis by entity. Entities whose
// requests all reached maxFailures are flagged as stalled.
func (s *Store) Summary(ctx context.Context, axis Axis, maxFailures int) ([]EntitySummary, error) {
	pending, err := s.List(ctx, axis, false)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var out []EntitySummary
	seen := make(map[string]map[Activity]struct{})
	live := make(map[string]bool)
	for _, req := range pending {
		pos, ok := index[req.Entity]
		if !ok {
			pos = len(out)
			index[req.Entity] = pos
			out = append(out, EntitySummary{Entity: req.Entity, Oldest: req.CreatedAt})
			seen[req.Entity] = make(map[Activity]struct{})
		}
		summary := &out[pos]
		summary.Pending++
		if req.Attempts > summary.MaxAttempts {
			summary.MaxAttempts = req.Attempts
		}
		if req.CreatedAt.Before(summary.Oldest) {
			summary.Oldest = req.CreatedAt
		}
		if _, dup := seen[req.Entity][req.Activity]; !dup {
			seen[req.Entity][req.Activity] = struct{}{}
			summary.Activities = append(summary.Activities, req.Activity)
		}
		if req.Failures > summary.Failures {
			summary.Failures = req.Failures
		}
		if maxFailures <= 0 || req.Failures < maxFailures {
			live[req.Entity] = true
		}
	}
	for i := range out {
		sortActivities(out[i].Activities)
		out[i].Stalled = !live[out[i].Entity]
	}
	return out, nil
}

// PendingCount reports how many requests on axis are still awaiting completion.
func (s *Store) PendingCount(ctx context.Context, axis Axis) (int, error) {
	if err := checkAxis(axis); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM `+axis.table()+` WHERE completed_at IS NULL`,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending %s: %w", axis, err)
	}
	return count, nil
}

// PurgeCompleted deletes completed requests finished before cutoff. It returns
// the number of rows removed.
func (s *Store) PurgeCompleted(ctx context.Context, axis Axis, cutoff time.Time) (int64, error) {
	if err := checkAxis(axis); err != nil {
		return 0, err
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM `+axis.table()+` WHERE completed_at IS NOT NULL AND completed_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge completed %s: %w", axis, err)
	}
	return res.RowsAffected()
}
