package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Pages returns the ledger rows for one entity, ordered by path.
func (s *Store) Pages(ctx context.Context, axis Axis, entity string) ([]PublishedPage, error) {
	if err := checkAxis(axis); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT entity, path, checksum, published_at FROM published_pages WHERE axis = ? AND entity = ? ORDER BY path`,
		string(axis), entity,
	)
	if err != nil {
		return nil, fmt.Errorf("list pages for %s %s: %w", axis, entity, err)
	}
	defer rows.Close()

	var out []PublishedPage
	for rows.Next() {
		var (
			page      PublishedPage
			checksum  sql.NullString
			published string
		)
		if err := rows.Scan(&page.Entity, &page.Path, &checksum, &published); err != nil {
			return nil, err
		}
		page.Axis = axis
		page.Checksum = checksum.String
		page.PublishedAt = parseTime(published)
		out = append(out, page)
	}
	return out, rows.Err()
}

// Page looks up a single ledger row by path. A missing row yields nil, nil.
func (s *Store) Page(ctx context.Context, axis Axis, path string) (*PublishedPage, error) {
	if err := checkAxis(axis); err != nil {
		return nil, err
	}
	var (
		page      = PublishedPage{Axis: axis, Path: path}
		checksum  sql.NullString
		published string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT entity, checksum, published_at FROM published_pages WHERE axis = ? AND path = ?`,
		string(axis), path,
	).Scan(&page.Entity, &checksum, &published)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", path, err)
	}
	page.Checksum = checksum.String
	page.PublishedAt = parseTime(published)
	return &page, nil
}

// RecordPages upserts ledger rows for pages that were just written.
func (s *Store) RecordPages(ctx context.Context, axis Axis, pages []PublishedPage) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	if len(pages) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	now := s.stamp()
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		for _, page := range pages {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO published_pages (axis, entity, path, checksum, published_at) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(axis, path) DO UPDATE SET entity = excluded.entity, checksum = excluded.checksum, published_at = excluded.published_at`,
				string(axis), page.Entity, page.Path, nullableString(page.Checksum), now,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("record pages: %w", err)
	}
	return nil
}

// RemovePages drops ledger rows. A path ending in "/" removes every row
// underneath it.
func (s *Store) RemovePages(ctx context.Context, axis Axis, paths []string) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		for _, path := range paths {
			if strings.HasSuffix(path, "/") {
				// length and substr both count characters, unlike len.
				_, err = tx.ExecContext(ctx,
					`DELETE FROM published_pages WHERE axis = ? AND (path = ? OR substr(path, 1, length(?)) = ?)`,
					string(axis), path, path, path,
				)
			} else {
				_, err = tx.ExecContext(ctx,
					`DELETE FROM published_pages WHERE axis = ? AND path = ?`, string(axis), path)
			}
			if err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("remove pages: %w", err)
	}
	return nil
}
