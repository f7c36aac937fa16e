package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scorepub/internal/model"
)

// The Put helpers seed the catalog for tests and local fixtures. In
// production the scoring application writes these tables directly.

// PutSeason inserts or replaces a season.
func (c *Catalog) PutSeason(ctx context.Context, s model.Season) error {
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO seasons (id, name, start_date, end_date) VALUES (?, ?, ?, ?)`,
		s.ID, s.Name, s.Start.Format(dateLayout), s.End.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("put season %s: %w", s.ID, err)
	}
	c.Reset()
	return nil
}

// PutConference inserts or replaces a conference.
func (c *Catalog) PutConference(ctx context.Context, conf model.Conference) error {
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO conferences (id, name, url) VALUES (?, ?, ?)`,
		conf.ID, conf.Name, nullable(conf.URL))
	if err != nil {
		return fmt.Errorf("put conference %s: %w", conf.ID, err)
	}
	return nil
}

// PutSchool inserts or replaces a school.
func (c *Catalog) PutSchool(ctx context.Context, s model.School) error {
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO schools (id, name, url, conference, burgee) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Name, nullable(s.URL), nullable(s.Conference), s.Burgee)
	if err != nil {
		return fmt.Errorf("put school %s: %w", s.ID, err)
	}
	c.Reset()
	return nil
}

// PutSailor inserts or replaces a sailor.
func (c *Catalog) PutSailor(ctx context.Context, s model.Sailor) error {
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO sailors (id, name, url, school) VALUES (?, ?, ?, ?)`,
		s.ID, s.Name, nullable(s.URL), nullable(s.School))
	if err != nil {
		return fmt.Errorf("put sailor %s: %w", s.ID, err)
	}
	c.Reset()
	return nil
}

// PutRegatta inserts or replaces a regatta together with its teams and sailors.
func (c *Catalog) PutRegatta(ctx context.Context, r model.Regatta) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin regatta tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	scoring := r.Scoring
	if scoring == "" {
		scoring = model.ScoringStandard
	}
	divisions := strings.Join(r.Divisions, ",")
	if divisions == "" {
		divisions = "A"
	}
	var finalized any
	if r.FinalizedAt != nil {
		finalized = r.FinalizedAt.UTC().Format(time.RFC3339)
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO regattas
		(id, name, nick, season, private, scoring, divisions, singlehanded, has_finishes, has_rotation, has_documents, start_date, end_date, finalized_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, nullable(r.Nick), nullable(r.Season), boolToInt(r.Private), scoring, divisions,
		boolToInt(r.Singlehanded), boolToInt(r.HasFinishes), boolToInt(r.HasRotation), boolToInt(r.HasDocuments),
		dateOrNil(r.Start), dateOrNil(r.End), finalized,
	); err != nil {
		return fmt.Errorf("put regatta %s: %w", r.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM regatta_teams WHERE regatta = ?`, r.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM regatta_sailors WHERE regatta = ?`, r.ID); err != nil {
		return err
	}
	for _, p := range r.Participants {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO regatta_teams (regatta, school) VALUES (?, ?)`, r.ID, p.School); err != nil {
			return fmt.Errorf("put regatta team: %w", err)
		}
	}
	for _, sailor := range r.Attendees {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO regatta_sailors (regatta, sailor) VALUES (?, ?)`, r.ID, sailor); err != nil {
			return fmt.Errorf("put regatta sailor: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit regatta: %w", err)
	}
	c.Reset()
	return nil
}

// DeleteRegatta removes a regatta and its links.
func (c *Catalog) DeleteRegatta(ctx context.Context, id string) error {
	for _, query := range []string{
		`DELETE FROM regatta_teams WHERE regatta = ?`,
		`DELETE FROM regatta_sailors WHERE regatta = ?`,
		`DELETE FROM regattas WHERE id = ?`,
	} {
		if _, err := c.db.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("delete regatta %s: %w", id, err)
		}
	}
	c.Reset()
	return nil
}

// PutFile inserts or replaces a public file.
func (c *Catalog) PutFile(ctx context.Context, f model.File) error {
	mime := f.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	if _, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO files (name, mime_type, data) VALUES (?, ?, ?)`, f.Name, mime, f.Data); err != nil {
		return fmt.Errorf("put file %s: %w", f.Name, err)
	}
	return nil
}

// DeleteFile removes a public file.
func (c *Catalog) DeleteFile(ctx context.Context, name string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM files WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete file %s: %w", name, err)
	}
	return nil
}

func nullable(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func dateOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
