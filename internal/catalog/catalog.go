// Package catalog reads scoring entities out of the shared SQLite database
// and implements model.Repository for the publisher.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"scorepub/internal/model"
)

//go:embed schema.sql
var schemaSQL string

const dateLayout = "2006-01-02"

// Catalog is a SQLite-backed model.Repository with a per-batch lookup cache.
type Catalog struct {
	db  *sql.DB
	now func() time.Time

	mu      sync.Mutex
	regatta map[string]*model.Regatta
	schools map[string]*model.School
	sailors map[string]*model.Sailor
	current *model.Season
}

var _ model.Repository = (*Catalog)(nil)
var _ model.Resetter = (*Catalog)(nil)

// Open connects to the catalog tables in the database at path.
func Open(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}
	c := &Catalog{db: db, now: time.Now}
	c.Reset()
	return c, nil
}

// Close closes the database handle.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SetClock overrides the time source used to resolve the current season.
func (c *Catalog) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Reset drops cached lookups so the next batch reads fresh rows.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regatta = make(map[string]*model.Regatta)
	c.schools = make(map[string]*model.School)
	c.sailors = make(map[string]*model.Sailor)
	c.current = nil
}

// Regatta loads a regatta with its participants and attendees.
func (c *Catalog) Regatta(ctx context.Context, id string) (*model.Regatta, error) {
	c.mu.Lock()
	if cached, ok := c.regatta[id]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var (
		r            = &model.Regatta{ID: id}
		nick         sql.NullString
		season       sql.NullString
		private      int
		divisions    string
		singlehanded int
		finishes     int
		rotation     int
		documents    int
		startRaw     sql.NullString
		endRaw       sql.NullString
		finalizedRaw sql.NullString
	)
	err := c.db.QueryRowContext(ctx, `SELECT name, nick, season, private, scoring, divisions, singlehanded,
		has_finishes, has_rotation, has_documents, start_date, end_date, finalized_at
		FROM regattas WHERE id = ?`, id).Scan(
		&r.Name, &nick, &season, &private, &r.Scoring, &divisions, &singlehanded,
		&finishes, &rotation, &documents, &startRaw, &endRaw, &finalizedRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load regatta %s: %w", id, err)
	}
	r.Nick = nick.String
	r.Season = season.String
	r.Private = private != 0
	r.Divisions = splitList(divisions)
	r.Singlehanded = singlehanded != 0
	r.HasFinishes = finishes != 0
	r.HasRotation = rotation != 0
	r.HasDocuments = documents != 0
	r.Start = parseDate(startRaw.String)
	r.End = parseDate(endRaw.String)
	if finalizedRaw.Valid && finalizedRaw.String != "" {
		if ts, err := time.Parse(time.RFC3339, finalizedRaw.String); err == nil {
			r.FinalizedAt = &ts
		}
	}

	rows, err := c.db.QueryContext(ctx, `SELECT t.school, COALESCE(s.conference, '')
		FROM regatta_teams t LEFT JOIN schools s ON s.id = t.school
		WHERE t.regatta = ? ORDER BY t.school`, id)
	if err != nil {
		return nil, fmt.Errorf("load regatta teams: %w", err)
	}
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.School, &p.Conference); err != nil {
			rows.Close()
			return nil, err
		}
		r.Participants = append(r.Participants, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.Attendees, err = c.strings(ctx, `SELECT sailor FROM regatta_sailors WHERE regatta = ? ORDER BY sailor`, id)
	if err != nil {
		return nil, fmt.Errorf("load regatta sailors: %w", err)
	}

	c.mu.Lock()
	c.regatta[id] = r
	c.mu.Unlock()
	return r, nil
}

// Season loads a season by id.
func (c *Catalog) Season(ctx context.Context, id string) (*model.Season, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, name, start_date, end_date FROM seasons WHERE id = ?`, id)
	season, err := scanSeason(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load season %s: %w", id, err)
	}
	return season, nil
}

// CurrentSeason returns the season containing today, or the most recent
// season that already started.
func (c *Catalog) CurrentSeason(ctx context.Context) (*model.Season, error) {
	c.mu.Lock()
	if c.current != nil {
		cached := c.current
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	today := c.now().UTC().Format(dateLayout)
	row := c.db.QueryRowContext(ctx, `SELECT id, name, start_date, end_date FROM seasons
		WHERE start_date <= ? ORDER BY (end_date >= ?) DESC, start_date DESC LIMIT 1`, today, today)
	season, err := scanSeason(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve current season: %w", err)
	}
	c.mu.Lock()
	c.current = season
	c.mu.Unlock()
	return season, nil
}

// School loads a school by id.
func (c *Catalog) School(ctx context.Context, id string) (*model.School, error) {
	c.mu.Lock()
	if cached, ok := c.schools[id]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var (
		s          = &model.School{ID: id}
		url        sql.NullString
		conference sql.NullString
	)
	err := c.db.QueryRowContext(ctx, `SELECT name, url, conference, burgee FROM schools WHERE id = ?`, id).
		Scan(&s.Name, &url, &conference, &s.Burgee)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load school %s: %w", id, err)
	}
	s.URL = url.String
	s.Conference = conference.String

	c.mu.Lock()
	c.schools[id] = s
	c.mu.Unlock()
	return s, nil
}

// Conference loads a conference by id.
func (c *Catalog) Conference(ctx context.Context, id string) (*model.Conference, error) {
	var (
		conf = &model.Conference{ID: id}
		url  sql.NullString
	)
	err := c.db.QueryRowContext(ctx, `SELECT name, url FROM conferences WHERE id = ?`, id).Scan(&conf.Name, &url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conference %s: %w", id, err)
	}
	conf.URL = url.String
	return conf, nil
}

// Sailor loads a sailor by id.
func (c *Catalog) Sailor(ctx context.Context, id string) (*model.Sailor, error) {
	c.mu.Lock()
	if cached, ok := c.sailors[id]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var (
		s      = &model.Sailor{ID: id}
		url    sql.NullString
		school sql.NullString
	)
	err := c.db.QueryRowContext(ctx, `SELECT name, url, school FROM sailors WHERE id = ?`, id).Scan(&s.Name, &url, &school)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load sailor %s: %w", id, err)
	}
	s.URL = url.String
	s.School = school.String

	c.mu.Lock()
	c.sailors[id] = s
	c.mu.Unlock()
	return s, nil
}

// File loads a public file by name.
func (c *Catalog) File(ctx context.Context, name string) (*model.File, error) {
	f := &model.File{Name: name}
	err := c.db.QueryRowContext(ctx, `SELECT mime_type, data FROM files WHERE name = ?`, name).Scan(&f.MimeType, &f.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load file %s: %w", name, err)
	}
	return f, nil
}

// RegattasForSchool lists every regatta the school took part in.
func (c *Catalog) RegattasForSchool(ctx context.Context, schoolID string) ([]string, error) {
	return c.strings(ctx, `SELECT regatta FROM regatta_teams WHERE school = ? ORDER BY regatta`, schoolID)
}

// RegattasForSailor lists every regatta the sailor appears in.
func (c *Catalog) RegattasForSailor(ctx context.Context, sailorID string) ([]string, error) {
	return c.strings(ctx, `SELECT regatta FROM regatta_sailors WHERE sailor = ? ORDER BY regatta`, sailorID)
}

// SailorSeasons lists the seasons in which the sailor raced.
func (c *Catalog) SailorSeasons(ctx context.Context, sailorID string) ([]string, error) {
	return c.strings(ctx, `SELECT DISTINCT r.season FROM regatta_sailors rs
		JOIN regattas r ON r.id = rs.regatta
		WHERE rs.sailor = ? AND r.season IS NOT NULL AND r.season != ''
		ORDER BY r.season`, sailorID)
}

// SchoolsInConference lists the member schools of a conference.
func (c *Catalog) SchoolsInConference(ctx context.Context, conferenceID string) ([]string, error) {
	return c.strings(ctx, `SELECT id FROM schools WHERE conference = ? ORDER BY id`, conferenceID)
}

func (c *Catalog) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func scanSeason(row *sql.Row) (*model.Season, error) {
	var (
		season   model.Season
		startRaw string
		endRaw   string
	)
	if err := row.Scan(&season.ID, &season.Name, &startRaw, &endRaw); err != nil {
		return nil, err
	}
	season.Start = parseDate(startRaw)
	season.End = parseDate(endRaw)
	return &season, nil
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
