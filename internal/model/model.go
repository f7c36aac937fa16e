// Package model defines the scoring entities the publisher reads and the
// Repository it reads them through.
package model

import (
	"context"
	"time"
)

// Scoring systems.
const (
	ScoringStandard = "standard"
	ScoringCombined = "combined"
	ScoringTeam     = "team"
)

// Season is a sailing season such as "f25" or "s26".
type Season struct {
	ID    string
	Name  string
	Start time.Time
	End   time.Time
}

// Participant is one school racing in a regatta.
type Participant struct {
	School     string
	Conference string
}

// Regatta is the publishable view of a regatta.
type Regatta struct {
	ID           string
	Name         string
	Nick         string
	Season       string
	Private      bool
	Scoring      string
	Divisions    []string
	Singlehanded bool
	HasFinishes  bool
	HasRotation  bool
	HasDocuments bool
	Start        time.Time
	End          time.Time
	FinalizedAt  *time.Time
	Participants []Participant
	Attendees    []string
}

// Published reports whether the regatta should have public pages at all.
func (r *Regatta) Published() bool {
	return r != nil && !r.Private && r.Season != "" && r.Nick != ""
}

// MultiDivision reports whether the regatta races more than one division.
func (r *Regatta) MultiDivision() bool {
	return r != nil && len(r.Divisions) > 1
}

// School is a member school.
type School struct {
	ID         string
	Name       string
	URL        string
	Conference string
	Burgee     []byte `json:"-"`
}

// Conference groups schools.
type Conference struct {
	ID   string
	Name string
	URL  string
}

// Sailor is a registered or unregistered competitor.
type Sailor struct {
	ID     string
	Name   string
	URL    string
	School string
}

// Registered reports whether the sailor has a public URL.
func (s *Sailor) Registered() bool {
	return s != nil && s.URL != ""
}

// File is a public static asset served under /inc/.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Repository is the read-only catalog the publisher queries. Lookups return
// nil with a nil error when the entity does not exist.
type Repository interface {
	Regatta(ctx context.Context, id string) (*Regatta, error)
	Season(ctx context.Context, id string) (*Season, error)
	CurrentSeason(ctx context.Context) (*Season, error)
	School(ctx context.Context, id string) (*School, error)
	Conference(ctx context.Context, id string) (*Conference, error)
	Sailor(ctx context.Context, id string) (*Sailor, error)
	File(ctx context.Context, name string) (*File, error)

	RegattasForSchool(ctx context.Context, schoolID string) ([]string, error)
	RegattasForSailor(ctx context.Context, sailorID string) ([]string, error)
	SailorSeasons(ctx context.Context, sailorID string) ([]string, error)
	SchoolsInConference(ctx context.Context, conferenceID string) ([]string, error)
}

// Resetter is implemented by repositories that cache lookups between batches.
type Resetter interface {
	Reset()
}
