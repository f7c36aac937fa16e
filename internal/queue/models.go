package queue

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Axis is one independent resource category with its own queue and lock.
type Axis string

const (
	AxisRegatta    Axis = "regatta"
	AxisSeason     Axis = "season"
	AxisSchool     Axis = "school"
	AxisConference Axis = "conference"
	AxisSailor     Axis = "sailor"
	AxisFile       Axis = "file"
)

var allAxes = []Axis{AxisRegatta, AxisSeason, AxisSchool, AxisConference, AxisSailor, AxisFile}

// Axes returns every axis in a stable order.
func Axes() []Axis {
	out := make([]Axis, len(allAxes))
	copy(out, allAxes)
	return out
}

// ParseAxis validates a user-supplied axis name.
func ParseAxis(value string) (Axis, error) {
	axis := Axis(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := axisActivities[axis]; !ok {
		names := make([]string, len(allAxes))
		for i, a := range allAxes {
			names[i] = string(a)
		}
		return "", fmt.Errorf("unknown axis %q (want one of %s)", value, strings.Join(names, "|"))
	}
	return axis, nil
}

func (a Axis) String() string { return string(a) }

func (a Axis) table() string { return string(a) + "_requests" }

// Activity names why an entity needs republishing. Valid values depend on the axis.
type Activity string

// Regatta activities.
const (
	RegattaDetails   Activity = "details"
	RegattaScore     Activity = "score"
	RegattaRP        Activity = "rp"
	RegattaRotation  Activity = "rotation"
	RegattaTeam      Activity = "team"
	RegattaSummary   Activity = "summary"
	RegattaFinalized Activity = "finalized"
	RegattaDocument  Activity = "document"
	RegattaSeason    Activity = "season"
	RegattaRank      Activity = "rank"
)

// Season activities.
const (
	SeasonFront     Activity = "front"
	SeasonRegatta   Activity = "regatta"
	SeasonNotFound  Activity = "404"
	SeasonSchool404 Activity = "school_404"
)

// School activities.
const (
	SchoolBurgee  Activity = "burgee"
	SchoolRoster  Activity = "roster"
	SchoolSeason  Activity = "season"
	SchoolDetails Activity = "details"
	SchoolURL     Activity = "url"
)

// Conference activities.
const (
	ConferenceDetails Activity = "details"
	ConferenceURL     Activity = "url"
	ConferenceSeason  Activity = "season"
)

// Sailor activities.
const (
	SailorDetails Activity = "details"
	SailorURL     Activity = "url"
	SailorName    Activity = "name"
	SailorRP      Activity = "rp"
	SailorSeason  Activity = "season"
)

// File activities.
const (
	FileChanged Activity = "file"
)

var axisActivities = map[Axis][]Activity{
	AxisRegatta: {RegattaDetails, RegattaScore, RegattaRP, RegattaRotation, RegattaTeam,
		RegattaSummary, RegattaFinalized, RegattaDocument, RegattaSeason, RegattaRank},
	AxisSeason:     {SeasonFront, SeasonRegatta, SeasonNotFound, SeasonSchool404},
	AxisSchool:     {SchoolBurgee, SchoolRoster, SchoolSeason, SchoolDetails, SchoolURL},
	AxisConference: {ConferenceDetails, ConferenceURL, ConferenceSeason},
	AxisSailor:     {SailorDetails, SailorURL, SailorName, SailorRP, SailorSeason},
	AxisFile:       {FileChanged},
}

// Activities lists the activities accepted on axis.
func (a Axis) Activities() []Activity {
	return append([]Activity(nil), axisActivities[a]...)
}

// ParseActivity validates value against the activities accepted on axis.
func (a Axis) ParseActivity(value string) (Activity, error) {
	want := Activity(strings.ToLower(strings.TrimSpace(value)))
	for _, activity := range axisActivities[a] {
		if activity == want {
			return activity, nil
		}
	}
	return "", fmt.Errorf("unknown %s activity %q", a, value)
}

// Request is one queued "regenerate this" instruction.
type Request struct {
	ID       int64
	Axis     Axis
	Entity   string
	Activity Activity
	Argument string
	Attempts int
	// Failures counts batches that failed on this request's own entity.
	Failures    int
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Pending reports whether the request still awaits processing.
func (r *Request) Pending() bool {
	return r != nil && r.CompletedAt == nil
}

// NewRequest describes a request to insert.
type NewRequest struct {
	Axis     Axis
	Entity   string
	Activity Activity
	Argument string
}

func (n NewRequest) String() string {
	if n.Argument == "" {
		return fmt.Sprintf("%s:%s/%s", n.Axis, n.Entity, n.Activity)
	}
	return fmt.Sprintf("%s:%s/%s(%s)", n.Axis, n.Entity, n.Activity, n.Argument)
}

// EntitySummary aggregates the pending requests for one entity.
type EntitySummary struct {
	Entity      string
	Activities  []Activity
	Pending     int
	MaxAttempts int
	Failures    int
	Oldest      time.Time
	Stalled     bool
}

// PublishedPage is one ledger row describing an output that is live.
type PublishedPage struct {
	Axis        Axis
	Entity      string
	Path        string
	Checksum    string
	PublishedAt time.Time
}

func sortActivities(values []Activity) {
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
}
