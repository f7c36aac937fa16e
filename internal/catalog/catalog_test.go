package catalog_test

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"scorepub/internal/catalog"
	"scorepub/internal/model"
)

func openCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Open(filepath.Join(t.TempDir(), "scorepub.db"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRegattaRoundTripWithParticipants(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	if err := c.PutSchool(ctx, model.School{ID: "MIT", Name: "MIT", URL: "mit", Conference: "NEISA"}); err != nil {
		t.Fatalf("PutSchool: %v", err)
	}
	finalized := time.Date(2026, 4, 12, 18, 0, 0, 0, time.UTC)
	in := model.Regatta{
		ID:           "r1",
		Name:         "Spring Champs",
		Nick:         "spring-champs",
		Season:       "s26",
		Divisions:    []string{"A", "B"},
		HasFinishes:  true,
		Start:        time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC),
		FinalizedAt:  &finalized,
		Participants: []model.Participant{{School: "MIT"}, {School: "BU"}},
		Attendees:    []string{"sailor-2", "sailor-1"},
	}
	if err := c.PutRegatta(ctx, in); err != nil {
		t.Fatalf("PutRegatta: %v", err)
	}

	got, err := c.Regatta(ctx, "r1")
	if err != nil {
		t.Fatalf("Regatta: %v", err)
	}
	if got == nil || got.Nick != "spring-champs" || !got.MultiDivision() || !got.Published() {
		t.Fatalf("unexpected regatta: %#v", got)
	}
	want := []model.Participant{{School: "BU"}, {School: "MIT", Conference: "NEISA"}}
	if !reflect.DeepEqual(got.Participants, want) {
		t.Fatalf("participants = %#v, want %#v", got.Participants, want)
	}
	if !reflect.DeepEqual(got.Attendees, []string{"sailor-1", "sailor-2"}) {
		t.Fatalf("attendees = %#v", got.Attendees)
	}
	if got.FinalizedAt == nil || !got.FinalizedAt.Equal(finalized) {
		t.Fatalf("finalized = %v", got.FinalizedAt)
	}

	missing, err := c.Regatta(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing regatta, got %#v err=%v", missing, err)
	}
}

func TestCurrentSeasonPrefersContainingSeason(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()
	c.SetClock(func() time.Time { return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) })

	seasons := []model.Season{
		{ID: "f25", Start: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
		{ID: "s26", Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)},
		{ID: "f26", Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, s := range seasons {
		if err := c.PutSeason(ctx, s); err != nil {
			t.Fatalf("PutSeason: %v", err)
		}
	}
	current, err := c.CurrentSeason(ctx)
	if err != nil {
		t.Fatalf("CurrentSeason: %v", err)
	}
	if current == nil || current.ID != "s26" {
		t.Fatalf("current season = %#v, want s26", current)
	}

	c.SetClock(func() time.Time { return time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC) })
	c.Reset()
	current, err = c.CurrentSeason(ctx)
	if err != nil || current == nil || current.ID != "s26" {
		t.Fatalf("between seasons expected latest started s26, got %#v err=%v", current, err)
	}
}

func TestReverseLookups(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	for _, s := range []model.School{
		{ID: "MIT", Conference: "NEISA"},
		{ID: "BU", Conference: "NEISA"},
		{ID: "USC", Conference: "PCCSC"},
	} {
		if err := c.PutSchool(ctx, s); err != nil {
			t.Fatalf("PutSchool: %v", err)
		}
	}
	regattas := []model.Regatta{
		{ID: "r1", Season: "f25", Participants: []model.Participant{{School: "MIT"}}, Attendees: []string{"s1"}},
		{ID: "r2", Season: "s26", Participants: []model.Participant{{School: "MIT"}, {School: "BU"}}, Attendees: []string{"s1"}},
		{ID: "r3", Season: "s26", Participants: []model.Participant{{School: "USC"}}},
	}
	for _, r := range regattas {
		if err := c.PutRegatta(ctx, r); err != nil {
			t.Fatalf("PutRegatta: %v", err)
		}
	}

	got, err := c.RegattasForSchool(ctx, "MIT")
	if err != nil || !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Fatalf("RegattasForSchool = %#v err=%v", got, err)
	}
	got, err = c.RegattasForSailor(ctx, "s1")
	if err != nil || !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Fatalf("RegattasForSailor = %#v err=%v", got, err)
	}
	got, err = c.SailorSeasons(ctx, "s1")
	if err != nil || !reflect.DeepEqual(got, []string{"f25", "s26"}) {
		t.Fatalf("SailorSeasons = %#v err=%v", got, err)
	}
	got, err = c.SchoolsInConference(ctx, "NEISA")
	if err != nil || !reflect.DeepEqual(got, []string{"BU", "MIT"}) {
		t.Fatalf("SchoolsInConference = %#v err=%v", got, err)
	}
}

func TestCacheResetSeesUpdates(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	if err := c.PutSailor(ctx, model.Sailor{ID: "s1", Name: "Pat"}); err != nil {
		t.Fatalf("PutSailor: %v", err)
	}
	first, _ := c.Sailor(ctx, "s1")
	if first.Registered() {
		t.Fatal("sailor without URL must be unregistered")
	}
	if err := c.PutSailor(ctx, model.Sailor{ID: "s1", Name: "Pat", URL: "pat"}); err != nil {
		t.Fatalf("PutSailor: %v", err)
	}
	second, _ := c.Sailor(ctx, "s1")
	if !second.Registered() {
		t.Fatalf("expected refreshed sailor, got %#v", second)
	}
}
