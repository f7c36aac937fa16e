package publish

import (
	"context"
	"sort"
	"strings"
	"time"

	"scorepub/internal/model"
	"scorepub/internal/notifications"
	"scorepub/internal/queue"
	"scorepub/internal/render"
)

// artifact is one regatta output family.
type artifact uint8

const (
	artRotation artifact = 1 << iota
	artFront
	artFull
	artDivisions
	artNotices
	artTweet
)

const allPages = artRotation | artFront | artFull | artDivisions | artNotices

// announceWindow bounds how long after a regatta ends a finalize still
// produces an announcement.
const announceWindow = 48 * time.Hour

// cascadingActivities trigger season, school, conference, and sailor follow-ups.
var cascadingActivities = []queue.Activity{
	queue.RegattaScore, queue.RegattaRP, queue.RegattaDetails, queue.RegattaTeam,
	queue.RegattaFinalized, queue.RegattaRank, queue.RegattaSeason,
}

type regattaStrategy struct {
	env Env
}

func (s *regattaStrategy) Axis() queue.Axis { return queue.AxisRegatta }

// artifactsFor applies the decision table to a single activity.
func artifactsFor(a queue.Activity, r *model.Regatta, now time.Time) artifact {
	var set artifact
	switch a {
	case queue.RegattaScore:
		set = artRotation | artFront
		if r.HasFinishes {
			set |= artFull
		}
		if r.MultiDivision() && !r.Singlehanded {
			set |= artDivisions
		}
	case queue.RegattaRP:
		if r.Singlehanded {
			set = artRotation | artFront | artFull
		} else if r.HasFinishes {
			set = artDivisions
		}
	case queue.RegattaFinalized:
		set = artFront
		if r.FinalizedAt != nil && !r.End.IsZero() && now.Sub(r.End) <= announceWindow {
			set |= artTweet
		}
	case queue.RegattaDetails, queue.RegattaSeason:
		set = artRotation | artFront | artFull | artDivisions
		if r.HasDocuments {
			set |= artNotices
		}
	case queue.RegattaDocument:
		set = artNotices
		if r.HasDocuments {
			set |= artFront
		}
	case queue.RegattaRotation:
		set = artRotation
	case queue.RegattaTeam:
		set = artRotation | artFront | artFull | artDivisions
	case queue.RegattaSummary:
		set = artFront
	case queue.RegattaRank:
		set = artFront | artFull | artDivisions
	}
	return set
}

type regattaPage struct {
	art  artifact
	page render.Page
}

// regattaPages computes every page the regatta currently has.
func regattaPages(r *model.Regatta) []regattaPage {
	root := RegattaRoot(r.Season, r.Nick)
	pages := []regattaPage{{art: artFront, page: render.Page{Kind: render.KindRegattaFront, Path: root + indexFile, Season: r.Season}}}
	if r.HasFinishes {
		pages = append(pages, regattaPage{art: artFull, page: render.Page{
			Kind: render.KindRegattaFull, Path: joinPage(root, "full-scores"), Season: r.Season,
		}})
		if r.MultiDivision() && !r.Singlehanded {
			for _, div := range r.Divisions {
				pages = append(pages, regattaPage{art: artDivisions, page: render.Page{
					Kind: render.KindRegattaDivision, Path: joinPage(root, "divisions", div), Season: r.Season, Division: div,
				}})
			}
		}
	}
	if r.HasRotation {
		pages = append(pages, regattaPage{art: artRotation, page: render.Page{
			Kind: render.KindRegattaRotation, Path: joinPage(root, "rotations"), Season: r.Season,
		}})
	}
	if r.HasDocuments {
		pages = append(pages, regattaPage{art: artNotices, page: render.Page{
			Kind: render.KindRegattaNotices, Path: joinPage(root, "notices"), Season: r.Season,
		}})
	}
	return pages
}

func (s *regattaStrategy) Plan(ctx context.Context, g *Group) (*Plan, error) {
	r, err := s.env.Repo.Regatta(ctx, g.Entity)
	if err != nil {
		return nil, err
	}
	ledger, err := s.env.Ledger.Pages(ctx, queue.AxisRegatta, g.Entity)
	if err != nil {
		return nil, err
	}
	plan := newPlan(queue.AxisRegatta, g.Entity, r)

	if r == nil || !r.Published() {
		// Deleted, private, or season-less regattas keep no public pages.
		for _, root := range ledgerRoots(ledger) {
			plan.retire(root)
		}
		if r != nil {
			s.cascadeOldSeason(plan, g, r)
			if r.Season != "" {
				s.cascadeParticipants(plan, r, r.Season)
			}
		}
		return plan, nil
	}

	now := s.env.now()
	current := regattaPages(r)

	var wanted artifact
	for _, a := range g.Activities() {
		wanted |= artifactsFor(a, r, now)
	}

	currentPaths := make(map[string]struct{}, len(current))
	for _, p := range current {
		currentPaths[p.page.Path] = struct{}{}
	}
	published := make(map[string]struct{}, len(ledger))
	for _, page := range ledger {
		published[page.Path] = struct{}{}
	}
	if structuralChange(currentPaths, published) {
		wanted |= allPages
	}
	for _, page := range ledger {
		if _, ok := currentPaths[page.Path]; !ok {
			plan.retire(pageDir(page.Path))
		}
	}

	for _, p := range current {
		if wanted&p.art != 0 {
			plan.addPage(p.page)
		}
	}

	if wanted&artTweet != 0 {
		plan.Announce = &notifications.Announcement{
			Regatta: r.ID,
			Name:    r.Name,
			Season:  r.Season,
			URL:     RegattaRoot(r.Season, r.Nick),
		}
	}

	s.cascadeOldSeason(plan, g, r)
	if g.Has(cascadingActivities...) {
		s.cascadeParticipants(plan, r, r.Season)
	}
	for _, school := range g.Arguments(queue.RegattaTeam) {
		plan.cascade(queue.AxisSchool, school, queue.SchoolSeason, r.Season)
	}
	return plan, nil
}

// cascadeOldSeason handles a regatta that moved out of a season. The argument
// of the season activity names the season it left.
func (s *regattaStrategy) cascadeOldSeason(plan *Plan, g *Group, r *model.Regatta) {
	for _, old := range g.Arguments(queue.RegattaSeason) {
		if old == "" {
			continue
		}
		plan.cascade(queue.AxisSeason, old, queue.SeasonRegatta, "")
		for _, p := range r.Participants {
			plan.cascade(queue.AxisSchool, p.School, queue.SchoolSeason, old)
			plan.cascade(queue.AxisConference, p.Conference, queue.ConferenceSeason, old)
		}
		if old != r.Season && r.Nick != "" {
			plan.retire(RegattaRoot(old, r.Nick))
		}
	}
}

func (s *regattaStrategy) cascadeParticipants(plan *Plan, r *model.Regatta, season string) {
	plan.cascade(queue.AxisSeason, season, queue.SeasonRegatta, "")
	for _, p := range r.Participants {
		plan.cascade(queue.AxisSchool, p.School, queue.SchoolSeason, season)
		plan.cascade(queue.AxisConference, p.Conference, queue.ConferenceSeason, season)
	}
	for _, sailor := range r.Attendees {
		plan.cascade(queue.AxisSailor, sailor, queue.SailorRP, "")
	}
}

// structuralChange reports whether the set of index pages differs from what
// is published.
func structuralChange(current, published map[string]struct{}) bool {
	if len(current) != len(published) {
		return true
	}
	for p := range current {
		if _, ok := published[p]; !ok {
			return true
		}
	}
	return false
}

// ledgerRoots returns the distinct /{season}/{nick}/ trees among pages.
func ledgerRoots(pages []queue.PublishedPage) []string {
	seen := make(map[string]struct{})
	var roots []string
	for _, page := range pages {
		parts := strings.SplitN(strings.TrimPrefix(page.Path, "/"), "/", 3)
		root := page.Path
		if len(parts) >= 3 {
			root = RegattaRoot(parts[0], parts[1])
		}
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}
