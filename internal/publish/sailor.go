package publish

import (
	"context"

	"scorepub/internal/queue"
	"scorepub/internal/render"
)

type sailorStrategy struct {
	env Env
}

func (s *sailorStrategy) Axis() queue.Axis { return queue.AxisSailor }

func (s *sailorStrategy) Plan(ctx context.Context, g *Group) (*Plan, error) {
	sailor, err := s.env.Repo.Sailor(ctx, g.Entity)
	if err != nil {
		return nil, err
	}
	plan := newPlan(queue.AxisSailor, g.Entity, sailor)
	if !sailor.Registered() {
		return plan, nil
	}
	current, err := s.env.Repo.CurrentSeason(ctx)
	if err != nil {
		return nil, err
	}

	root := sailorRoot(sailor.URL)
	plan.addPage(render.Page{Kind: render.KindSailorMain, Path: root + indexFile})
	var seasons []string
	for _, a := range []queue.Activity{queue.SailorSeason, queue.SailorRP, queue.SailorDetails, queue.SailorName} {
		seasons = append(seasons, g.Arguments(a)...)
	}
	if len(seasons) == 0 && current != nil {
		seasons = []string{current.ID}
	}
	for _, season := range seasons {
		plan.addPage(render.Page{Kind: render.KindSailorSeason, Path: joinPage(root, season), Season: season})
	}

	if g.Has(queue.SailorURL) {
		for _, old := range g.Arguments(queue.SailorURL) {
			if old != sailor.URL {
				plan.retire(sailorRoot(old))
			}
		}
	}
	if g.Has(queue.SailorDetails, queue.SailorURL, queue.SailorName) {
		regattas, err := s.env.Repo.RegattasForSailor(ctx, sailor.ID)
		if err != nil {
			return nil, err
		}
		for _, regatta := range regattas {
			plan.cascade(queue.AxisRegatta, regatta, queue.RegattaRP, "")
		}
		if sailor.School != "" {
			sailorSeasons, err := s.env.Repo.SailorSeasons(ctx, sailor.ID)
			if err != nil {
				return nil, err
			}
			for _, season := range sailorSeasons {
				plan.cascade(queue.AxisSchool, sailor.School, queue.SchoolRoster, season)
			}
		}
	}
	return plan, nil
}
