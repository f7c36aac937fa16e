package publish

import (
	"context"

	"scorepub/internal/queue"
	"scorepub/internal/render"
)

type seasonStrategy struct {
	env Env
}

func (s *seasonStrategy) Axis() queue.Axis { return queue.AxisSeason }

func (s *seasonStrategy) Plan(ctx context.Context, g *Group) (*Plan, error) {
	season, err := s.env.Repo.Season(ctx, g.Entity)
	if err != nil {
		return nil, err
	}
	current, err := s.env.Repo.CurrentSeason(ctx)
	if err != nil {
		return nil, err
	}
	plan := newPlan(queue.AxisSeason, g.Entity, season)
	isCurrent := season != nil && current != nil && current.ID == season.ID

	if season != nil && g.Has(queue.SeasonRegatta) {
		plan.addPage(render.Page{Kind: render.KindSeasonSummary, Path: seasonSummaryPath(season.ID), Season: season.ID})
		if isCurrent {
			plan.addPage(render.Page{Kind: render.KindHome, Path: homePath, Season: season.ID})
		}
	}
	if g.Has(queue.SeasonFront) && current != nil {
		plan.addPage(render.Page{Kind: render.KindHome, Path: homePath, Season: current.ID})
	}
	if g.Has(queue.SeasonNotFound) {
		plan.addPage(render.Page{Kind: render.KindNotFound, Path: notFoundPath})
	}
	if g.Has(queue.SeasonSchool404) {
		plan.addPage(render.Page{Kind: render.KindSchoolNotFound, Path: schoolNotFoundPath})
	}
	return plan, nil
}
