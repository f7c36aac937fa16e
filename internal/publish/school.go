package publish

import (
	"context"

	"scorepub/internal/queue"
	"scorepub/internal/render"
)

type schoolStrategy struct {
	env Env
}

func (s *schoolStrategy) Axis() queue.Axis { return queue.AxisSchool }

func (s *schoolStrategy) Plan(ctx context.Context, g *Group) (*Plan, error) {
	school, err := s.env.Repo.School(ctx, g.Entity)
	if err != nil {
		return nil, err
	}
	plan := newPlan(queue.AxisSchool, g.Entity, school)
	if school == nil || school.URL == "" {
		return plan, nil
	}
	current, err := s.env.Repo.CurrentSeason(ctx)
	if err != nil {
		return nil, err
	}
	cur := ""
	if current != nil {
		cur = current.ID
	}

	root := schoolRoot(school.URL)
	main := render.Page{Kind: render.KindSchoolMain, Path: root + indexFile}
	seasonPage := func(season string) {
		if season != "" {
			plan.addPage(render.Page{Kind: render.KindSchoolSeason, Path: joinPage(root, season), Season: season})
		}
	}
	roster := func(season string) {
		if season != "" {
			plan.addPage(render.Page{Kind: render.KindSchoolRoster, Path: joinPage(root, season, "roster"), Season: season})
		}
	}

	if g.Has(queue.SchoolBurgee) {
		plan.addPage(render.Page{Kind: render.KindSchoolBurgee, Path: burgeePath(school.ID)})
		plan.addPage(main)
		seasonPage(cur)
	}
	if g.Has(queue.SchoolRoster) {
		seasons := g.Arguments(queue.SchoolRoster)
		if len(seasons) == 0 {
			seasons = []string{cur}
		}
		for _, season := range seasons {
			roster(season)
		}
	}
	if g.Has(queue.SchoolSeason) {
		seasons := g.Arguments(queue.SchoolSeason)
		if len(seasons) == 0 {
			seasons = []string{cur}
		}
		for _, season := range seasons {
			seasonPage(season)
			if season != "" && season == cur {
				plan.addPage(main)
			}
		}
	}
	if g.Has(queue.SchoolDetails, queue.SchoolURL) {
		plan.addPage(main)
		seasonPage(cur)
		roster(cur)
	}
	if g.Has(queue.SchoolURL) {
		for _, old := range g.Arguments(queue.SchoolURL) {
			if old != school.URL {
				plan.retire(schoolRoot(old))
			}
		}
		regattas, err := s.env.Repo.RegattasForSchool(ctx, school.ID)
		if err != nil {
			return nil, err
		}
		for _, regatta := range regattas {
			plan.cascade(queue.AxisRegatta, regatta, queue.RegattaTeam, "")
		}
	}
	return plan, nil
}
