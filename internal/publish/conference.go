package publish

import (
	"context"

	"scorepub/internal/queue"
	"scorepub/internal/render"
)

type conferenceStrategy struct {
	env Env
}

func (s *conferenceStrategy) Axis() queue.Axis { return queue.AxisConference }

func (s *conferenceStrategy) Plan(ctx context.Context, g *Group) (*Plan, error) {
	conf, err := s.env.Repo.Conference(ctx, g.Entity)
	if err != nil {
		return nil, err
	}
	plan := newPlan(queue.AxisConference, g.Entity, conf)
	if conf == nil || conf.URL == "" {
		return plan, nil
	}
	current, err := s.env.Repo.CurrentSeason(ctx)
	if err != nil {
		return nil, err
	}

	root := conferenceRoot(conf.URL)
	seasons := append(g.Arguments(queue.ConferenceSeason), g.Arguments(queue.ConferenceDetails)...)
	if len(seasons) == 0 && current != nil {
		seasons = []string{current.ID}
	}
	for _, season := range seasons {
		plan.addPage(render.Page{Kind: render.KindConferenceSeason, Path: joinPage(root, season), Season: season})
	}
	plan.addPage(render.Page{Kind: render.KindConferenceMain, Path: root + indexFile})

	if g.Has(queue.ConferenceURL) {
		for _, old := range g.Arguments(queue.ConferenceURL) {
			if old != conf.URL {
				plan.retire(conferenceRoot(old))
			}
		}
	}
	if g.Has(queue.ConferenceDetails, queue.ConferenceURL) {
		schools, err := s.env.Repo.SchoolsInConference(ctx, conf.ID)
		if err != nil {
			return nil, err
		}
		for _, school := range schools {
			plan.cascade(queue.AxisSchool, school, queue.SchoolDetails, "")
		}
	}
	return plan, nil
}
