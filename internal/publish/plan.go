package publish

import (
	"context"
	"fmt"
	"time"

	"scorepub/internal/model"
	"scorepub/internal/notifications"
	"scorepub/internal/queue"
	"scorepub/internal/render"
)

// Plan is the work derived from one Group.
type Plan struct {
	Entity string
	// Job is nil when nothing needs rendering.
	Job *render.Job
	// Retire lists outputs to remove. Paths ending in "/" are trees.
	Retire []string
	// Cascades are follow-on requests for other axes.
	Cascades []queue.NewRequest
	// Announce is set when the group produced a regatta announcement.
	Announce *notifications.Announcement
	// SkipUnchanged suppresses writes whose checksum matches the ledger.
	SkipUnchanged bool
}

func (p *Plan) addPage(page render.Page) {
	for _, existing := range p.Job.Pages {
		if existing.Path == page.Path {
			return
		}
	}
	p.Job.Pages = append(p.Job.Pages, page)
}

func (p *Plan) retire(paths ...string) {
	for _, path := range paths {
		dup := false
		for _, existing := range p.Retire {
			if existing == path {
				dup = true
				break
			}
		}
		if !dup {
			p.Retire = append(p.Retire, path)
		}
	}
}

func (p *Plan) cascade(axis queue.Axis, entity string, activity queue.Activity, argument string) {
	if entity == "" {
		return
	}
	req := queue.NewRequest{Axis: axis, Entity: entity, Activity: activity, Argument: argument}
	for _, existing := range p.Cascades {
		if existing == req {
			return
		}
	}
	p.Cascades = append(p.Cascades, req)
}

func (p *Plan) empty() bool {
	return (p.Job == nil || len(p.Job.Pages) == 0) && len(p.Retire) == 0 && len(p.Cascades) == 0 && p.Announce == nil
}

// Ledger is the read side of the published page ledger.
type Ledger interface {
	Pages(ctx context.Context, axis queue.Axis, entity string) ([]queue.PublishedPage, error)
	Page(ctx context.Context, axis queue.Axis, path string) (*queue.PublishedPage, error)
}

// Env carries the collaborators strategies read from.
type Env struct {
	Repo   model.Repository
	Ledger Ledger
	Now    func() time.Time
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Strategy maps a coalesced group to a Plan for one axis.
type Strategy interface {
	Axis() queue.Axis
	Plan(ctx context.Context, group *Group) (*Plan, error)
}

// NewStrategy returns the decision table for axis.
func NewStrategy(axis queue.Axis, env Env) (Strategy, error) {
	if env.Repo == nil {
		return nil, fmt.Errorf("strategy %s: repository is required", axis)
	}
	switch axis {
	case queue.AxisRegatta:
		if env.Ledger == nil {
			return nil, fmt.Errorf("strategy %s: ledger is required", axis)
		}
		return &regattaStrategy{env: env}, nil
	case queue.AxisSeason:
		return &seasonStrategy{env: env}, nil
	case queue.AxisSchool:
		return &schoolStrategy{env: env}, nil
	case queue.AxisConference:
		return &conferenceStrategy{env: env}, nil
	case queue.AxisSailor:
		return &sailorStrategy{env: env}, nil
	case queue.AxisFile:
		return &fileStrategy{env: env}, nil
	default:
		return nil, fmt.Errorf("%w: %q", queue.ErrUnknownAxis, axis)
	}
}

func newPlan(axis queue.Axis, entity string, subject any) *Plan {
	return &Plan{
		Entity: entity,
		Job:    &render.Job{Axis: string(axis), Entity: entity, Subject: subject},
	}
}
