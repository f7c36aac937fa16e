package publish

import (
	"context"

	"scorepub/internal/queue"
	"scorepub/internal/render"
)

type fileStrategy struct {
	env Env
}

func (s *fileStrategy) Axis() queue.Axis { return queue.AxisFile }

func (s *fileStrategy) Plan(ctx context.Context, g *Group) (*Plan, error) {
	file, err := s.env.Repo.File(ctx, g.Entity)
	if err != nil {
		return nil, err
	}
	plan := newPlan(queue.AxisFile, g.Entity, file)
	if file == nil {
		plan.retire(filePath(g.Entity))
		return plan, nil
	}
	plan.SkipUnchanged = true
	plan.addPage(render.Page{Kind: render.KindFile, Path: filePath(file.Name)})
	return plan, nil
}
