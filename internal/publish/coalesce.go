package publish

import (
	"scorepub/internal/queue"
)

// Group is every request in a batch that targets the same entity.
type Group struct {
	Axis     queue.Axis
	Entity   string
	Requests []*queue.Request

	activities map[queue.Activity][]string
	order      []queue.Activity
}

// Has reports whether any request in the group carries activity a.
func (g *Group) Has(a ...queue.Activity) bool {
	for _, activity := range a {
		if _, ok := g.activities[activity]; ok {
			return true
		}
	}
	return false
}

// Activities returns the union of activities in first-seen order.
func (g *Group) Activities() []queue.Activity {
	return append([]queue.Activity(nil), g.order...)
}

// Arguments returns the distinct non-empty arguments seen for activity a.
func (g *Group) Arguments(a queue.Activity) []string {
	return append([]string(nil), g.activities[a]...)
}

// IDs returns the request identifiers in the group.
func (g *Group) IDs() []int64 {
	ids := make([]int64, len(g.Requests))
	for i, req := range g.Requests {
		ids[i] = req.ID
	}
	return ids
}

func (g *Group) add(req *queue.Request) {
	g.Requests = append(g.Requests, req)
	args, seen := g.activities[req.Activity]
	if !seen {
		g.order = append(g.order, req.Activity)
	}
	if req.Argument != "" {
		for _, existing := range args {
			if existing == req.Argument {
				g.activities[req.Activity] = args
				return
			}
		}
		args = append(args, req.Argument)
	}
	g.activities[req.Activity] = args
}

// Coalesce groups requests by entity, preserving the order in which each
// entity first appears.
func Coalesce(axis queue.Axis, requests []*queue.Request) []*Group {
	index := make(map[string]*Group)
	var groups []*Group
	for _, req := range requests {
		if req == nil {
			continue
		}
		group, ok := index[req.Entity]
		if !ok {
			group = &Group{
				Axis:       axis,
				Entity:     req.Entity,
				activities: make(map[queue.Activity][]string),
			}
			index[req.Entity] = group
			groups = append(groups, group)
		}
		group.add(req)
	}
	return groups
}
