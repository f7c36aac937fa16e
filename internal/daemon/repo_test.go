package daemon

import (
	"context"

	"scorepub/internal/model"
)

// repoWithReset is a model.Repository whose only behavior is counting resets.
type repoWithReset struct {
	counter *resetCounter
}

func (r repoWithReset) Reset() { r.counter.Reset() }

func (repoWithReset) Regatta(context.Context, string) (*model.Regatta, error) { return nil, nil }
func (repoWithReset) Season(context.Context, string) (*model.Season, error)   { return nil, nil }
func (repoWithReset) CurrentSeason(context.Context) (*model.Season, error)    { return nil, nil }
func (repoWithReset) School(context.Context, string) (*model.School, error)   { return nil, nil }
func (repoWithReset) Conference(context.Context, string) (*model.Conference, error) {
	return nil, nil
}
func (repoWithReset) Sailor(context.Context, string) (*model.Sailor, error) { return nil, nil }
func (repoWithReset) File(context.Context, string) (*model.File, error)     { return nil, nil }
func (repoWithReset) RegattasForSchool(context.Context, string) ([]string, error) {
	return nil, nil
}
func (repoWithReset) RegattasForSailor(context.Context, string) ([]string, error) {
	return nil, nil
}
func (repoWithReset) SailorSeasons(context.Context, string) ([]string, error) { return nil, nil }
func (repoWithReset) SchoolsInConference(context.Context, string) ([]string, error) {
	return nil, nil
}
