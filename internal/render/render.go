// Package render turns a planned set of pages into output bodies.
//
// Page layout and templating live outside this repository. The Renderer
// interface is the seam: the publish engine hands it one Job per entity and
// writes whatever outputs come back. Documents is the built-in implementation
// and emits a JSON document per page for downstream templating.
package render

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies what a page shows.
type Kind string

const (
	KindRegattaFront    Kind = "regatta_front"
	KindRegattaFull     Kind = "regatta_full"
	KindRegattaDivision Kind = "regatta_division"
	KindRegattaRotation Kind = "regatta_rotation"
	KindRegattaNotices  Kind = "regatta_notices"

	KindHome           Kind = "home"
	KindSeasonSummary  Kind = "season_summary"
	KindNotFound       Kind = "not_found"
	KindSchoolNotFound Kind = "school_not_found"

	KindSchoolMain   Kind = "school_main"
	KindSchoolSeason Kind = "school_season"
	KindSchoolRoster Kind = "school_roster"
	KindSchoolBurgee Kind = "school_burgee"

	KindConferenceMain   Kind = "conference_main"
	KindConferenceSeason Kind = "conference_season"

	KindSailorMain   Kind = "sailor_main"
	KindSailorSeason Kind = "sailor_season"

	KindFile Kind = "file"
)

// Page is one output the publisher wants produced.
type Page struct {
	Kind     Kind
	Path     string
	Season   string
	Division string
}

// Job is a single render invocation covering every page planned for one entity.
type Job struct {
	Axis    string
	Entity  string
	Subject any
	Pages   []Page
}

// Output is a rendered page body.
type Output struct {
	Path        string
	ContentType string
	Body        []byte
}

// Renderer produces the outputs for a Job. Implementations must return one
// Output per requested page.
type Renderer interface {
	Render(ctx context.Context, job Job) ([]Output, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, job Job) ([]Output, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, job Job) ([]Output, error) {
	return f(ctx, job)
}

// ContentTypeFor guesses a content type from a path extension.
func ContentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	case strings.HasSuffix(path, ".css"):
		return "text/css"
	case strings.HasSuffix(path, ".js"):
		return "application/javascript"
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".svg"):
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

// CheckOutputs confirms every requested page has exactly one output.
func CheckOutputs(job Job, outputs []Output) error {
	want := make(map[string]struct{}, len(job.Pages))
	for _, page := range job.Pages {
		want[page.Path] = struct{}{}
	}
	seen := make(map[string]struct{}, len(outputs))
	for _, out := range outputs {
		if _, ok := want[out.Path]; !ok {
			return fmt.Errorf("render %s %s: unexpected output %s", job.Axis, job.Entity, out.Path)
		}
		if _, dup := seen[out.Path]; dup {
			return fmt.Errorf("render %s %s: duplicate output %s", job.Axis, job.Entity, out.Path)
		}
		seen[out.Path] = struct{}{}
	}
	if len(seen) != len(want) {
		return fmt.Errorf("render %s %s: produced %d of %d pages", job.Axis, job.Entity, len(seen), len(want))
	}
	return nil
}
