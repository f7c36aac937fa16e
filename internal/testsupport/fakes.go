package testsupport

import (
	"context"
	"errors"
	"strings"
	"sync"

	"scorepub/internal/render"
	"scorepub/internal/writer"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// RecordingWriter keeps written bodies in memory and can fail on demand.
type RecordingWriter struct {
	mu      sync.Mutex
	Files   map[string][]byte
	Writes  []string
	Removes []string
	// FailWrites makes every Write return a writer.ErrWriteFailed error.
	FailWrites bool
	// FailRemoves makes every Remove return a writer.ErrWriteFailed error.
	FailRemoves bool
	// FailWith makes every Write return a writer.ErrWriteFailed error
	// joined with this cause.
	FailWith error
}

var _ writer.Writer = (*RecordingWriter)(nil)

// NewRecordingWriter returns an empty RecordingWriter.
func NewRecordingWriter() *RecordingWriter {
	return &RecordingWriter{Files: make(map[string][]byte)}
}

// Write stores body under p.
func (w *RecordingWriter) Write(_ context.Context, p string, body []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.FailWrites {
		return errors.Join(writer.ErrWriteFailed, ErrInjected)
	}
	if w.FailWith != nil {
		return errors.Join(writer.ErrWriteFailed, w.FailWith)
	}
	w.Files[p] = append([]byte(nil), body...)
	w.Writes = append(w.Writes, p)
	return nil
}

// Remove drops p, or everything under p when it ends in "/".
func (w *RecordingWriter) Remove(_ context.Context, p string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.FailRemoves {
		return errors.Join(writer.ErrWriteFailed, ErrInjected)
	}
	w.Removes = append(w.Removes, p)
	if strings.HasSuffix(p, "/") {
		for existing := range w.Files {
			if strings.HasPrefix(existing, p) {
				delete(w.Files, existing)
			}
		}
		return nil
	}
	delete(w.Files, p)
	return nil
}

// Has reports whether p is currently stored.
func (w *RecordingWriter) Has(p string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.Files[p]
	return ok
}

// Reset clears the recorded calls but keeps stored files.
func (w *RecordingWriter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Writes = nil
	w.Removes = nil
}

// RecordingRenderer records every Job and returns a body per page.
type RecordingRenderer struct {
	mu   sync.Mutex
	Jobs []render.Job
	// Body overrides the generated body for each page.
	Body func(job render.Job, page render.Page) []byte
	// Err is returned from Render when set.
	Err error
}

var _ render.Renderer = (*RecordingRenderer)(nil)

// Render implements render.Renderer.
func (r *RecordingRenderer) Render(_ context.Context, job render.Job) ([]render.Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Jobs = append(r.Jobs, job)
	if r.Err != nil {
		return nil, r.Err
	}
	outputs := make([]render.Output, 0, len(job.Pages))
	for _, page := range job.Pages {
		body := []byte(string(page.Kind) + " " + job.Entity)
		if r.Body != nil {
			body = r.Body(job, page)
		}
		outputs = append(outputs, render.Output{
			Path:        page.Path,
			ContentType: render.ContentTypeFor(page.Path),
			Body:        body,
		})
	}
	return outputs, nil
}

// Calls returns the number of Render invocations.
func (r *RecordingRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Jobs)
}

// Paths returns the page paths requested by job i.
func (r *RecordingRenderer) Paths(i int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.Jobs) {
		return nil
	}
	paths := make([]string, len(r.Jobs[i].Pages))
	for j, page := range r.Jobs[i].Pages {
		paths[j] = page.Path
	}
	return paths
}

// Reset clears recorded jobs.
func (r *RecordingRenderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Jobs = nil
}
