package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"scorepub/internal/model"
)

// Documents renders each page as a JSON document describing its subject.
// Files and burgees are emitted as their raw bytes.
type Documents struct {
	now func() time.Time
}

// NewDocuments constructs the built-in renderer.
func NewDocuments() *Documents {
	return &Documents{now: time.Now}
}

type document struct {
	Kind        Kind   `json:"kind"`
	Path        string `json:"path"`
	Axis        string `json:"axis"`
	Entity      string `json:"entity"`
	Season      string `json:"season,omitempty"`
	Division    string `json:"division,omitempty"`
	GeneratedAt string `json:"generated_at"`
	Subject     any    `json:"subject,omitempty"`
}

// Render implements Renderer.
func (d *Documents) Render(ctx context.Context, job Job) ([]Output, error) {
	generated := d.now().UTC().Format(time.RFC3339)
	outputs := make([]Output, 0, len(job.Pages))
	for _, page := range job.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch page.Kind {
		case KindFile:
			file, ok := job.Subject.(*model.File)
			if !ok || file == nil {
				return nil, fmt.Errorf("render %s: file subject missing", page.Path)
			}
			contentType := file.MimeType
			if contentType == "" {
				contentType = ContentTypeFor(page.Path)
			}
			outputs = append(outputs, Output{Path: page.Path, ContentType: contentType, Body: file.Data})
			continue
		case KindSchoolBurgee:
			school, ok := job.Subject.(*model.School)
			if !ok || school == nil {
				return nil, fmt.Errorf("render %s: school subject missing", page.Path)
			}
			outputs = append(outputs, Output{Path: page.Path, ContentType: "image/png", Body: school.Burgee})
			continue
		}

		body, err := json.MarshalIndent(document{
			Kind:        page.Kind,
			Path:        page.Path,
			Axis:        job.Axis,
			Entity:      job.Entity,
			Season:      page.Season,
			Division:    page.Division,
			GeneratedAt: generated,
			Subject:     job.Subject,
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", page.Path, err)
		}
		outputs = append(outputs, Output{Path: page.Path, ContentType: "application/json", Body: append(body, '\n')})
	}
	return outputs, nil
}
