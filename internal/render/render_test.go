package render

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"scorepub/internal/model"
)

func TestDocumentsRendersEveryPage(t *testing.T) {
	d := NewDocuments()
	d.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	job := Job{
		Axis:    "regatta",
		Entity:  "r1",
		Subject: &model.Regatta{ID: "r1", Name: "Spring Champs"},
		Pages: []Page{
			{Kind: KindRegattaFront, Path: "/s26/champs/index.html", Season: "s26"},
			{Kind: KindRegattaDivision, Path: "/s26/champs/divisions/A/index.html", Season: "s26", Division: "A"},
		},
	}
	outputs, err := d.Render(context.Background(), job)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if err := CheckOutputs(job, outputs); err != nil {
		t.Fatalf("CheckOutputs: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(outputs[1].Body, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc["division"] != "A" || doc["kind"] != string(KindRegattaDivision) || doc["generated_at"] != "2026-05-01T00:00:00Z" {
		t.Fatalf("unexpected document: %#v", doc)
	}
}

func TestDocumentsPassesFileBytesThrough(t *testing.T) {
	d := NewDocuments()
	job := Job{
		Axis:    "file",
		Entity:  "site.css",
		Subject: &model.File{Name: "site.css", Data: []byte("body{}")},
		Pages:   []Page{{Kind: KindFile, Path: "/inc/site.css"}},
	}
	outputs, err := d.Render(context.Background(), job)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(outputs[0].Body) != "body{}" || outputs[0].ContentType != "text/css" {
		t.Fatalf("unexpected output: %#v", outputs[0])
	}
}

func TestCheckOutputsRejectsMissingPages(t *testing.T) {
	job := Job{Axis: "season", Entity: "s26", Pages: []Page{{Path: "/a"}, {Path: "/b"}}}
	if err := CheckOutputs(job, []Output{{Path: "/a"}}); err == nil {
		t.Fatal("expected error for missing page")
	}
	if err := CheckOutputs(job, []Output{{Path: "/a"}, {Path: "/c"}}); err == nil {
		t.Fatal("expected error for unexpected page")
	}
}
