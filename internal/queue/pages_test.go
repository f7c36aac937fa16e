package queue_test

import (
	"context"
	"testing"

	"scorepub/internal/queue"
	"scorepub/internal/testsupport"
)

func TestRecordPagesUpserts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	pages := []queue.PublishedPage{
		{Entity: "r1", Path: "/f25/spring-champs/index.html", Checksum: "a"},
		{Entity: "r1", Path: "/f25/spring-champs/full-scores/index.html", Checksum: "b"},
	}
	if err := store.RecordPages(ctx, queue.AxisRegatta, pages); err != nil {
		t.Fatalf("RecordPages failed: %v", err)
	}
	if err := store.RecordPages(ctx, queue.AxisRegatta, []queue.PublishedPage{
		{Entity: "r1", Path: "/f25/spring-champs/index.html", Checksum: "c"},
	}); err != nil {
		t.Fatalf("RecordPages (update) failed: %v", err)
	}

	got, err := store.Pages(ctx, queue.AxisRegatta, "r1")
	if err != nil {
		t.Fatalf("Pages failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(got))
	}
	page, err := store.Page(ctx, queue.AxisRegatta, "/f25/spring-champs/index.html")
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if page == nil || page.Checksum != "c" {
		t.Fatalf("expected updated checksum, got %#v", page)
	}

	missing, err := store.Page(ctx, queue.AxisFile, "/f25/spring-champs/index.html")
	if err != nil || missing != nil {
		t.Fatalf("ledger rows must be scoped by axis, got %#v err=%v", missing, err)
	}
}

func TestRemovePagesTreePrefix(t *testing.T) {
	tests := []struct {
		name    string
		nick    string
		sibling string
	}{
		{name: "ascii", nick: "champs", sibling: "champs-2"},
		{name: "non-ascii", nick: "régate", sibling: "régate-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			store := testsupport.MustOpenStore(t, cfg)
			ctx := context.Background()

			if err := store.RecordPages(ctx, queue.AxisRegatta, []queue.PublishedPage{
				{Entity: "r1", Path: "/f25/" + tt.nick + "/index.html"},
				{Entity: "r1", Path: "/f25/" + tt.nick + "/rotations/index.html"},
				{Entity: "r2", Path: "/f25/" + tt.sibling + "/index.html"},
			}); err != nil {
				t.Fatalf("RecordPages failed: %v", err)
			}
			if err := store.RemovePages(ctx, queue.AxisRegatta, []string{"/f25/" + tt.nick + "/"}); err != nil {
				t.Fatalf("RemovePages failed: %v", err)
			}

			r1, _ := store.Pages(ctx, queue.AxisRegatta, "r1")
			if len(r1) != 0 {
				t.Fatalf("expected tree removal, got %#v", r1)
			}
			r2, _ := store.Pages(ctx, queue.AxisRegatta, "r2")
			if len(r2) != 1 {
				t.Fatalf("sibling prefix must survive, got %#v", r2)
			}
		})
	}
}
