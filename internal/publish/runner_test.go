package publish_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"scorepub/internal/catalog"
	"scorepub/internal/config"
	"scorepub/internal/hooks"
	"scorepub/internal/model"
	"scorepub/internal/publish"
	"scorepub/internal/queue"
	"scorepub/internal/render"
	"scorepub/internal/testsupport"
	"scorepub/internal/writer"
)

var now = time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

type env struct {
	cfg      *config.Config
	store    *queue.Store
	catalog  *catalog.Catalog
	writer   *testsupport.RecordingWriter
	renderer *testsupport.RecordingRenderer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	e := &env{
		cfg:      cfg,
		store:    testsupport.MustOpenStore(t, cfg),
		catalog:  testsupport.MustOpenCatalog(t, cfg),
		writer:   testsupport.NewRecordingWriter(),
		renderer: &testsupport.RecordingRenderer{},
	}
	e.catalog.SetClock(func() time.Time { return now })
	seed(t, e.catalog)
	return e
}

func seed(t *testing.T, c *catalog.Catalog) {
	t.Helper()
	ctx := context.Background()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	must(c.PutSeason(ctx, model.Season{ID: "f25", Name: "Fall 2025", Start: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)}))
	must(c.PutConference(ctx, model.Conference{ID: "NEISA", Name: "New England", URL: "neisa"}))
	must(c.PutSchool(ctx, model.School{ID: "MIT", Name: "MIT", URL: "mit", Conference: "NEISA"}))
	must(c.PutSchool(ctx, model.School{ID: "HAR", Name: "Harvard", URL: "harvard", Conference: "NEISA"}))
	must(c.PutSailor(ctx, model.Sailor{ID: "s1", Name: "Jane Doe", URL: "jane-doe", School: "MIT"}))
	regatta := func(id, nick string, schools ...string) model.Regatta {
		r := model.Regatta{
			ID:          id,
			Name:        nick,
			Nick:        nick,
			Season:      "f25",
			Divisions:   []string{"A", "B"},
			HasFinishes: true,
			Start:       time.Date(2025, 10, 11, 0, 0, 0, 0, time.UTC),
			End:         time.Date(2025, 10, 12, 0, 0, 0, 0, time.UTC),
			Attendees:   []string{"s1"},
		}
		for _, s := range schools {
			r.Participants = append(r.Participants, model.Participant{School: s})
		}
		return r
	}
	must(c.PutRegatta(ctx, regatta("r1", "fall-open", "MIT", "HAR")))
	must(c.PutRegatta(ctx, regatta("r2", "mit-invite", "MIT")))
	must(c.PutRegatta(ctx, regatta("r3", "harvard-cup", "HAR")))
}

type hookFunc func(ctx context.Context, batch hooks.Batch) error

func (f hookFunc) Run(ctx context.Context, batch hooks.Batch) error { return f(ctx, batch) }

func (e *env) runner(t *testing.T, axis queue.Axis, mutate ...func(*publish.Options)) *publish.Runner {
	t.Helper()
	opts := publish.Options{
		Axis:        axis,
		Store:       e.store,
		Repo:        e.catalog,
		Renderer:    e.renderer,
		Writer:      e.writer,
		BatchSize:   e.cfg.Queue.BatchSize,
		MaxAttempts: e.cfg.Queue.MaxAttempts,
		Now:         func() time.Time { return now },
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	r, err := publish.NewRunner(opts)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func entities(reqs []*queue.Request, activity queue.Activity) []string {
	var out []string
	for _, r := range reqs {
		if r.Activity == activity {
			out = append(out, r.Entity+"/"+r.Argument)
		}
	}
	sort.Strings(out)
	return out
}

func TestRunBatchEmptyQueue(t *testing.T) {
	e := newEnv(t)
	result, err := e.runner(t, queue.AxisRegatta).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %#v", result)
	}
	if e.renderer.Calls() != 0 {
		t.Fatalf("renderer called on empty queue")
	}
}

func TestRunBatchRendersEachEntityOnce(t *testing.T) {
	e := newEnv(t)
	for _, a := range []queue.Activity{queue.RegattaScore, queue.RegattaRP, queue.RegattaRotation, queue.RegattaScore} {
		testsupport.Enqueue(t, e.store, queue.AxisRegatta, "r1", a, "")
	}

	result, err := e.runner(t, queue.AxisRegatta).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if e.renderer.Calls() != 1 {
		t.Fatalf("renderer calls = %d, want 1", e.renderer.Calls())
	}
	if result.Requests != 4 || result.Groups != 1 {
		t.Fatalf("unexpected result %#v", result)
	}
	if !e.writer.Has("/f25/fall-open/full-scores/index.html") || !e.writer.Has("/f25/fall-open/divisions/B/index.html") {
		t.Fatalf("expected score pages written, got %v", e.writer.Writes)
	}
	if pending := testsupport.Pending(t, e.store, queue.AxisRegatta); len(pending) != 0 {
		t.Fatalf("expected queue drained, got %d pending", len(pending))
	}

	pages, err := e.store.Pages(context.Background(), queue.AxisRegatta, "r1")
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if len(pages) != len(result.Written) {
		t.Fatalf("ledger has %d pages, wrote %d", len(pages), len(result.Written))
	}
}

func TestRunBatchScoreCascades(t *testing.T) {
	e := newEnv(t)
	testsupport.Enqueue(t, e.store, queue.AxisRegatta, "r1", queue.RegattaScore, "")

	if _, err := e.runner(t, queue.AxisRegatta).RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	schools := entities(testsupport.Pending(t, e.store, queue.AxisSchool), queue.SchoolSeason)
	if want := []string{"HAR/f25", "MIT/f25"}; !equal(schools, want) {
		t.Fatalf("school cascades = %v, want %v", schools, want)
	}
	seasons := entities(testsupport.Pending(t, e.store, queue.AxisSeason), queue.SeasonRegatta)
	if want := []string{"f25/"}; !equal(seasons, want) {
		t.Fatalf("season cascades = %v, want %v", seasons, want)
	}
	sailors := entities(testsupport.Pending(t, e.store, queue.AxisSailor), queue.SailorRP)
	if want := []string{"s1/"}; !equal(sailors, want) {
		t.Fatalf("sailor cascades = %v, want %v", sailors, want)
	}
}

func TestRunBatchSchoolURLCascadesToItsRegattas(t *testing.T) {
	e := newEnv(t)
	testsupport.Enqueue(t, e.store, queue.AxisSchool, "MIT", queue.SchoolURL, "mit-old")

	result, err := e.runner(t, queue.AxisSchool).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	regattas := entities(testsupport.Pending(t, e.store, queue.AxisRegatta), queue.RegattaTeam)
	if want := []string{"r1/", "r2/"}; !equal(regattas, want) {
		t.Fatalf("regatta cascades = %v, want %v", regattas, want)
	}
	if !equal(result.Retired, []string{"/schools/mit-old/"}) {
		t.Fatalf("retired = %v", result.Retired)
	}
}

func TestRunBatchWriterFailureLeavesRequestsPending(t *testing.T) {
	e := newEnv(t)
	testsupport.Enqueue(t, e.store, queue.AxisRegatta, "r1", queue.RegattaScore, "")
	testsupport.Enqueue(t, e.store, queue.AxisRegatta, "r2", queue.RegattaScore, "")
	e.writer.FailWrites = true

	_, err := e.runner(t, queue.AxisRegatta).RunBatch(context.Background())
	if !errors.Is(err, publish.ErrWriterFailure) || !publish.Recoverable(err) {
		t.Fatalf("expected writer failure, got %v", err)
	}
	pending := testsupport.Pending(t, e.store, queue.AxisRegatta)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	for _, req := range pending {
		if req.Attempts != 1 || req.CompletedAt != nil {
			t.Fatalf("unexpected request state %#v", req)
		}
	}
	if cascaded := testsupport.Pending(t, e.store, queue.AxisSchool); len(cascaded) != 0 {
		t.Fatalf("aborted batch enqueued cascades: %d", len(cascaded))
	}

	e.writer.FailWrites = false
	if _, err := e.runner(t, queue.AxisRegatta).RunBatch(context.Background()); err != nil {
		t.Fatalf("retry RunBatch: %v", err)
	}
	if pending := testsupport.Pending(t, e.store, queue.AxisRegatta); len(pending) != 0 {
		t.Fatalf("expected retry to drain queue, got %d", len(pending))
	}
}

func TestRunBatchWriterOutageDoesNotStallRequests(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testsupport.Enqueue(t, e.store, queue.AxisRegatta, "r1", queue.RegattaScore, "")
	runner := e.runner(t, queue.AxisRegatta, func(o *publish.Options) { o.MaxAttempts = 3 })

	e.writer.FailWrites = true
	for i := 0; i < 5; i++ {
		result, err := runner.RunBatch(ctx)
		if !errors.Is(err, publish.ErrWriterFailure) {
			t.Fatalf("outage round %d: expected writer failure, got %v", i, err)
		}
		if result.Requests != 1 {
			t.Fatalf("outage round %d: fetched %d requests, want 1", i, result.Requests)
		}
	}

	e.writer.FailWrites = false
	result, err := runner.RunBatch(ctx)
	if err != nil {
		t.Fatalf("RunBatch after outage: %v", err)
	}
	if result.Requests != 1 || len(result.Written) == 0 {
		t.Fatalf("request not published after the writer recovered: %#v", result)
	}
	if pending := testsupport.Pending(t, e.store, queue.AxisRegatta); len(pending) != 0 {
		t.Fatalf("expected queue drained, got %d pending", len(pending))
	}
}

func TestRunBatchRenderFailuresStallRequests(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testsupport.Enqueue(t, e.store, queue.AxisRegatta, "r1", queue.RegattaScore, "")
	runner := e.runner(t, queue.AxisRegatta, func(o *publish.Options) { o.MaxAttempts = 2 })
	e.renderer.Err = errors.New("template exploded")

	for i := 0; i < 2; i++ {
		if _, err := runner.RunBatch(ctx); !errors.Is(err, publish.ErrRenderFailure) {
			t.Fatalf("round %d: expected render failure, got %v", i, err)
		}
	}
	pending := testsupport.Pending(t, e.store, queue.AxisRegatta)
	if len(pending) != 1 || pending[0].Failures != 2 {
		t.Fatalf("expected one request with 2 failures, got %#v", pending)
	}

	e.renderer.Err = nil
	result, err := runner.RunBatch(ctx)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if !result.Empty() {
		t.Fatalf("stalled request was fetched again: %#v", result)
	}
}

func TestRunBatchInvalidPathCountsAsRequestFailure(t *testing.T) {
	e := newEnv(t)
	testsupport.Enqueue(t, e.store, queue.AxisRegatta, "r1", queue.RegattaScore, "")
	e.writer.FailWith = writer.ErrInvalidPath

	_, err := e.runner(t, queue.AxisRegatta).RunBatch(context.Background())
	if !errors.Is(err, publish.ErrWriterFailure) {
		t.Fatalf("expected writer failure, got %v", err)
	}
	pending := testsupport.Pending(t, e.store, queue.AxisRegatta)
	if len(pending) != 1 || pending[0].Failures != 1 {
		t.Fatalf("expected failure charged to the request, got %#v", pending)
	}
}

func TestRunBatchDefaultBatchSize(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < config.DefaultBatchSize+1; i++ {
		testsupport.Enqueue(t, e.store, queue.AxisFile, "gone.js", queue.FileChanged, "")
	}

	result, err := e.runner(t, queue.AxisFile, func(o *publish.Options) { o.BatchSize = 0 }).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if result.Requests != config.DefaultBatchSize {
		t.Fatalf("fetched %d requests, want %d", result.Requests, config.DefaultBatchSize)
	}
	if pending := testsupport.Pending(t, e.store, queue.AxisFile); len(pending) != 1 {
		t.Fatalf("expected 1 leftover request, got %d", len(pending))
	}
}

func TestRunBatchRenderFailureIsRecoverable(t *testing.T) {
	e := newEnv(t)
	testsupport.Enqueue(t, e.store, queue.AxisRegatta, "r1", queue.RegattaScore, "")
	e.renderer.Err = errors.New("template exploded")

	_, err := e.runner(t, queue.AxisRegatta).RunBatch(context.Background())
	if !errors.Is(err, publish.ErrRenderFailure) || !publish.Recoverable(err) {
		t.Fatalf("expected render failure, got %v", err)
	}
	if pending := testsupport.Pending(t, e.store, queue.AxisRegatta); len(pending) != 1 {
		t.Fatalf("expected request to stay pending")
	}
}

func TestRunBatchSkipsUnchangedFiles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.catalog.PutFile(ctx, model.File{Name: "site.css", MimeType: "text/css", Data: []byte("body{}")}); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	e.renderer.Body = func(_ render.Job, _ render.Page) []byte { return []byte("body{}") }

	testsupport.Enqueue(t, e.store, queue.AxisFile, "site.css", queue.FileChanged, "")
	first, err := e.runner(t, queue.AxisFile).RunBatch(ctx)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(first.Written) != 1 || first.Skipped != 0 {
		t.Fatalf("first run = %#v", first)
	}

	testsupport.Enqueue(t, e.store, queue.AxisFile, "site.css", queue.FileChanged, "")
	second, err := e.runner(t, queue.AxisFile).RunBatch(ctx)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(second.Written) != 0 || second.Skipped != 1 {
		t.Fatalf("second run = %#v", second)
	}
}

func TestRunBatchRetiresDeletedFile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testsupport.Enqueue(t, e.store, queue.AxisFile, "old.js", queue.FileChanged, "")

	result, err := e.runner(t, queue.AxisFile).RunBatch(ctx)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if !equal(result.Retired, []string{"/inc/old.js"}) || !equal(e.writer.Removes, []string{"/inc/old.js"}) {
		t.Fatalf("retired = %v removes = %v", result.Retired, e.writer.Removes)
	}
}

func TestRunBatchHookFailure(t *testing.T) {
	failing := hookFunc(func(context.Context, hooks.Batch) error {
		return hooks.ErrHookFailed
	})

	t.Run("fatal", func(t *testing.T) {
		e := newEnv(t)
		testsupport.Enqueue(t, e.store, queue.AxisSeason, "f25", queue.SeasonRegatta, "")
		_, err := e.runner(t, queue.AxisSeason, func(o *publish.Options) {
			o.Hooks = failing
			o.FatalHooks = true
		}).RunBatch(context.Background())
		if !errors.Is(err, hooks.ErrHookFailed) {
			t.Fatalf("expected hook failure, got %v", err)
		}
		if pending := testsupport.Pending(t, e.store, queue.AxisSeason); len(pending) != 0 {
			t.Fatalf("hooks run after requests are completed")
		}
	})

	t.Run("logged", func(t *testing.T) {
		e := newEnv(t)
		testsupport.Enqueue(t, e.store, queue.AxisSeason, "f25", queue.SeasonRegatta, "")
		_, err := e.runner(t, queue.AxisSeason, func(o *publish.Options) {
			o.Hooks = failing
		}).RunBatch(context.Background())
		if err != nil {
			t.Fatalf("non-fatal hook failure returned %v", err)
		}
	})
}

func TestRunBatchPassesWrittenPathsToHooks(t *testing.T) {
	e := newEnv(t)
	var got hooks.Batch
	testsupport.Enqueue(t, e.store, queue.AxisSeason, "f25", queue.SeasonRegatta, "")
	_, err := e.runner(t, queue.AxisSeason, func(o *publish.Options) {
		o.Hooks = hookFunc(func(_ context.Context, b hooks.Batch) error {
			got = b
			return nil
		})
	}).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	written := append([]string(nil), got.Written...)
	sort.Strings(written)
	if got.Axis != "season" || got.BatchID == "" || !equal(written, []string{"/f25/index.html", "/index.html"}) {
		t.Fatalf("unexpected hook batch %#v", got)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
