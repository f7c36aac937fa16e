package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBatchCountsByResult(t *testing.T) {
	before := testutil.ToFloat64(BatchesTotal.WithLabelValues("test-axis", ResultWriterFailure))
	RecordBatch("test-axis", ResultWriterFailure, time.Second)
	RecordBatch("test-axis", ResultWriterFailure, time.Second)
	after := testutil.ToFloat64(BatchesTotal.WithLabelValues("test-axis", ResultWriterFailure))
	if after-before != 2 {
		t.Fatalf("expected batch counter to increment by 2, got %v", after-before)
	}
}

func TestRecordCascades(t *testing.T) {
	RecordCascades("regatta-test", map[string]int{"school": 3, "season": 1})
	if got := testutil.ToFloat64(CascadesEnqueued.WithLabelValues("regatta-test", "school")); got != 3 {
		t.Fatalf("school cascades = %v, want 3", got)
	}
	if got := testutil.ToFloat64(CascadesEnqueued.WithLabelValues("regatta-test", "season")); got != 1 {
		t.Fatalf("season cascades = %v, want 1", got)
	}
}
