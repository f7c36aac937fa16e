package writer

import (
	"context"
	"sync/atomic"
)

// Discard accepts every call and keeps only counters. It backs dry runs.
type Discard struct {
	writes  atomic.Int64
	removes atomic.Int64
}

// NewDiscard returns a writer that drops outputs.
func NewDiscard() *Discard { return &Discard{} }

func (d *Discard) Write(ctx context.Context, p string, _ []byte) error {
	if _, _, err := CleanPath(p); err != nil {
		return failure("write", p, err)
	}
	d.writes.Add(1)
	return nil
}

func (d *Discard) Remove(ctx context.Context, p string) error {
	if _, _, err := CleanPath(p); err != nil {
		return failure("remove", p, err)
	}
	d.removes.Add(1)
	return nil
}

// Counts reports how many writes and removals were accepted.
func (d *Discard) Counts() (writes, removes int64) {
	return d.writes.Load(), d.removes.Load()
}
