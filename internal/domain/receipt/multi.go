package receipt

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// MultiWriter writes every receipt to all writers concurrently.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter returns a MultiWriter over the non-nil writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	m := &MultiWriter{}
	for _, w := range writers {
		if w != nil {
			m.writers = append(m.writers, w)
		}
	}
	return m
}

// Write waits for every writer and returns the first error encountered.
// A failing writer does not cancel the others.
func (m *MultiWriter) Write(ctx context.Context, r Receipt) error {
	var g errgroup.Group
	for _, w := range m.writers {
		g.Go(func() error {
			return w.Write(ctx, r)
		})
	}
	return g.Wait()
}
