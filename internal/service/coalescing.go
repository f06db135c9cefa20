package service

import (
	"context"
	"sync"
)

// inFlightBuild is one snapshot-day build that multiple callers may wait for.
type inFlightBuild struct {
	done   chan struct{}
	result snapshotDay
	err    error
}

// buildCoalescer collapses concurrent snapshot-day builds for the same date
// into a single fan-out; late arrivals wait for the in-flight build instead
// of issuing their own 81-province batch.
type buildCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightBuild
}

func newBuildCoalescer() *buildCoalescer {
	return &buildCoalescer{inFlight: make(map[string]*inFlightBuild)}
}

// do runs fn for key unless a build for the same key is already in flight, in
// which case it waits for that build's result. Waiting respects ctx.
func (bc *buildCoalescer) do(ctx context.Context, key string, fn func() (snapshotDay, error)) (snapshotDay, error) {
	bc.mu.Lock()
	if b, ok := bc.inFlight[key]; ok {
		bc.mu.Unlock()
		select {
		case <-b.done:
			return b.result, b.err
		case <-ctx.Done():
			return snapshotDay{}, ctx.Err()
		}
	}
	b := &inFlightBuild{done: make(chan struct{})}
	bc.inFlight[key] = b
	bc.mu.Unlock()

	b.result, b.err = fn()
	close(b.done)

	bc.mu.Lock()
	delete(bc.inFlight, key)
	bc.mu.Unlock()
	return b.result, b.err
}
