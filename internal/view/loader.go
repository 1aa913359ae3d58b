// Package view holds the per-page state of the food pages: the data each
// page fetched, its load and error state, and the local patches applied
// after a mutation succeeds.
package view

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrSuperseded is returned by Load when a newer Load of the same loader
	// started before this one finished. Its result is discarded.
	ErrSuperseded = errors.New("load superseded by a newer load")
	ErrClosed     = errors.New("view is closed")
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

// Loader runs one fetch and keeps its latest result. Every fetch runs under a
// context derived from the owning view's scope, so closing the view cancels
// it; a newer Load cancels the older one.
type Loader[T any] struct {
	scope context.Context
	fetch FetchFunc[T]

	mu     sync.Mutex
	state  State
	data   T
	err    error
	gen    uint64
	cancel context.CancelFunc

	// settled is the last non-loading state. A cancelled load restores it.
	settled State
}

func NewLoader[T any](scope context.Context, fetch FetchFunc[T]) *Loader[T] {
	return &Loader[T]{
		scope:   scope,
		fetch:   fetch,
		state:   StateIdle,
		settled: StateIdle,
	}
}

// Load runs the fetch. The fetch is also cancelled when ctx is done, which
// ties it to the inbound request that asked for it. A load cancelled that
// way puts back the last settled state.
func (l *Loader[T]) Load(ctx context.Context) error {
	l.mu.Lock()
	if l.scope.Err() != nil {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen

	fetchCtx, cancel := context.WithCancel(l.scope)
	stop := context.AfterFunc(ctx, cancel)
	l.cancel = cancel
	l.state = StateLoading
	l.mu.Unlock()

	data, err := l.fetch(fetchCtx)
	stop()

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen {
		cancel()
		return ErrSuperseded
	}
	l.cancel = nil
	cancelled := err != nil && fetchCtx.Err() != nil
	cancel()

	if l.scope.Err() != nil {
		return ErrClosed
	}
	if cancelled {
		l.state = l.settled
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return context.Canceled
	}

	if err != nil {
		l.state = StateFailed
		l.settled = StateFailed
		l.err = err
		return err
	}

	l.state = StateReady
	l.settled = StateReady
	l.data = data
	l.err = nil
	return nil
}

// Retry re-runs the same fetch.
func (l *Loader[T]) Retry(ctx context.Context) error {
	return l.Load(ctx)
}

func (l *Loader[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader[T]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Loader[T]) Data() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data
}

// Update replaces the loaded data with fn's result. It is how successful
// mutations patch local state without fetching again.
func (l *Loader[T]) Update(fn func(T) T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = fn(l.data)
}

// Set stores data as a ready result without fetching.
func (l *Loader[T]) Set(data T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.state = StateReady
	l.settled = StateReady
	l.data = data
	l.err = nil
}
