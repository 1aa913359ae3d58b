package view

import (
	"context"
	"sync"
	"time"

	"foodshare/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Registry keeps mounted views alive between the GET that rendered a page
// and the POSTs issued from it. Views belong to one browser session, expire
// after a period without use, and are closed when evicted. The least
// recently used view is evicted when either its session or the whole
// registry is full.
type Registry struct {
	ttl           time.Duration
	maxPerSession int
	maxTotal      int
	logger        logrus.FieldLogger
	metrics       *metrics.Metrics
	now           func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	view     View
	owner    string
	lastUsed time.Time
}

func NewRegistry(ttl time.Duration, maxPerSession, maxTotal int, logger logrus.FieldLogger, m *metrics.Metrics) *Registry {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if maxPerSession <= 0 {
		maxPerSession = 16
	}
	if maxTotal <= 0 {
		maxTotal = 10000
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		ttl:           ttl,
		maxPerSession: maxPerSession,
		maxTotal:      maxTotal,
		logger:        logger,
		metrics:       m,
		now:           time.Now,
		entries:       map[string]*entry{},
	}
}

// Put stores v for owner. When owner already has the maximum number of
// views, or the registry is full, the least recently used view is evicted.
func (r *Registry) Put(owner string, v View) {
	r.mu.Lock()
	now := r.now()

	var evicted []View
	if e := r.oldest(func(e *entry) bool { return e.owner == owner }, r.maxPerSession); e != nil {
		evicted = append(evicted, e.view)
		delete(r.entries, e.view.ID())
	}
	if e := r.oldest(nil, r.maxTotal); e != nil {
		evicted = append(evicted, e.view)
		delete(r.entries, e.view.ID())
	}

	r.entries[v.ID()] = &entry{view: v, owner: owner, lastUsed: now}
	size := len(r.entries)
	r.mu.Unlock()

	for _, ev := range evicted {
		ev.Close()
		r.logger.WithField("view_id", ev.ID()).Debug("evicted view over limit")
	}
	r.metrics.SetMountedViews(size)
}

// oldest returns the least recently used entry matching keep when at least
// limit entries match. r.mu must be held.
func (r *Registry) oldest(keep func(*entry) bool, limit int) *entry {
	var (
		count int
		found *entry
	)
	for _, e := range r.entries {
		if keep != nil && !keep(e) {
			continue
		}
		count++
		if found == nil || e.lastUsed.Before(found.lastUsed) {
			found = e
		}
	}
	if count < limit {
		return nil
	}
	return found
}

// Get returns the view stored under id for owner if it has not expired and
// has type T. A hit extends the view's lifetime.
func Get[T View](r *Registry, owner, id string) (T, bool) {
	var zero T

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.owner != owner {
		return zero, false
	}

	now := r.now()
	if now.Sub(e.lastUsed) > r.ttl {
		return zero, false
	}

	v, ok := e.view.(T)
	if !ok {
		return zero, false
	}

	e.lastUsed = now
	return v, true
}

// Remove closes and forgets the view stored under id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	size := len(r.entries)
	r.mu.Unlock()

	if ok {
		e.view.Close()
		r.metrics.SetMountedViews(size)
	}
}

// RemoveOwner closes every view belonging to owner, e.g. on sign out.
func (r *Registry) RemoveOwner(owner string) {
	r.mu.Lock()
	var closing []View
	for id, e := range r.entries {
		if e.owner == owner {
			closing = append(closing, e.view)
			delete(r.entries, id)
		}
	}
	size := len(r.entries)
	r.mu.Unlock()

	for _, v := range closing {
		v.Close()
	}
	r.metrics.SetMountedViews(size)
}

// Sweep closes and drops every expired view and returns how many it dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	now := r.now()
	var expired []View
	for id, e := range r.entries {
		if now.Sub(e.lastUsed) > r.ttl {
			expired = append(expired, e.view)
			delete(r.entries, id)
		}
	}
	size := len(r.entries)
	r.mu.Unlock()

	for _, v := range expired {
		v.Close()
	}
	r.metrics.SetMountedViews(size)

	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes all views.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.WithField("expired", n).Debug("swept expired views")
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close closes every stored view.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = map[string]*entry{}
	r.mu.Unlock()

	for _, e := range entries {
		e.view.Close()
	}
	r.metrics.SetMountedViews(0)
}
