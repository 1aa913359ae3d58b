package view

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"

	"foodshare/internal/foodapi"
	"foodshare/internal/metrics"
	"foodshare/pkg/types"
)

var (
	ErrInFlight     = errors.New("a change to this item is already in progress")
	ErrNotOwner     = errors.New("only the donator can change this food")
	ErrNotAvailable = errors.New("this food is no longer available")
	ErrDecided      = errors.New("this request was already answered")
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseApplied    Phase = "applied"
	PhaseFailed     Phase = "failed"
)

// ValidationError carries per-field messages for input rejected before any
// network call.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// Phases tracks the mutation phase of each item by identifier.
type Phases struct {
	mu     sync.Mutex
	phases map[string]Phase
}

func (p *Phases) Get(id string) Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ph, ok := p.phases[id]; ok {
		return ph
	}
	return PhaseIdle
}

// Begin moves id to submitting, or fails with ErrInFlight if it already is.
func (p *Phases) Begin(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phases == nil {
		p.phases = map[string]Phase{}
	}
	if p.phases[id] == PhaseSubmitting {
		return ErrInFlight
	}
	p.phases[id] = PhaseSubmitting
	return nil
}

func (p *Phases) finish(id string, ph Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phases[id] = ph
}

// mutation runs a remote change against one item. apply runs only after
// call succeeds; a failed call leaves local state untouched and queues an
// error notification.
type mutation struct {
	action  string
	id      string
	call    func() error
	apply   func()
	success Notification
	failure string
	notes   *Notifications
	phases  *Phases
	metrics *metrics.Metrics
}

func (m mutation) run() error {
	if err := m.phases.Begin(m.id); err != nil {
		return err
	}
	m.metrics.CountMutation(m.action, string(PhaseSubmitting))

	if err := m.call(); err != nil {
		m.phases.finish(m.id, PhaseFailed)
		m.metrics.CountMutation(m.action, string(PhaseFailed))
		m.notes.Push(LevelError, foodapi.Message(err, m.failure))
		return err
	}

	if m.apply != nil {
		m.apply()
	}
	m.phases.finish(m.id, PhaseApplied)
	m.metrics.CountMutation(m.action, string(PhaseApplied))
	if m.success.Message != "" {
		m.notes.Push(m.success.Level, m.success.Message)
	}
	return nil
}

// replaceFood swaps the food with f's identifier for f.
func replaceFood(foods []*types.Food, f *types.Food) []*types.Food {
	out := make([]*types.Food, len(foods))
	for i, cur := range foods {
		if cur != nil && cur.ID == f.ID {
			out[i] = f
			continue
		}
		out[i] = cur
	}
	return out
}

func removeFood(foods []*types.Food, id string) []*types.Food {
	out := make([]*types.Food, 0, len(foods))
	for _, cur := range foods {
		if cur != nil && cur.ID == id {
			continue
		}
		out = append(out, cur)
	}
	return out
}

func findFood(foods []*types.Food, id string) *types.Food {
	for _, f := range foods {
		if f != nil && f.ID == id {
			return f
		}
	}
	return nil
}
