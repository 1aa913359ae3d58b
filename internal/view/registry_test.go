package view

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRegistry(ttl time.Duration, max int) (*Registry, *clock) {
	return newTestRegistryTotal(ttl, max, 0)
}

func newTestRegistryTotal(ttl time.Duration, max, total int) (*Registry, *clock) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(ttl, max, total, logger, nil)
	r.now = c.now
	return r, c
}

func isClosed(b *base) bool {
	return b.scope.Err() != nil
}

func TestRegistry_GetChecksOwnerAndType(t *testing.T) {
	r, _ := newTestRegistry(time.Minute, 4)
	svc := newFakeService()

	v := NewMyFoods(deps(svc, nil))
	r.Put("session-a", v)

	got, ok := Get[*MyFoods](r, "session-a", v.ID())
	require.True(t, ok)
	assert.Same(t, v, got)

	_, ok = Get[*MyFoods](r, "session-b", v.ID())
	assert.False(t, ok, "other sessions cannot reach the view")

	_, ok = Get[*FoodDetails](r, "session-a", v.ID())
	assert.False(t, ok, "wrong view kind")

	_, ok = Get[*MyFoods](r, "session-a", "unknown")
	assert.False(t, ok)
}

func TestRegistry_SlidingExpiry(t *testing.T) {
	r, c := newTestRegistry(10*time.Minute, 4)
	v := NewMyFoods(deps(newFakeService(), nil))
	r.Put("s", v)

	c.advance(8 * time.Minute)
	_, ok := Get[*MyFoods](r, "s", v.ID())
	require.True(t, ok)

	c.advance(8 * time.Minute)
	_, ok = Get[*MyFoods](r, "s", v.ID())
	require.True(t, ok, "access extends the lifetime")

	c.advance(11 * time.Minute)
	_, ok = Get[*MyFoods](r, "s", v.ID())
	assert.False(t, ok)

	assert.Equal(t, 1, r.Sweep())
	assert.Zero(t, r.Len())
	assert.True(t, isClosed(v.base), "swept views are closed")
}

func TestRegistry_EvictsLeastRecentlyUsedOverLimit(t *testing.T) {
	r, c := newTestRegistry(time.Hour, 2)
	svc := newFakeService()

	first := NewMyFoods(deps(svc, nil))
	r.Put("s", first)
	c.advance(time.Second)

	second := NewMyRequests(deps(svc, nil))
	r.Put("s", second)
	c.advance(time.Second)

	// Touch first so second becomes the oldest.
	_, ok := Get[*MyFoods](r, "s", first.ID())
	require.True(t, ok)
	c.advance(time.Second)

	other := NewMyFoods(deps(svc, nil))
	r.Put("other-session", other)

	third := NewAvailableFoods(deps(svc, nil))
	r.Put("s", third)

	assert.Equal(t, 3, r.Len())
	assert.True(t, isClosed(second.base))
	assert.False(t, isClosed(first.base))
	assert.False(t, isClosed(other.base))

	_, ok = Get[*MyRequests](r, "s", second.ID())
	assert.False(t, ok)
}

func TestRegistry_RemoveOwnerAndRun(t *testing.T) {
	r, _ := newTestRegistry(time.Hour, 4)
	svc := newFakeService()

	a := NewMyFoods(deps(svc, nil))
	b := NewMyFoods(deps(svc, nil))
	r.Put("s1", a)
	r.Put("s2", b)

	r.RemoveOwner("s1")
	assert.True(t, isClosed(a.base))
	assert.Equal(t, 1, r.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	<-done

	assert.Zero(t, r.Len())
	assert.True(t, isClosed(b.base), "stopping the janitor closes remaining views")
}

func TestRegistry_TotalLimitEvictsAcrossSessions(t *testing.T) {
	r, c := newTestRegistryTotal(time.Hour, 4, 3)

	views := make([]*MyFoods, 0, 5)
	for i := 0; i < 5; i++ {
		v := NewMyFoods(deps(newFakeService(), nil))
		views = append(views, v)
		r.Put(fmt.Sprintf("browser-%d", i), v)
		c.advance(time.Second)
	}

	assert.Equal(t, 3, r.Len())
	assert.True(t, isClosed(views[0].base))
	assert.True(t, isClosed(views[1].base))

	_, ok := Get[*MyFoods](r, "browser-0", views[0].ID())
	assert.False(t, ok)
	for i := 2; i < 5; i++ {
		_, ok := Get[*MyFoods](r, fmt.Sprintf("browser-%d", i), views[i].ID())
		assert.True(t, ok)
	}
}

func TestRegistry_TotalLimitKeepsRecentlyUsed(t *testing.T) {
	r, c := newTestRegistryTotal(time.Hour, 4, 2)

	a := NewMyFoods(deps(newFakeService(), nil))
	b := NewMyFoods(deps(newFakeService(), nil))
	r.Put("a", a)
	c.advance(time.Second)
	r.Put("b", b)
	c.advance(time.Second)

	_, ok := Get[*MyFoods](r, "a", a.ID())
	require.True(t, ok)
	c.advance(time.Second)

	r.Put("c", NewMyFoods(deps(newFakeService(), nil)))
	assert.Equal(t, 2, r.Len())
	assert.False(t, isClosed(a.base))
	assert.True(t, isClosed(b.base))
}
