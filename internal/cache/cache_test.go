package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/deep-research/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fakeBackend struct {
	mu      sync.Mutex
	entries map[string]model.CacheEntry
	getErr  error
	putErr  error
	deleted int
	gets    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{entries: map[string]model.CacheEntry{}}
}

func (b *fakeBackend) GetBundle(_ context.Context, key string) (*model.CacheEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	if b.getErr != nil {
		return nil, b.getErr
	}
	e, ok := b.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (b *fakeBackend) PutBundle(_ context.Context, key string, entry model.CacheEntry, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	b.entries[key] = entry
	return nil
}

func (b *fakeBackend) DeleteExpired(context.Context) (int, error) {
	return b.deleted, nil
}

func entryWith(summary string) model.CacheEntry {
	return model.CacheEntry{AnswerSummary: summary}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "quick:inflacion en chile", Key(model.ModeQuick, "  Inflación   en CHILE "))
	assert.NotEqual(t, Key(model.ModeQuick, "q"), Key(model.ModeExhaustive, "q"))
}

func TestGetPut_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(600*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	_, ok := c.Get(ctx, model.ModeQuick, "solar")
	assert.False(t, ok)

	c.Put(ctx, model.ModeQuick, "solar", entryWith("a"))

	got, ok := c.Get(ctx, model.ModeQuick, "SOLAR ")
	require.True(t, ok)
	assert.Equal(t, "a", got.AnswerSummary)
	assert.True(t, got.Timestamp.Equal(clock.Now()))

	clock.Advance(599 * time.Second)
	_, ok = c.Get(ctx, model.ModeQuick, "solar")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, model.ModeQuick, "solar")
	assert.True(t, ok, "an entry exactly TTL old is still live")

	clock.Advance(time.Nanosecond)
	_, ok = c.Get(ctx, model.ModeQuick, "solar")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestModesAreSeparate(t *testing.T) {
	c := New(0)
	ctx := context.Background()

	c.Put(ctx, model.ModeQuick, "q", entryWith("quick"))
	_, ok := c.Get(ctx, model.ModeExhaustive, "q")
	assert.False(t, ok)
	assert.Equal(t, DefaultTTL, c.TTL())
}

func TestPut_KeepsExplicitTimestamp(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 10, 0, 0, time.UTC)}
	c := New(time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	e := entryWith("old")
	e.Timestamp = clock.Now().Add(-2 * time.Minute)
	c.Put(ctx, model.ModeQuick, "q", e)

	_, ok := c.Get(ctx, model.ModeQuick, "q")
	assert.False(t, ok)
}

func TestBackend_ReadThrough(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := newFakeBackend()
	stored := entryWith("persisted")
	stored.Timestamp = clock.Now().Add(-time.Minute)
	backend.entries[Key(model.ModeQuick, "q")] = stored

	c := New(10*time.Minute, WithClock(clock.Now), WithBackend(backend))
	ctx := context.Background()

	got, ok := c.Get(ctx, model.ModeQuick, "q")
	require.True(t, ok)
	assert.Equal(t, "persisted", got.AnswerSummary)

	_, ok = c.Get(ctx, model.ModeQuick, "q")
	require.True(t, ok)
	assert.Equal(t, 1, backend.gets)
}

func TestBackend_StaleRowIsMiss(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := newFakeBackend()
	stored := entryWith("stale")
	stored.Timestamp = clock.Now().Add(-time.Hour)
	backend.entries[Key(model.ModeQuick, "q")] = stored

	c := New(10*time.Minute, WithClock(clock.Now), WithBackend(backend))
	_, ok := c.Get(context.Background(), model.ModeQuick, "q")
	assert.False(t, ok)
}

func TestBackend_WriteThroughAndErrors(t *testing.T) {
	backend := newFakeBackend()
	c := New(time.Minute, WithBackend(backend))
	ctx := context.Background()

	c.Put(ctx, model.ModeExhaustive, "q", entryWith("x"))
	_, ok := backend.entries[Key(model.ModeExhaustive, "q")]
	assert.True(t, ok)

	backend.putErr = errors.New("disk full")
	c.Put(ctx, model.ModeExhaustive, "other", entryWith("y"))
	_, ok = c.Get(ctx, model.ModeExhaustive, "other")
	assert.True(t, ok, "memory tier still serves when the backend fails")

	backend.getErr = errors.New("down")
	_, ok = c.Get(ctx, model.ModeQuick, "never")
	assert.False(t, ok)
}

func TestWithBackend_NilIgnored(t *testing.T) {
	c := New(time.Minute, WithBackend(nil))
	assert.Nil(t, c.backend)
}

func TestSweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := newFakeBackend()
	backend.deleted = 2
	c := New(time.Minute, WithClock(clock.Now), WithBackend(backend))
	ctx := context.Background()

	c.Put(ctx, model.ModeQuick, "a", entryWith("a"))
	clock.Advance(30 * time.Second)
	c.Put(ctx, model.ModeQuick, "b", entryWith("b"))
	clock.Advance(45 * time.Second)

	n, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, c.Len())
}

func TestPut_EvictsExpiredEntries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(10*time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	for i := range 100 {
		c.Put(ctx, model.ModeQuick, fmt.Sprintf("query %d", i), entryWith("x"))
	}
	require.Equal(t, 100, c.Len())

	clock.Advance(11 * time.Minute)
	c.Put(ctx, model.ModeQuick, "fresh query", entryWith("y"))
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get(ctx, model.ModeQuick, "fresh query")
	require.True(t, ok)
	assert.Equal(t, "y", got.AnswerSummary)
	assert.Equal(t, 1, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("q%d", i%5)
			c.Put(ctx, model.ModeQuick, q, entryWith(q))
			c.Get(ctx, model.ModeQuick, q)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, c.Len())
}
