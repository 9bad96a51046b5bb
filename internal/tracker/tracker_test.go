package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielolaszy/kanban/internal/cache"
	"github.com/danielolaszy/kanban/internal/cycletime"
	"github.com/danielolaszy/kanban/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2016, 7, 1, 9, 0, 0, 0, time.UTC)

type fakeProvider struct {
	issues map[string][]models.RawIssue
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchIssues(_ context.Context, project string, _ models.Range) ([]models.RawIssue, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	issues, ok := f.issues[project]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return issues, nil
}

type memoryCache struct {
	entries map[string][]models.RawIssue
	getErr  error
	putErr  error
}

func (m *memoryCache) Get(_ context.Context, key cache.Key) ([]models.RawIssue, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	issues, ok := m.entries[key.String()]
	return issues, ok, nil
}

func (m *memoryCache) Put(_ context.Context, key cache.Key, issues []models.RawIssue) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[key.String()] = issues
	return nil
}

func worked(id string, days int) models.RawIssue {
	start := created.Add(24 * time.Hour)
	return models.RawIssue{
		ID:      id,
		Created: created,
		Events: []models.ChangeEvent{
			{Timestamp: start, Deltas: []models.FieldDelta{models.StateDelta("Open", "In Progress")}},
			{Timestamp: start.Add(time.Duration(days) * 24 * time.Hour), Deltas: []models.FieldDelta{models.StateDelta("In Progress", "Complete")}},
		},
	}
}

func testRange() models.Range {
	return models.Range{From: created.Add(-30 * 24 * time.Hour), To: created.Add(60 * 24 * time.Hour)}
}

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{issues: map[string][]models.RawIssue{"BACKEND": {worked("BACKEND-1", 2)}}}
	store := &memoryCache{entries: map[string][]models.RawIssue{}}
	cached := WithCache(provider, store)

	assert.Equal(t, "fake", cached.Name())

	first, err := cached.FetchIssues(ctx, "BACKEND", testRange())
	require.NoError(t, err)
	second, err := cached.FetchIssues(ctx, "BACKEND", testRange())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)
}

func TestCachedProviderIgnoresCacheFailures(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{issues: map[string][]models.RawIssue{"BACKEND": {worked("BACKEND-1", 2)}}}
	store := &memoryCache{
		entries: map[string][]models.RawIssue{},
		getErr:  errors.New("disk gone"),
		putErr:  errors.New("disk gone"),
	}

	issues, err := WithCache(provider, store).FetchIssues(ctx, "BACKEND", testRange())
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{err: errors.New("401 unauthorized")}
	store := &memoryCache{entries: map[string][]models.RawIssue{}}

	_, err := WithCache(provider, store).FetchIssues(ctx, "BACKEND", testRange())
	assert.Error(t, err)
	assert.Empty(t, store.entries)
}

func TestLoad(t *testing.T) {
	provider := &fakeProvider{issues: map[string][]models.RawIssue{
		"MOBILE": {worked("MOBILE-1", 3), {ID: "MOBILE-2"}},
		"GP":     {worked("GP-1", 5), {ID: "GP-2", Created: created}},
	}}

	set, err := Load(context.Background(), provider, []string{"MOBILE", "GP"}, testRange(), cycletime.NewConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"MOBILE", "GP"}, set.Projects)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, "MOBILE-1", set.Issues[0].ID)
	assert.Equal(t, "GP-1", set.Issues[1].ID)
	assert.Equal(t, 5, set.Issues[1].Days())
}

func TestLoadUnknownProject(t *testing.T) {
	provider := &fakeProvider{issues: map[string][]models.RawIssue{}}

	_, err := Load(context.Background(), provider, []string{"NOPE"}, testRange(), cycletime.NewConfig())
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestForEach(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	var (
		inFlight, peak atomic.Int32
		mu             sync.Mutex
		seen           = make([]int, len(items))
	)

	err := ForEach(context.Background(), items, 2, NewLimiter(0, 0), func(_ context.Context, i int, item int) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen[i] = item * 10
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80}, seen)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestForEachStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEach(context.Background(), []string{"a", "b", "c"}, 1, NewLimiter(100, 1), func(_ context.Context, _ int, item string) error {
		if item == "b" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestLimiterHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	limiter := NewLimiter(0.001, 1)
	require.NoError(t, limiter.Wait(context.Background()))
	assert.Error(t, limiter.Wait(ctx))
}
