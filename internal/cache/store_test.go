package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielolaszy/kanban/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, ttl time.Duration) (*Store, *time.Time) {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2016, 9, 3, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func testKey(project string) Key {
	from := time.Date(2016, 6, 1, 0, 0, 0, 0, time.UTC)
	return Key{
		Tracker: "jira",
		Project: project,
		Range:   models.Range{From: from, To: from.Add(90 * 24 * time.Hour)},
	}
}

func testIssues() []models.RawIssue {
	created := time.Date(2016, 7, 1, 9, 0, 0, 0, time.UTC)
	return []models.RawIssue{{
		ID:      "BACKEND-671",
		Project: "BACKEND",
		Created: created,
		Events: []models.ChangeEvent{{
			Timestamp: created.Add(time.Hour),
			Deltas:    []models.FieldDelta{models.StateDelta("Open", "In Progress")},
		}},
	}}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t, 24*time.Hour)

	_, ok, err := store.Get(ctx, testKey("BACKEND"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, testKey("BACKEND"), testIssues()))

	issues, ok, err := store.Get(ctx, testKey("BACKEND"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testIssues(), issues)

	_, ok, err = store.Get(ctx, testKey("MOBILE"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, now := openTestStore(t, 24*time.Hour)

	require.NoError(t, store.Put(ctx, testKey("BACKEND"), testIssues()))

	*now = now.Add(23 * time.Hour)
	_, ok, err := store.Get(ctx, testKey("BACKEND"))
	require.NoError(t, err)
	assert.True(t, ok)

	*now = now.Add(2 * time.Hour)
	_, ok, err = store.Get(ctx, testKey("BACKEND"))
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t, time.Hour)

	require.NoError(t, store.Put(ctx, testKey("BACKEND"), testIssues()))
	require.NoError(t, store.Put(ctx, testKey("BACKEND"), nil))

	issues, ok, err := store.Get(ctx, testKey("BACKEND"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, issues)
}

func TestOpenRejectsBadPaths(t *testing.T) {
	_, err := Open("  ", time.Hour)
	assert.Error(t, err)

	_, err = Open(t.TempDir(), time.Hour)
	assert.Error(t, err)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "jira|BACKEND|2016-06-01T00:00:00Z|2016-08-30T00:00:00Z", testKey("BACKEND").String())
}
