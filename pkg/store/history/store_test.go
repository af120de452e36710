package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/de-tools/site-warden/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := NewDB(Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	store, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{db: db, store: store}
}

func summary(runID string, startedAt time.Time, status domain.RunStatus) domain.RunSummary {
	return domain.RunSummary{
		RunID:        runID,
		StartedAt:    startedAt,
		FinishedAt:   startedAt.Add(5 * time.Minute),
		SitesScanned: 3,
		PairsScanned: 12,
		PairsFailed:  1,
		RecordCount:  240,
		StaleCount:   17,
		WarningCount: 4,
		ErrorCount:   1,
		LogOnly:      true,
		Status:       status,
	}
}

func TestRunStore_AddAndGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	startedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	want := summary("run-1", startedAt, domain.RunPartial)
	require.NoError(t, f.store.Add(ctx, want))

	got, err := f.store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.SitesScanned, got.SitesScanned)
	assert.Equal(t, want.PairsScanned, got.PairsScanned)
	assert.Equal(t, want.PairsFailed, got.PairsFailed)
	assert.Equal(t, want.RecordCount, got.RecordCount)
	assert.Equal(t, want.StaleCount, got.StaleCount)
	assert.Equal(t, want.WarningCount, got.WarningCount)
	assert.Equal(t, want.ErrorCount, got.ErrorCount)
	assert.Equal(t, want.LogOnly, got.LogOnly)
	assert.Equal(t, domain.RunPartial, got.Status)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt))
}

func TestRunStore_GetMissing(t *testing.T) {
	f := setupFixture(t)

	_, err := f.store.Get(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunStore_DuplicateRunID(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	startedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, f.store.Add(ctx, summary("run-1", startedAt, domain.RunSucceeded)))
	assert.Error(t, f.store.Add(ctx, summary("run-1", startedAt, domain.RunSucceeded)))
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, f.store.Add(ctx, summary("run-old", base, domain.RunSucceeded)))
	require.NoError(t, f.store.Add(ctx, summary("run-mid", base.Add(time.Hour), domain.RunPartial)))
	require.NoError(t, f.store.Add(ctx, summary("run-new", base.Add(2*time.Hour), domain.RunSucceeded)))

	summaries, err := f.store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "run-new", summaries[0].RunID)
	assert.Equal(t, "run-mid", summaries[1].RunID)
	assert.Equal(t, "run-old", summaries[2].RunID)

	limited, err := f.store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRunStore_ListEmpty(t *testing.T) {
	f := setupFixture(t)

	summaries, err := f.store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
