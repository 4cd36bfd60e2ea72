package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perception-study/internal/lasso"
	"perception-study/internal/study/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "study.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := New(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestInitIsRepeatable(t *testing.T) {
	repo := newTestRepo(t)
	assert.NoError(t, repo.Init(context.Background()))
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	started := time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC)
	s := &models.Session{
		ID:             "s-1",
		ParticipantID:  "P-abcdef12",
		SelectedCharts: []int{4, 17, 33},
		StartedAt:      started,
	}
	require.NoError(t, repo.CreateSession(ctx, s))

	got, err := repo.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "P-abcdef12", got.ParticipantID)
	assert.Equal(t, []int{4, 17, 33}, got.SelectedCharts)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Nil(t, got.CompletedAt)
	assert.True(t, got.Active())

	first := started.Add(20 * time.Minute)
	require.NoError(t, repo.MarkCompleted(ctx, "s-1", first))
	require.NoError(t, repo.MarkCompleted(ctx, "s-1", first.Add(time.Hour)))
	require.NoError(t, repo.MarkCleared(ctx, "s-1", first.Add(2*time.Hour)))

	got, err = repo.GetSession(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, first.Equal(*got.CompletedAt))
	assert.False(t, got.Active())

	_, err = repo.GetSession(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(repo.MarkCompleted(ctx, "missing", first), ErrNotFound))
}

func TestUpsertResponseReplaces(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateSession(ctx, &models.Session{ID: "s-1", ParticipantID: "P-1", StartedAt: time.Now()}))

	summary := &lasso.Summary{BBox: lasso.BBox{MaxX: 0.1, MaxY: 0.1}, Centroid: lasso.Point{X: 0.04, Y: 0.04}, Area: 0.01}
	resp := models.ChartResponse{
		ChartID:         12,
		ChartIndex:      1,
		ChartCategory:   "Single-class Line Charts",
		Understanding:   "rising trend",
		Lasso:           []lasso.Point{{X: 0, Y: 0}, {X: 0.1, Y: 0}, {X: 0.1, Y: 0.1}, {X: 0, Y: 0}},
		LassoSummary:    summary,
		DifficultyScale: 2,
	}
	require.NoError(t, repo.UpsertResponse(ctx, "s-1", resp))

	resp.Understanding = "flat, then rising"
	resp.DifficultyScale = 4
	require.NoError(t, repo.UpsertResponse(ctx, "s-1", resp))

	second := models.ChartResponse{ChartID: 30, ChartIndex: 2, ChartCategory: "Multi-class Bar Graphs", Understanding: "x", DifficultyScale: 1}
	require.NoError(t, repo.UpsertResponse(ctx, "s-1", second))

	list, err := repo.ListResponses(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "flat, then rising", list[0].Understanding)
	assert.Equal(t, 4, list[0].DifficultyScale)
	assert.Equal(t, resp.Lasso, list[0].Lasso)
	require.NotNil(t, list[0].LassoSummary)
	assert.Equal(t, *summary, *list[0].LassoSummary)
	assert.Empty(t, list[1].Lasso)
	assert.Nil(t, list[1].LassoSummary)

	empty, err := repo.ListResponses(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLassosForChart(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	square := []lasso.Point{{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 0.5, Y: 0.5}, {X: 0, Y: 0}}
	for i, sid := range []string{"a", "b", "c"} {
		require.NoError(t, repo.CreateSession(ctx, &models.Session{ID: sid, ParticipantID: sid, StartedAt: time.Now()}))
		resp := models.ChartResponse{ChartID: 7, ChartIndex: 1, Understanding: "u", DifficultyScale: 3}
		if i < 2 {
			resp.Lasso = square
		}
		require.NoError(t, repo.UpsertResponse(ctx, sid, resp))
	}

	lassos, err := repo.LassosForChart(ctx, 7)
	require.NoError(t, err)
	require.Len(t, lassos, 2)
	assert.Equal(t, square, lassos[0].Vertices)

	none, err := repo.LassosForChart(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSubmissions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	now := time.Now()
	require.NoError(t, repo.SaveSubmission(ctx, models.Submission{
		ID:        "sub-1",
		SessionID: "s-1",
		Success:   true,
		Results: []models.DeliveryResult{
			{Destination: models.DestinationRelay, Skipped: true},
			{Destination: models.DestinationFile, OK: true, Location: "data/participant_s-1.json"},
		},
		CreatedAt: now,
	}))
	require.NoError(t, repo.SaveSubmission(ctx, models.Submission{
		ID:        "sub-2",
		SessionID: "s-1",
		Results:   []models.DeliveryResult{{Destination: models.DestinationFile, Error: "disk full"}},
		CreatedAt: now.Add(time.Second),
	}))

	list, err := repo.ListSubmissions(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "sub-1", list[0].ID)
	assert.True(t, list[0].Success)
	assert.Len(t, list[0].Results, 2)
	assert.False(t, list[1].Success)
	assert.Equal(t, "disk full", list[1].Results[0].Error)
}
