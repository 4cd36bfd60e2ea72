package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perception-study/internal/lasso"
	"perception-study/internal/study/models"
	"perception-study/internal/study/repository"
)

type fixture struct {
	study   *Study
	repo    *repository.Repository
	storage *FileStorage
	clock   *time.Time
}

func newFixture(t *testing.T, relayURL string) *fixture {
	t.Helper()

	dir := t.TempDir()
	db, err := repository.OpenSQLite(filepath.Join(dir, "db", "study.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background()))

	storage := NewFileStorage(filepath.Join(dir, "data"))
	submitter := NewSubmitter(NewRelay(relayURL, "8_chart_hhlc_experiment"), storage)
	study := NewStudy(repo, lasso.NewRegistry(lasso.DefaultOptions()), NewSessionManager(), submitter, 2)

	clock := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	f := &fixture{study: study, repo: repo, storage: storage, clock: &clock}
	study.now = func() time.Time { return *f.clock }
	submitter.now = study.now
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func drawSquare(t *testing.T, r *lasso.Region) {
	t.Helper()
	_, err := r.Events(
		lasso.Event{Kind: lasso.EventDown, PointerID: 1, X: 0, Y: 0},
		lasso.Event{Kind: lasso.EventMove, PointerID: 1, X: 10, Y: 0},
		lasso.Event{Kind: lasso.EventMove, PointerID: 1, X: 10, Y: 10},
		lasso.Event{Kind: lasso.EventMove, PointerID: 1, X: 0, Y: 10},
		lasso.Event{Kind: lasso.EventUp, PointerID: 1},
	)
	require.NoError(t, err)
}

func TestTiming(t *testing.T) {
	start := time.UnixMilli(1_000_000)
	tm := Timing(start, start.Add(12*time.Minute+34*time.Second+600*time.Millisecond))

	assert.Equal(t, int64(1_000_000), tm.StartTime)
	assert.Equal(t, int64(754600), tm.TotalDurationMs)
	assert.Equal(t, int64(755), tm.TotalDurationSeconds)
	assert.Equal(t, int64(13), tm.TotalDurationMinutes)
	assert.Equal(t, "12:34", tm.FormattedDuration)

	assert.Equal(t, int64(0), Timing(start, start.Add(-time.Second)).TotalDurationMs)
	assert.Equal(t, "0:05", FormatDuration(5999))
	assert.Equal(t, "61:00", FormatDuration(61*60*1000))
}

func TestSessionManager(t *testing.T) {
	m := NewSessionManager()
	a := m.Issue("s1")
	b := m.Issue("s1")
	c := m.Issue("s2")
	assert.NotEqual(t, a, b)

	id, ok := m.Resolve(a)
	assert.True(t, ok)
	assert.Equal(t, "s1", id)

	assert.Equal(t, 2, m.RevokeSession("s1"))
	_, ok = m.Resolve(b)
	assert.False(t, ok)
	_, ok = m.Resolve(c)
	assert.True(t, ok)
}

func TestStartAndClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	sess, token, err := f.study.Start(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^P-[0-9a-f]{8}$`, sess.ParticipantID)
	assert.Len(t, sess.SelectedCharts, 16)
	assert.Len(t, sess.ChartCategories, 16)

	got, err := f.study.SessionByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.SelectedCharts, got.SelectedCharts)

	_, err = f.study.OpenRegion(ctx, sess.ID, 0, 100, 100)
	require.NoError(t, err)
	_, err = f.study.OpenRegion(ctx, sess.ID, 1, 100, 100)
	require.NoError(t, err)

	n, err := f.study.Clear(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, f.study.Regions().Len())

	_, err = f.study.SessionByToken(ctx, token)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = f.study.OpenRegion(ctx, sess.ID, 0, 100, 100)
	assert.True(t, errors.Is(err, ErrSessionCleared))

	_, err = f.study.Clear(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestOpenRegionValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	sess, _, err := f.study.Start(ctx)
	require.NoError(t, err)

	_, err = f.study.OpenRegion(ctx, sess.ID, 16, 100, 100)
	assert.True(t, errors.Is(err, ErrInvalidResponse))
	_, err = f.study.OpenRegion(ctx, sess.ID, 0, 0, 100)
	assert.True(t, errors.Is(err, lasso.ErrInvalidSurface))
	_, err = f.study.OpenRegion(ctx, "nope", 0, 100, 100)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestCompleteKeepsFirstTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	sess, _, err := f.study.Start(ctx)
	require.NoError(t, err)

	f.advance(3*time.Minute + 7*time.Second)
	tm, err := f.study.Complete(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "3:07", tm.FormattedDuration)
	assert.Equal(t, int64(3), tm.TotalDurationMinutes)

	f.advance(time.Hour)
	again, err := f.study.Complete(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, tm, again)
}

func TestSaveResponse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	sess, _, err := f.study.Start(ctx)
	require.NoError(t, err)

	r, err := f.study.OpenRegion(ctx, sess.ID, 0, 100, 100)
	require.NoError(t, err)

	in := ResponseInput{ChartIndex: 0, Understanding: "  upward  ", DifficultyScale: 3, RegionID: string(r.ID())}

	// drawn but not saved
	drawSquare(t, r)
	_, err = f.study.SaveResponse(ctx, sess.ID, in)
	assert.True(t, errors.Is(err, ErrLassoNotSaved))

	_, err = r.Save()
	require.NoError(t, err)
	resp, err := f.study.SaveResponse(ctx, sess.ID, in)
	require.NoError(t, err)

	assert.Equal(t, sess.SelectedCharts[0], resp.ChartID)
	assert.Equal(t, 1, resp.ChartIndex)
	assert.Equal(t, "upward", resp.Understanding)
	assert.Len(t, resp.Lasso, 5)
	require.NotNil(t, resp.LassoSummary)
	assert.InDelta(t, 0.01, resp.LassoSummary.Area, 1e-12)

	stored, err := f.study.Responses(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, resp.Lasso, stored[0].Lasso)
}

func TestSaveResponseRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	sess, _, err := f.study.Start(ctx)
	require.NoError(t, err)
	other, err := f.study.OpenRegion(ctx, sess.ID, 1, 100, 100)
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		in   ResponseInput
		want error
	}{
		"index":         {ResponseInput{ChartIndex: 99, Understanding: "x", DifficultyScale: 3}, ErrInvalidResponse},
		"understanding": {ResponseInput{Understanding: "   ", DifficultyScale: 3}, ErrInvalidResponse},
		"difficulty":    {ResponseInput{Understanding: "x", DifficultyScale: 6}, ErrInvalidResponse},
		"no difficulty": {ResponseInput{Understanding: "x"}, ErrInvalidResponse},
		"bad region":    {ResponseInput{Understanding: "x", DifficultyScale: 1, RegionID: "zzz"}, lasso.ErrUnknownRegion},
		"wrong chart":   {ResponseInput{Understanding: "x", DifficultyScale: 1, RegionID: string(other.ID())}, ErrRegionNotInScope},
		"required":      {ResponseInput{Understanding: "x", DifficultyScale: 1, RequireLasso: true}, ErrLassoNotSaved},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.study.SaveResponse(ctx, sess.ID, tc.in)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestSubmitWritesFileAndBackup(t *testing.T) {
	ctx := context.Background()

	var hits atomic.Int32
	var envelope models.Envelope
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &envelope)
		w.WriteHeader(http.StatusOK)
	}))
	defer relay.Close()

	f := newFixture(t, relay.URL)
	sess, _, err := f.study.Start(ctx)
	require.NoError(t, err)
	_, err = f.study.SaveResponse(ctx, sess.ID, ResponseInput{ChartIndex: 2, Understanding: "clusters", DifficultyScale: 2})
	require.NoError(t, err)

	f.advance(10 * time.Minute)
	_, err = f.study.Complete(ctx, sess.ID)
	require.NoError(t, err)
	f.advance(2 * time.Minute)

	sub, err := f.study.Submit(ctx, sess.ID, json.RawMessage(`{"age":"30"}`), json.RawMessage(`{"comments":"none"}`))
	require.NoError(t, err)
	assert.True(t, sub.Success)
	require.Len(t, sub.Results, 3)
	for _, r := range sub.Results {
		assert.True(t, r.OK, r.Destination)
	}

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, sess.ID, envelope.SessionID)
	assert.Equal(t, "8_chart_hhlc_experiment", envelope.StudyType)

	raw, err := os.ReadFile(f.storage.ParticipantPath(sess.ID))
	require.NoError(t, err)
	var doc models.ParticipantData
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, sess.ParticipantID, doc.ParticipantID)
	assert.JSONEq(t, `{"age":"30"}`, string(doc.Demographic))
	assert.JSONEq(t, `{"comments":"none"}`, string(doc.PostStudy))
	require.Len(t, doc.Responses, 1)
	assert.Equal(t, 3, doc.Responses[0].ChartIndex)
	assert.Equal(t, int64(10), doc.TotalTimeMinutes)
	require.NotNil(t, doc.StudyTiming)
	assert.Equal(t, "10:00", doc.StudyTiming.FormattedDuration)

	var relayed models.ParticipantData
	require.NoError(t, json.Unmarshal([]byte(envelope.ParticipantData), &relayed))
	assert.Equal(t, doc.SessionID, relayed.SessionID)

	_, err = os.Stat(f.storage.BackupPath(sess.ID))
	assert.NoError(t, err)

	recorded, err := f.repo.ListSubmissions(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, sub.ID, recorded[0].ID)
}

func TestSubmitRelayFailureStillSucceeds(t *testing.T) {
	ctx := context.Background()
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer relay.Close()

	f := newFixture(t, relay.URL)
	sess, _, err := f.study.Start(ctx)
	require.NoError(t, err)

	sub, err := f.study.Submit(ctx, sess.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, sub.Success)
	assert.Equal(t, models.DestinationRelay, sub.Results[0].Destination)
	assert.False(t, sub.Results[0].OK)
	assert.Contains(t, sub.Results[0].Error, "503")
}

func TestSubmitWithoutRelay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	sess, _, err := f.study.Start(ctx)
	require.NoError(t, err)

	sub, err := f.study.Submit(ctx, sess.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, sub.Success)
	assert.True(t, sub.Results[0].Skipped)

	_, err = f.study.Submit(ctx, "missing", nil, nil)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestSubmitFileFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	sess, _, err := f.study.Start(ctx)
	require.NoError(t, err)

	// a plain file where the data directory should be
	require.NoError(t, os.WriteFile(f.storage.Root(), []byte("x"), 0o644))

	sub, err := f.study.Submit(ctx, sess.ID, nil, nil)
	require.NoError(t, err)
	assert.False(t, sub.Success)
	assert.NotEmpty(t, sub.Results[1].Error)
}

func TestSubmitLegacy(t *testing.T) {
	f := newFixture(t, "")
	path, err := f.study.SubmitLegacy([]byte(`{"hello":"world"}`))
	require.NoError(t, err)
	assert.Equal(t, f.storage.LegacyPath(f.clock.UnixMilli()), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world"}`, string(raw))
}

func TestSubmitClearedSessionRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	sess, _, err := f.study.Start(ctx)
	require.NoError(t, err)

	_, err = f.study.Clear(ctx, sess.ID)
	require.NoError(t, err)

	_, err = f.study.Submit(ctx, sess.ID, nil, nil)
	assert.True(t, errors.Is(err, ErrSessionCleared))
	_, err = os.Stat(f.storage.ParticipantPath(sess.ID))
	assert.True(t, os.IsNotExist(err))

	subs, err := f.study.Submissions(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubmissionsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	sess, _, err := f.study.Start(ctx)
	require.NoError(t, err)

	first, err := f.study.Submit(ctx, sess.ID, nil, nil)
	require.NoError(t, err)
	f.advance(time.Minute)
	_, err = f.study.Submit(ctx, sess.ID, nil, nil)
	require.NoError(t, err)

	subs, err := f.study.Submissions(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, first.ID, subs[0].ID)
	assert.True(t, subs[0].Success)
	assert.Equal(t, models.DestinationRelay, subs[0].Results[0].Destination)

	_, err = f.study.Submissions(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}
