package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"perception-study/internal/lasso"
	"perception-study/internal/study/charts"
	"perception-study/internal/study/models"
	"perception-study/internal/study/repository"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCleared   = errors.New("session cleared")
	ErrInvalidResponse  = errors.New("invalid response")
	ErrLassoNotSaved    = errors.New("lasso not saved")
	ErrRegionNotInScope = errors.New("region belongs to another question")
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// ============================================================
// Study Service
// ============================================================

// Study ties sessions, lasso regions, responses and submission together.
type Study struct {
	repo      *repository.Repository
	regions   *lasso.Registry
	tokens    *SessionManager
	submitter *Submitter

	perCategory int

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewStudy(repo *repository.Repository, regions *lasso.Registry, tokens *SessionManager, submitter *Submitter, perCategory int) *Study {
	return &Study{
		repo:        repo,
		regions:     regions,
		tokens:      tokens,
		submitter:   submitter,
		perCategory: perCategory,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		now:         time.Now,
	}
}

func (s *Study) Regions() *lasso.Registry { return s.regions }
func (s *Study) Tokens() *SessionManager  { return s.tokens }
func (s *Study) Storage() *FileStorage    { return s.submitter.storage }

// ============================================================
// Sessions
// ============================================================

// Start opens a new session with a fresh stratified chart selection and
// returns it with a cookie token.
func (s *Study) Start(ctx context.Context) (*models.Session, string, error) {
	s.mu.Lock()
	selected := charts.Select(s.rng, s.perCategory)
	s.mu.Unlock()

	sess := &models.Session{
		ID:              uuid.NewString(),
		ParticipantID:   "P-" + uuid.NewString()[:8],
		SelectedCharts:  selected,
		ChartCategories: charts.CategoryMap(selected),
		StartedAt:       s.now(),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, "", err
	}

	log.Printf("[STUDY] Session %s started for %s with %d charts", sess.ID, sess.ParticipantID, len(selected))
	return sess, s.tokens.Issue(sess.ID), nil
}

func (s *Study) Session(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	sess.ChartCategories = charts.CategoryMap(sess.SelectedCharts)
	return sess, nil
}

// SessionByToken resolves a cookie token to its session.
func (s *Study) SessionByToken(ctx context.Context, token string) (*models.Session, error) {
	id, ok := s.tokens.Resolve(token)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Session(ctx, id)
}

func (s *Study) activeSession(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return nil, fmt.Errorf("%w: %s", ErrSessionCleared, id)
	}
	return sess, nil
}

// Clear ends a session: it is marked cleared, its tokens are revoked and
// its lasso regions are disposed.
func (s *Study) Clear(ctx context.Context, id string) (int, error) {
	if err := s.repo.MarkCleared(ctx, id, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return 0, err
	}
	s.tokens.RevokeSession(id)
	n := s.regions.DisposeOwner(id)
	log.Printf("[STUDY] Session %s cleared, %d lasso regions disposed", id, n)
	return n, nil
}

// Complete marks the main study finished and reports its timing. Repeated
// calls keep the first completion time.
func (s *Study) Complete(ctx context.Context, id string) (models.StudyTiming, error) {
	if _, err := s.activeSession(ctx, id); err != nil {
		return models.StudyTiming{}, err
	}
	if err := s.repo.MarkCompleted(ctx, id, s.now()); err != nil {
		return models.StudyTiming{}, err
	}
	sess, err := s.Session(ctx, id)
	if err != nil {
		return models.StudyTiming{}, err
	}
	return Timing(sess.StartedAt, *sess.CompletedAt), nil
}

// ============================================================
// Lasso Regions
// ============================================================

// OpenRegion creates the lasso region of one chart question.
func (s *Study) OpenRegion(ctx context.Context, sessionID string, chartIndex int, width, height float64) (*lasso.Region, error) {
	sess, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if chartIndex < 0 || chartIndex >= len(sess.SelectedCharts) {
		return nil, fmt.Errorf("%w: chart index %d out of range", ErrInvalidResponse, chartIndex)
	}

	// owner outlives the request, so it comes from the stored session
	r, err := s.regions.Open(sess.ID, chartIndex, width, height)
	if err != nil {
		return nil, err
	}
	log.Printf("[LASSO] Region %s opened for session %s chart %d (%gx%g)", r.ID(), sessionID, chartIndex, width, height)
	return r, nil
}

// ============================================================
// Responses
// ============================================================

type ResponseInput struct {
	ChartIndex      int    `json:"chartIndex"`
	Understanding   string `json:"understanding"`
	Factors         string `json:"factors"`
	DifficultyScale int    `json:"difficultyScale"`
	RegionID        string `json:"regionId"`
	RequireLasso    bool   `json:"requireLasso"`
}

// SaveResponse validates the answers for the chart at the 0-based
// ChartIndex and stores them, attaching the saved lasso of RegionID.
func (s *Study) SaveResponse(ctx context.Context, sessionID string, in ResponseInput) (models.ChartResponse, error) {
	sess, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return models.ChartResponse{}, err
	}

	if in.ChartIndex < 0 || in.ChartIndex >= len(sess.SelectedCharts) {
		return models.ChartResponse{}, fmt.Errorf("%w: chart index %d out of range", ErrInvalidResponse, in.ChartIndex)
	}
	understanding := strings.TrimSpace(in.Understanding)
	if understanding == "" {
		return models.ChartResponse{}, fmt.Errorf("%w: understanding is required", ErrInvalidResponse)
	}
	if in.DifficultyScale < MinDifficulty || in.DifficultyScale > MaxDifficulty {
		return models.ChartResponse{}, fmt.Errorf("%w: difficulty must be %d..%d", ErrInvalidResponse, MinDifficulty, MaxDifficulty)
	}

	chartID := sess.SelectedCharts[in.ChartIndex]
	resp := models.ChartResponse{
		ChartID:         chartID,
		ChartIndex:      in.ChartIndex + 1,
		ChartCategory:   charts.CategoryOf(chartID),
		Understanding:   understanding,
		Factors:         strings.TrimSpace(in.Factors),
		Lasso:           []lasso.Point{},
		DifficultyScale: in.DifficultyScale,
	}

	if in.RegionID != "" {
		saved, err := s.savedLasso(sessionID, in.ChartIndex, in.RegionID)
		if err != nil {
			return models.ChartResponse{}, err
		}
		resp.Lasso = saved.Vertices
		resp.LassoSummary = &saved.Summary
	} else if in.RequireLasso {
		return models.ChartResponse{}, fmt.Errorf("%w: a region is required", ErrLassoNotSaved)
	}

	if err := s.repo.UpsertResponse(ctx, sessionID, resp); err != nil {
		return models.ChartResponse{}, err
	}
	log.Printf("[STUDY] Session %s answered chart %d (id %d, %d lasso vertices)", sessionID, resp.ChartIndex, chartID, len(resp.Lasso))
	return resp, nil
}

func (s *Study) savedLasso(sessionID string, chartIndex int, rawID string) (lasso.Lasso, error) {
	id, err := lasso.ParseRegionID(rawID)
	if err != nil {
		return lasso.Lasso{}, err
	}
	r, err := s.regions.Get(id)
	if err != nil {
		return lasso.Lasso{}, err
	}
	if r.Owner() != sessionID || r.ChartIndex() != chartIndex {
		return lasso.Lasso{}, ErrRegionNotInScope
	}
	saved, ok := r.Saved()
	if !ok {
		return lasso.Lasso{}, ErrLassoNotSaved
	}
	return saved, nil
}

func (s *Study) Responses(ctx context.Context, sessionID string) ([]models.ChartResponse, error) {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListResponses(ctx, sessionID)
}

// ============================================================
// Submission
// ============================================================

// Assemble builds the participant document from stored state. The study
// timing runs to the recorded completion, or to now when the main study
// was never marked complete. Cleared sessions cannot be assembled.
func (s *Study) Assemble(ctx context.Context, sessionID string, demographic, postStudy json.RawMessage) (*models.ParticipantData, error) {
	sess, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	responses, err := s.repo.ListResponses(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	end := now
	if sess.CompletedAt != nil {
		end = *sess.CompletedAt
	}
	timing := Timing(sess.StartedAt, end)

	if len(demographic) == 0 {
		demographic = json.RawMessage(`{}`)
	}

	return &models.ParticipantData{
		Demographic:      demographic,
		Responses:        responses,
		SessionID:        sess.ID,
		ParticipantID:    sess.ParticipantID,
		SelectedCharts:   sess.SelectedCharts,
		ChartCategories:  sess.ChartCategories,
		CompletedAt:      now.UTC().Format(isoMillis),
		TotalTimeMinutes: timing.TotalDurationMinutes,
		StudyTiming:      &timing,
		PostStudy:        postStudy,
	}, nil
}

// Submit assembles the document, delivers it and records the outcome.
func (s *Study) Submit(ctx context.Context, sessionID string, demographic, postStudy json.RawMessage) (models.Submission, error) {
	data, err := s.Assemble(ctx, sessionID, demographic, postStudy)
	if err != nil {
		return models.Submission{}, err
	}

	sub := s.submitter.Submit(ctx, data)
	if err := s.repo.SaveSubmission(ctx, sub); err != nil {
		log.Printf("[STUDY] Record submission %s: %v", sub.ID, err)
	}
	return sub, nil
}

// Submissions lists the delivery outcomes recorded for a session.
func (s *Study) Submissions(ctx context.Context, sessionID string) ([]models.Submission, error) {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListSubmissions(ctx, sessionID)
}

// SubmitLegacy stores an arbitrary document under its arrival time.
func (s *Study) SubmitLegacy(body []byte) (string, error) {
	path := s.Storage().LegacyPath(s.now().UnixMilli())
	if err := s.Storage().SaveFile(path, body); err != nil {
		return "", err
	}
	return path, nil
}

// ChartLassos lists every stored lasso for a chart id.
func (s *Study) ChartLassos(ctx context.Context, chartID int) ([]lasso.Lasso, error) {
	if !charts.Valid(chartID) {
		return nil, fmt.Errorf("%w: unknown chart %d", ErrInvalidResponse, chartID)
	}
	return s.repo.LassosForChart(ctx, chartID)
}
