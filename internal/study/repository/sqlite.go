package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"perception-study/internal/lasso"
	"perception-study/internal/study/models"
)

var ErrNotFound = errors.New("not found")

// timeLayout keeps fixed-width fractions so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

//go:embed migrations/*.sql
var migrations embed.FS

// ============================================================
// SQLite Repository
// ============================================================

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init applies the embedded migrations in file name order.
func (r *Repository) Init(ctx context.Context) error {
	if err := r.runMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ============================================================
// Sessions
// ============================================================

func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	charts, err := json.Marshal(s.SelectedCharts)
	if err != nil {
		return fmt.Errorf("encode charts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO sessions (id, participant_id, selected_charts, started_at)
        VALUES (?, ?, ?, ?)
    `, s.ID, s.ParticipantID, string(charts), formatTime(s.StartedAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, participant_id, selected_charts, started_at, completed_at, cleared_at
        FROM sessions
        WHERE id = ?
    `, id)

	var (
		s                  models.Session
		charts, started    string
		completed, cleared sql.NullString
	)
	if err := row.Scan(&s.ID, &s.ParticipantID, &charts, &started, &completed, &cleared); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(charts), &s.SelectedCharts); err != nil {
		return nil, fmt.Errorf("decode charts: %w", err)
	}
	var err error
	if s.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if s.CompletedAt, err = parseNullTime(completed); err != nil {
		return nil, err
	}
	if s.ClearedAt, err = parseNullTime(cleared); err != nil {
		return nil, err
	}
	return &s, nil
}

// MarkCompleted records the end of the main study. The first call wins.
func (r *Repository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	return r.touch(ctx, `UPDATE sessions SET completed_at = COALESCE(completed_at, ?) WHERE id = ?`, id, at)
}

func (r *Repository) MarkCleared(ctx context.Context, id string, at time.Time) error {
	return r.touch(ctx, `UPDATE sessions SET cleared_at = ? WHERE id = ?`, id, at)
}

func (r *Repository) touch(ctx context.Context, query, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, query, formatTime(at), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================
// Responses
// ============================================================

// UpsertResponse stores the answers for one chart, replacing an earlier
// record with the same chart index.
func (r *Repository) UpsertResponse(ctx context.Context, sessionID string, resp models.ChartResponse) error {
	points := resp.Lasso
	if points == nil {
		points = []lasso.Point{}
	}
	lassoJSON, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode lasso: %w", err)
	}

	var summary sql.NullString
	if resp.LassoSummary != nil {
		data, err := json.Marshal(resp.LassoSummary)
		if err != nil {
			return fmt.Errorf("encode lasso summary: %w", err)
		}
		summary = sql.NullString{String: string(data), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO responses (session_id, chart_index, chart_id, chart_category, understanding,
                               factors, lasso, lasso_summary, difficulty_scale, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (session_id, chart_index) DO UPDATE SET
            chart_id         = excluded.chart_id,
            chart_category   = excluded.chart_category,
            understanding    = excluded.understanding,
            factors          = excluded.factors,
            lasso            = excluded.lasso,
            lasso_summary    = excluded.lasso_summary,
            difficulty_scale = excluded.difficulty_scale,
            updated_at       = excluded.updated_at
    `,
		sessionID,
		resp.ChartIndex,
		resp.ChartID,
		resp.ChartCategory,
		resp.Understanding,
		resp.Factors,
		string(lassoJSON),
		summary,
		resp.DifficultyScale,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}
	return nil
}

func (r *Repository) ListResponses(ctx context.Context, sessionID string) ([]models.ChartResponse, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT chart_id, chart_index, chart_category, understanding, factors, lasso, lasso_summary, difficulty_scale
        FROM responses
        WHERE session_id = ?
        ORDER BY chart_index
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ChartResponse{}
	for rows.Next() {
		var (
			resp      models.ChartResponse
			lassoJSON string
			summary   sql.NullString
		)
		if err := rows.Scan(&resp.ChartID, &resp.ChartIndex, &resp.ChartCategory, &resp.Understanding,
			&resp.Factors, &lassoJSON, &summary, &resp.DifficultyScale); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(lassoJSON), &resp.Lasso); err != nil {
			return nil, fmt.Errorf("decode lasso: %w", err)
		}
		if summary.Valid {
			resp.LassoSummary = &lasso.Summary{}
			if err := json.Unmarshal([]byte(summary.String), resp.LassoSummary); err != nil {
				return nil, fmt.Errorf("decode lasso summary: %w", err)
			}
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

// LassosForChart returns every non-empty saved lasso drawn on chartID,
// across all sessions.
func (r *Repository) LassosForChart(ctx context.Context, chartID int) ([]lasso.Lasso, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT lasso FROM responses WHERE chart_id = ? AND lasso <> '[]'
    `, chartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lasso.Lasso
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var l lasso.Lasso
		if err := json.Unmarshal([]byte(raw), &l.Vertices); err != nil {
			return nil, fmt.Errorf("decode lasso: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ============================================================
// Submissions
// ============================================================

func (r *Repository) SaveSubmission(ctx context.Context, s models.Submission) error {
	results, err := json.Marshal(s.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO submissions (id, session_id, success, results, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, s.ID, s.SessionID, s.Success, string(results), formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (r *Repository) ListSubmissions(ctx context.Context, sessionID string) ([]models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, session_id, success, results, created_at
        FROM submissions
        WHERE session_id = ?
        ORDER BY created_at
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Submission{}
	for rows.Next() {
		var (
			s                models.Submission
			results, created string
		)
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Success, &results, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(results), &s.Results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
		if s.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// OpenSQLite opens the database at dbPath, creating its directory.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
