package models

import (
	"encoding/json"
	"time"

	"perception-study/internal/lasso"
)

// ============================================================
// Session Model
// ============================================================

type Session struct {
	ID              string         `json:"sessionId"`
	ParticipantID   string         `json:"participantId"`
	SelectedCharts  []int          `json:"selectedCharts"`
	ChartCategories map[int]string `json:"chartCategories"`
	StartedAt       time.Time      `json:"studyStartTime"`
	CompletedAt     *time.Time     `json:"mainStudyCompletedAt,omitempty"`
	ClearedAt       *time.Time     `json:"clearedAt,omitempty"`
}

func (s *Session) Active() bool {
	return s.ClearedAt == nil
}

// ============================================================
// Chart Response Model
// ============================================================

// ChartResponse is the answer set for one chart. ChartIndex is 1-based.
type ChartResponse struct {
	ChartID         int            `json:"chartId"`
	ChartIndex      int            `json:"chartIndex"`
	ChartCategory   string         `json:"chartCategory"`
	Understanding   string         `json:"understanding"`
	Factors         string         `json:"factors"`
	Lasso           []lasso.Point  `json:"lasso"`
	LassoSummary    *lasso.Summary `json:"lassoSummary"`
	DifficultyScale int            `json:"difficultyScale"`
}

// ============================================================
// Timing
// ============================================================

type StudyTiming struct {
	StartTime            int64  `json:"startTime"`
	EndTime              int64  `json:"endTime"`
	TotalDurationMs      int64  `json:"totalDurationMs"`
	TotalDurationSeconds int64  `json:"totalDurationSeconds"`
	TotalDurationMinutes int64  `json:"totalDurationMinutes"`
	FormattedDuration    string `json:"formattedDuration"`
}

// ============================================================
// Participant Document
// ============================================================

// ParticipantData is the document written to participant_<sessionId>.json.
type ParticipantData struct {
	Demographic      json.RawMessage `json:"demographic"`
	Responses        []ChartResponse `json:"responses"`
	SessionID        string          `json:"sessionId"`
	ParticipantID    string          `json:"participantId"`
	SelectedCharts   []int           `json:"selectedCharts"`
	ChartCategories  map[int]string  `json:"chartCategories"`
	CompletedAt      string          `json:"completedAt"`
	TotalTimeMinutes int64           `json:"totalTimeMinutes"`
	StudyTiming      *StudyTiming    `json:"studyTiming,omitempty"`
	PostStudy        json.RawMessage `json:"postStudy,omitempty"`
}

// Envelope is the body posted to the external form relay.
type Envelope struct {
	SessionID       string `json:"sessionId"`
	ParticipantData string `json:"participantData"`
	Timestamp       string `json:"timestamp"`
	StudyType       string `json:"studyType"`
}

// ============================================================
// Submission Result
// ============================================================

type Destination string

const (
	DestinationRelay  Destination = "relay"
	DestinationFile   Destination = "file"
	DestinationBackup Destination = "backup"
)

type DeliveryResult struct {
	Destination Destination `json:"destination"`
	OK          bool        `json:"ok"`
	Skipped     bool        `json:"skipped,omitempty"`
	Location    string      `json:"location,omitempty"`
	Error       string      `json:"error,omitempty"`
}

type Submission struct {
	ID        string           `json:"submissionId"`
	SessionID string           `json:"sessionId"`
	Success   bool             `json:"success"`
	Results   []DeliveryResult `json:"results"`
	CreatedAt time.Time        `json:"createdAt"`
}
