package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"perception-study/internal/study/models"
)

var (
	ErrRelayDisabled = errors.New("relay disabled")
	ErrRelayRejected = errors.New("relay rejected submission")
)

// ============================================================
// Form Relay
// ============================================================

// Relay forwards participant documents to an external form endpoint.
type Relay struct {
	targetURL string
	studyType string
	client    *http.Client
}

// NewRelay returns a relay posting to targetURL. An empty URL disables it.
func NewRelay(targetURL, studyType string) *Relay {
	return &Relay{
		targetURL: targetURL,
		studyType: studyType,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *Relay) Enabled() bool {
	return r != nil && r.targetURL != ""
}

func (r *Relay) TargetURL() string {
	return r.targetURL
}

// Envelope wraps the document the way the form endpoint expects it: the
// full document as an indented JSON string next to a few index fields.
func (r *Relay) Envelope(data *models.ParticipantData, at time.Time) (models.Envelope, error) {
	doc, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return models.Envelope{}, fmt.Errorf("encode participant data: %w", err)
	}
	return models.Envelope{
		SessionID:       data.SessionID,
		ParticipantData: string(doc),
		Timestamp:       at.UTC().Format(isoMillis),
		StudyType:       r.studyType,
	}, nil
}

// Send posts the envelope once. Any non-2xx answer is ErrRelayRejected.
func (r *Relay) Send(ctx context.Context, env models.Envelope) error {
	if !r.Enabled() {
		return ErrRelayDisabled
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	log.Printf("[RELAY] Forwarding session %s to: %s", env.SessionID, r.targetURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.targetURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("[RELAY] Error: %v", err)
		return fmt.Errorf("reach relay: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[RELAY] Upstream answered %d", resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrRelayRejected, resp.StatusCode)
	}
	return nil
}
