package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"perception-study/internal/study/models"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ============================================================
// Submitter
// ============================================================

// Submitter delivers one participant document to every destination: the
// form relay, the data directory and its backup folder. Each destination
// is tried once; the submission counts as successful when the data file
// was written.
type Submitter struct {
	relay   *Relay
	storage *FileStorage
	now     func() time.Time
}

func NewSubmitter(relay *Relay, storage *FileStorage) *Submitter {
	return &Submitter{
		relay:   relay,
		storage: storage,
		now:     time.Now,
	}
}

func (s *Submitter) Submit(ctx context.Context, data *models.ParticipantData) models.Submission {
	at := s.now()
	sub := models.Submission{
		ID:        uuid.NewString(),
		SessionID: data.SessionID,
		CreatedAt: at,
	}

	sub.Results = append(sub.Results, s.toRelay(ctx, data, at))

	fileResult := s.toFile(models.DestinationFile, s.storage.ParticipantPath(data.SessionID), data)
	sub.Results = append(sub.Results, fileResult)
	sub.Results = append(sub.Results, s.toFile(models.DestinationBackup, s.storage.BackupPath(data.SessionID), data))

	sub.Success = fileResult.OK
	log.Printf("[STUDY] Submission %s for session %s: success=%t", sub.ID, sub.SessionID, sub.Success)
	return sub
}

func (s *Submitter) toRelay(ctx context.Context, data *models.ParticipantData, at time.Time) models.DeliveryResult {
	result := models.DeliveryResult{Destination: models.DestinationRelay}
	if !s.relay.Enabled() {
		result.Skipped = true
		return result
	}
	result.Location = s.relay.TargetURL()

	env, err := s.relay.Envelope(data, at)
	if err == nil {
		err = s.relay.Send(ctx, env)
	}
	if err != nil {
		log.Printf("[RELAY] Submission for %s failed: %v", data.SessionID, err)
		result.Error = err.Error()
		return result
	}
	result.OK = true
	return result
}

func (s *Submitter) toFile(dest models.Destination, path string, data *models.ParticipantData) models.DeliveryResult {
	result := models.DeliveryResult{Destination: dest, Location: path}
	if err := s.storage.WriteJSON(path, data); err != nil {
		log.Printf("[STORAGE] %s write failed: %v", dest, err)
		result.Error = err.Error()
		return result
	}
	result.OK = true
	return result
}
