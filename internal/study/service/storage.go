package service

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// ============================================================
// File Storage
// ============================================================

type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) Root() string {
	return s.root
}

func (s *FileStorage) ParticipantPath(sessionID string) string {
	return filepath.Join(s.root, fmt.Sprintf("participant_%s.json", sessionID))
}

func (s *FileStorage) BackupDir() string {
	return filepath.Join(s.root, "backup")
}

func (s *FileStorage) BackupPath(sessionID string) string {
	return filepath.Join(s.BackupDir(), fmt.Sprintf("participant_%s.json", sessionID))
}

// LegacyPath names uploads of the old /submit endpoint by arrival time.
func (s *FileStorage) LegacyPath(unixMillis int64) string {
	return filepath.Join(s.root, fmt.Sprintf("participant_%d.json", unixMillis))
}

func (s *FileStorage) EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// WriteJSON stores v indented by two spaces at target.
func (s *FileStorage) WriteJSON(target string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(target), err)
	}
	return s.SaveFile(target, data)
}

func (s *FileStorage) SaveFile(target string, data []byte) error {
	if err := s.EnsureDir(filepath.Dir(target)); err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	log.Printf("[STORAGE] Wrote %s (%s)", target, humanize.Bytes(uint64(len(data))))
	return nil
}
