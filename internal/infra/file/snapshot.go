// Package file persists content snapshots as local JSON files so the server
// can come up while the live source is unreachable.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"funky-quizbot/internal/content"
	"funky-quizbot/internal/domain"
)

const snapshotName = "snapshot.json"

// SnapshotStore reads and writes one snapshot file under dir. It doubles as a
// content.Source for deployments running purely off a pre-fetched snapshot.
type SnapshotStore struct {
	dir string
}

func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

// Save writes the snapshot via a temp file and rename, so a crashed write
// never leaves a truncated snapshot behind.
func (s *SnapshotStore) Save(snap *content.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, snapshotName+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, snapshotName))
}

func (s *SnapshotStore) Load() (*content.Snapshot, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, snapshotName))
	if err != nil {
		return nil, err
	}
	var snap content.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}

func (s *SnapshotStore) FetchQuestions(_ context.Context) ([]domain.QuizQuestion, error) {
	snap, err := s.Load()
	if err != nil {
		return nil, err
	}
	return snap.Questions, nil
}

func (s *SnapshotStore) FetchPrizes(_ context.Context) ([]domain.Prize, error) {
	snap, err := s.Load()
	if err != nil {
		return nil, err
	}
	return snap.Prizes, nil
}

func (s *SnapshotStore) FetchReactions(_ context.Context) ([]domain.ReactionMedia, error) {
	snap, err := s.Load()
	if err != nil {
		return nil, err
	}
	return snap.Reactions, nil
}
