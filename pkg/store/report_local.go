package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalReportStore persists reports as files under a directory, following
// spec.md §6's "<reports_dir>/migration_report_<execution_id>.json"
// layout. cmd/ingestd does not construct one.
type LocalReportStore struct {
	dir string
}

// NewLocalReportStore returns a LocalReportStore rooted at dir, creating
// it if necessary.
func NewLocalReportStore(dir string) (*LocalReportStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating reports dir %q: %w", dir, err)
	}
	return &LocalReportStore{dir: dir}, nil
}

func (s *LocalReportStore) Save(_ context.Context, name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving report %q: %w", name, err)
	}
	return nil
}

func (s *LocalReportStore) Load(_ context.Context, name string) ([]byte, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("loading report %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("loading report %q: %w", name, err)
	}
	return data, nil
}
