package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrRunNotFound is returned by Load for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// DiskStore keeps each RunResult as <id>.json in one directory. Without
// an explicit directory it uses a temp directory created on first use and
// removed by Close; an explicit directory is left in place so runs can be
// inspected by a later process.
type DiskStore struct {
	mu    sync.Mutex
	dir   string
	owned bool
}

// NewDiskStore creates a DiskStore rooted at dir, or at a fresh temp
// directory when dir is empty.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Dir returns the directory runs are written to, creating it if needed.
func (s *DiskStore) Dir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		dir, err := os.MkdirTemp("", "scaffoldcheck-runs-*")
		if err != nil {
			return "", fmt.Errorf("creating run directory: %w", err)
		}
		s.dir, s.owned = dir, true
		return dir, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	return s.dir, nil
}

// Save writes result as indented JSON, replacing any earlier copy.
func (s *DiskStore) Save(result *RunResult) error {
	if err := checkRunID(result.ID); err != nil {
		return err
	}
	dir, err := s.Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", result.ID, err)
	}
	// Write then rename so a concurrent Load never sees half a file.
	tmp, err := os.CreateTemp(dir, result.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing run %s: %w", result.ID, err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing run %s: %w", result.ID, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, result.ID+".json")); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing run %s: %w", result.ID, err)
	}
	return nil
}

// Load reads the run stored under runID.
func (s *DiskStore) Load(runID string) (*RunResult, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	dir, err := s.Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, runID+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", runID, err)
	}
	var result RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", runID, err)
	}
	return &result, nil
}

// Close removes the temp directory and every run in it. Explicit
// directories are kept.
func (s *DiskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.owned {
		return nil
	}
	err := os.RemoveAll(s.dir)
	s.dir, s.owned = "", false
	return err
}

func checkRunID(id string) error {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return fmt.Errorf("invalid run id %q", id)
	}
	return nil
}
