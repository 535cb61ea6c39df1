// Package fixture writes throwaway source files into a project's scratch
// directory and removes them again. Every file a Manager writes is
// tracked until it is removed, so Cleanup leaves no residue even when a
// scenario failed or panicked part-way.
package fixture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager owns the fixtures written under Root/Dir. Safe for concurrent use.
type Manager struct {
	Root   string // project root
	Dir    string // scratch directory relative to Root
	Logger zerolog.Logger

	mu         sync.Mutex
	live       map[string]struct{} // root-relative slash paths
	createdDir bool
}

// New returns a Manager writing under root/dir.
func New(root, dir string) *Manager {
	return &Manager{Root: root, Dir: dir, Logger: zerolog.Nop()}
}

// UniqueName returns "<slug>-<8 hex><ext>" so concurrent scenarios never
// share a fixture path.
func UniqueName(slug, ext string) string {
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, slug)
	return fmt.Sprintf("%s-%s%s", strings.Trim(slug, "-"), uuid.NewString()[:8], ext)
}

// Write creates name inside the scratch directory with contents and
// returns its path relative to Root, using forward slashes.
func (m *Manager) Write(name, contents string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("fixture name %q must be a bare file name", name)
	}

	dir := filepath.Join(m.Root, filepath.FromSlash(m.Dir))
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating scratch dir: %w", err)
		}
		m.createdDir = true
	}

	rel := filepath.ToSlash(filepath.Join(m.Dir, name))
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		return "", fmt.Errorf("writing fixture %s: %w", rel, err)
	}
	if m.live == nil {
		m.live = make(map[string]struct{})
	}
	m.live[rel] = struct{}{}
	m.Logger.Debug().Str("fixture", rel).Msg("write")
	return rel, nil
}

// Remove deletes one fixture. Absence is not an error.
func (m *Manager) Remove(rel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(rel)
}

func (m *Manager) remove(rel string) error {
	delete(m.live, rel)
	err := os.Remove(filepath.Join(m.Root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing fixture %s: %w", rel, err)
	}
	return nil
}

// Cleanup removes every live fixture, then the scratch directory if this
// Manager created it and it is empty. Errors are logged, never returned.
// Calling Cleanup more than once is harmless.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for rel := range m.live {
		if err := m.remove(rel); err != nil {
			m.Logger.Debug().Err(err).Msg("cleanup")
		}
	}
	if m.createdDir {
		// os.Remove refuses non-empty directories, which is what we want.
		if err := os.Remove(filepath.Join(m.Root, filepath.FromSlash(m.Dir))); err == nil {
			m.createdDir = false
		}
	}
}

// With writes a fixture, calls fn with its root-relative path and removes
// the fixture when fn returns or panics.
func (m *Manager) With(name, contents string, fn func(rel string)) error {
	rel, err := m.Write(name, contents)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Remove(rel); err != nil {
			m.Logger.Debug().Err(err).Msg("cleanup")
		}
	}()
	fn(rel)
	return nil
}

// Residue returns the fixtures still present on disk, sorted.
func (m *Manager) Residue() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for rel := range m.live {
		if _, err := os.Stat(filepath.Join(m.Root, filepath.FromSlash(rel))); err == nil {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out
}
