package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/guidebuilder/internal/logfields"
)

// Manager handles a single staging directory.
type Manager struct {
	baseDir string
	tempDir string
}

// NewManager creates a workspace manager that stages inside baseDir.
// An empty baseDir falls back to the system temp directory.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// NewManagerFor creates a manager staging next to the given output path.
func NewManagerFor(output string) *Manager {
	return NewManager(filepath.Dir(filepath.Clean(output)))
}

// Create creates the staging directory (and baseDir when missing).
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace base directory: %w", err)
	}
	tempDir, err := os.MkdirTemp(m.baseDir, ".guidebuilder-staging-")
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	m.tempDir = tempDir
	slog.Debug("Created workspace", logfields.Path(tempDir))
	return nil
}

// GetPath returns the path to the workspace directory
func (m *Manager) GetPath() string {
	return m.tempDir
}

// Commit replaces dest with the staging directory. Any existing dest is
// removed first. After Commit the manager no longer owns a directory.
func (m *Manager) Commit(dest string) error {
	if m.tempDir == "" {
		return fmt.Errorf("workspace not created")
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to remove previous output: %w", err)
	}
	if err := os.Rename(m.tempDir, dest); err != nil {
		return fmt.Errorf("failed to publish workspace: %w", err)
	}
	slog.Debug("Published workspace", logfields.Path(dest))
	m.tempDir = ""
	return nil
}

// Cleanup removes the staging directory if it was not committed.
func (m *Manager) Cleanup() error {
	if m.tempDir == "" {
		return nil
	}
	if err := os.RemoveAll(m.tempDir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	slog.Debug("Cleaned up workspace", logfields.Path(m.tempDir))
	m.tempDir = ""
	return nil
}
