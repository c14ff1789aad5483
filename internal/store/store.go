// Package store persists entities as markdown files under a workspace
// directory. A workspace is any directory tree containing a ".pillar" marker
// directory at its root; entity files live under the configured base
// directory as:
//
//	<base>/<ProjectID>/README.md
//	<base>/<ProjectID>/milestones/<slug>.md
//	<base>/<ProjectID>/issues/<NNN-slug>.md
//
// There is no locking and no index. Every write goes through a temp file and
// rename, so readers never observe a partial file; concurrent writers to the
// same path settle by rename order.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MarkerDir is the directory that marks a workspace root.
const MarkerDir = ".pillar"

const configName = "config.json"

// Sentinel errors for the store's failure modes.
var (
	ErrNoWorkspace        = errors.New("no workspace found (run 'pillar init' first)")
	ErrAlreadyInitialized = errors.New("workspace already initialized")
	ErrNotFound           = errors.New("not found")
	ErrExists             = errors.New("already exists")
)

// Store is a handle to one workspace.
type Store struct {
	Root   string // directory containing the .pillar marker
	Base   string // absolute path entities live under
	Config Config
}

// FindRoot walks up from start looking for a .pillar marker directory.
// Returns ErrNoWorkspace when the filesystem root is reached without one.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}

	for {
		info, err := os.Stat(filepath.Join(dir, MarkerDir))
		if err == nil && info.IsDir() {
			return dir, nil
		}

		if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("stat %s: %w", filepath.Join(dir, MarkerDir), err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspace
		}

		dir = parent
	}
}

// Open resolves the workspace containing start, loads its config, and ensures
// the base directory exists.
func Open(start string) (*Store, error) {
	root, err := FindRoot(start)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(filepath.Join(root, MarkerDir, configName))
	if err != nil {
		return nil, err
	}

	base := filepath.Join(root, cfg.Workspace.BaseDirectory)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory %s: %w", base, err)
	}

	return &Store{Root: root, Base: base, Config: cfg}, nil
}

// Init creates a workspace at dir with the given base directory (relative to
// dir; "" means "."). It refuses to re-initialize an existing workspace and
// rejects a base directory that points into the marker directory itself.
func Init(dir, base string) (*Store, error) {
	if base == "" {
		base = "."
	}

	if filepath.IsAbs(base) {
		return nil, errors.New("base directory must be relative to the workspace root")
	}

	cleaned := filepath.Clean(base)
	if cleaned == MarkerDir || strings.HasPrefix(cleaned, MarkerDir+string(filepath.Separator)) {
		return nil, fmt.Errorf("base directory cannot be inside %s", MarkerDir)
	}

	marker := filepath.Join(dir, MarkerDir)

	if _, err := os.Stat(marker); err == nil {
		return nil, ErrAlreadyInitialized
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", marker, err)
	}

	if err := os.MkdirAll(marker, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", marker, err)
	}

	if err := WriteConfig(filepath.Join(marker, configName), DefaultConfig(cleaned)); err != nil {
		return nil, err
	}

	return Open(dir)
}

// ProjectDir returns the directory holding a project's files.
func (s *Store) ProjectDir(id string) string {
	return filepath.Join(s.Base, id)
}

// ProjectPath returns the path of a project's README.md.
func (s *Store) ProjectPath(id string) string {
	return filepath.Join(s.Base, id, "README.md")
}

// MilestonesDir returns a project's milestones directory.
func (s *Store) MilestonesDir(project string) string {
	return filepath.Join(s.Base, project, "milestones")
}

// IssuesDir returns a project's issues directory.
func (s *Store) IssuesDir(project string) string {
	return filepath.Join(s.Base, project, "issues")
}
