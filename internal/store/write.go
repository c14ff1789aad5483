package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"pillar/internal/entity"
)

// CreateProject writes a new project. When p.ID is empty an identifier is
// derived from the name and suffixed past collisions; a supplied ID is
// validated and must be free, otherwise ErrExists.
func (s *Store) CreateProject(p *entity.Project) error {
	if p.ID == "" {
		taken, err := s.takenProjectIDs()
		if err != nil {
			return err
		}

		id, err := DeriveProjectID(p.Name, taken)
		if err != nil {
			return err
		}

		p.ID = id
	} else {
		if err := ValidateProjectID(p.ID); err != nil {
			return err
		}

		if _, err := os.Stat(s.ProjectDir(p.ID)); err == nil {
			return fmt.Errorf("project %s: %w", p.ID, ErrExists)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", s.ProjectDir(p.ID), err)
		}
	}

	stampNew(&p.Created, &p.Updated)

	data, err := entity.EncodeProject(p)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.ProjectDir(p.ID), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.ProjectDir(p.ID), err)
	}

	return writeNew(s.ProjectPath(p.ID), data)
}

// ResolveProject maps a possibly lowercased identifier to the stored one.
func (s *Store) ResolveProject(id string) (string, error) {
	for _, candidate := range []string{id, strings.ToUpper(id)} {
		info, err := os.Stat(s.ProjectDir(candidate))
		if err == nil && info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("project %s: %w", id, ErrNotFound)
}

// GetProject reads and decodes one project. Warnings report recovered
// comment-section damage.
func (s *Store) GetProject(id string) (*entity.Project, []string, error) {
	path := s.ProjectPath(id)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}

		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	project, warnings, err := entity.DecodeProject(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	project.ID = id

	return project, prefix(path, warnings), nil
}

// UpdateProject rewrites a project after applying mutate, refreshing the
// updated timestamp. The whole file is replaced in one rename.
func (s *Store) UpdateProject(id string, mutate func(*entity.Project) error) (*entity.Project, []string, error) {
	project, warnings, err := s.GetProject(id)
	if err != nil {
		return nil, nil, err
	}

	if err := mutate(project); err != nil {
		return nil, warnings, err
	}

	project.Updated = now()

	data, err := entity.EncodeProject(project)
	if err != nil {
		return nil, warnings, err
	}

	if err := overwrite(s.ProjectPath(id), data); err != nil {
		return nil, warnings, err
	}

	return project, warnings, nil
}

// CreateMilestone writes a new milestone under its project.
func (s *Store) CreateMilestone(m *entity.Milestone) error {
	if _, err := os.Stat(s.ProjectPath(m.Project)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("project %s: %w", m.Project, ErrNotFound)
		}

		return fmt.Errorf("stat project %s: %w", m.Project, err)
	}

	stampNew(&m.Created, &m.Updated)

	data, err := entity.EncodeMilestone(m)
	if err != nil {
		return err
	}

	dir := s.MilestonesDir(m.Project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	return writeNew(filepath.Join(dir, Slug(m.Title, 0)+".md"), data)
}

// GetMilestone finds a milestone by title (case-insensitive) within a
// project. Returns the path it was loaded from.
func (s *Store) GetMilestone(project, title string) (*entity.Milestone, string, []string, error) {
	milestones, paths, warnings, _, err := s.loadMilestones(project)
	if err != nil {
		return nil, "", nil, err
	}

	for idx, milestone := range milestones {
		if strings.EqualFold(milestone.Title, title) {
			return milestone, paths[idx], warnings, nil
		}
	}

	return nil, "", warnings, fmt.Errorf("milestone %q in %s: %w", title, project, ErrNotFound)
}

// UpdateMilestone rewrites a milestone after applying mutate. The file keeps
// its original name even when the title changes. A retitle that would collide
// with another milestone of the same project fails with ErrExists, since the
// title is the milestone's identity for lookups and issue references.
func (s *Store) UpdateMilestone(project, title string, mutate func(*entity.Milestone) error) (*entity.Milestone, []string, error) {
	milestone, path, warnings, err := s.GetMilestone(project, title)
	if err != nil {
		return nil, warnings, err
	}

	before := milestone.Title

	if err := mutate(milestone); err != nil {
		return nil, warnings, err
	}

	if !strings.EqualFold(milestone.Title, before) {
		if err := s.checkMilestoneTitleFree(project, milestone.Title, path); err != nil {
			return nil, warnings, err
		}
	}

	milestone.Updated = now()

	data, err := entity.EncodeMilestone(milestone)
	if err != nil {
		return nil, warnings, err
	}

	if err := overwrite(path, data); err != nil {
		return nil, warnings, err
	}

	return milestone, warnings, nil
}

// checkMilestoneTitleFree fails with ErrExists when any milestone of the
// project other than the one at keep already carries title (case-insensitive,
// like GetMilestone).
func (s *Store) checkMilestoneTitleFree(project, title, keep string) error {
	milestones, paths, _, _, err := s.loadMilestones(project)
	if err != nil {
		return err
	}

	for idx, other := range milestones {
		if paths[idx] != keep && strings.EqualFold(other.Title, title) {
			return fmt.Errorf("milestone %q in %s: %w", title, project, ErrExists)
		}
	}

	return nil
}

// CreateIssue writes a new issue. A zero Number is allocated by scanning the
// project's issues directory for the highest existing one.
func (s *Store) CreateIssue(i *entity.Issue) error {
	if _, err := os.Stat(s.ProjectPath(i.Project)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("project %s: %w", i.Project, ErrNotFound)
		}

		return fmt.Errorf("stat project %s: %w", i.Project, err)
	}

	if i.Number == 0 {
		number, err := s.NextIssueNumber(i.Project)
		if err != nil {
			return err
		}

		i.Number = number
	}

	stampNew(&i.Created, &i.Updated)

	data, err := entity.EncodeIssue(i)
	if err != nil {
		return err
	}

	dir := s.IssuesDir(i.Project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	return writeNew(filepath.Join(dir, IssueFileName(i.Number, i.Title)), data)
}

// GetIssue finds an issue by number within a project.
func (s *Store) GetIssue(project string, number int) (*entity.Issue, string, []string, error) {
	path, err := s.issuePath(project, number)
	if err != nil {
		return nil, "", nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("read %s: %w", path, err)
	}

	issue, warnings, err := entity.DecodeIssue(raw)
	if err != nil {
		return nil, "", nil, fmt.Errorf("%s: %w", path, err)
	}

	issue.Number = number
	issue.Project = project

	return issue, path, prefix(path, warnings), nil
}

// UpdateIssue rewrites an issue after applying mutate. The file keeps its
// number and slug even when the title changes.
func (s *Store) UpdateIssue(project string, number int, mutate func(*entity.Issue) error) (*entity.Issue, []string, error) {
	issue, path, warnings, err := s.GetIssue(project, number)
	if err != nil {
		return nil, warnings, err
	}

	if err := mutate(issue); err != nil {
		return nil, warnings, err
	}

	issue.Updated = now()

	data, err := entity.EncodeIssue(issue)
	if err != nil {
		return nil, warnings, err
	}

	if err := overwrite(path, data); err != nil {
		return nil, warnings, err
	}

	return issue, warnings, nil
}

func (s *Store) issuePath(project string, number int) (string, error) {
	dir := s.IssuesDir(project)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("issue #%d in %s: %w", number, project, ErrNotFound)
		}

		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		if got, ok := ParseIssueNumber(entry.Name()); ok && got == number {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("issue #%d in %s: %w", number, project, ErrNotFound)
}

// writeNew creates path atomically, failing with ErrExists when it is
// already present. The exists check and the rename are not one atomic step;
// a racing create can still win the rename, which the lockless design
// accepts.
func writeNew(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrExists)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// overwrite atomically replaces an existing file, failing with ErrNotFound
// when it is missing.
func overwrite(path string, data []byte) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}

		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func stampNew(created, updated *time.Time) {
	if created.IsZero() {
		*created = now()
	}

	if updated.IsZero() {
		*updated = *created
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func prefix(path string, warnings []string) []string {
	if len(warnings) == 0 {
		return nil
	}

	out := make([]string, len(warnings))
	for idx, warning := range warnings {
		out[idx] = path + ": " + warning
	}

	return out
}
