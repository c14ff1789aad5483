package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pillar/internal/entity"
)

// Problem attributes a decode failure to the file it came from. LoadAll
// collects problems instead of aborting so one corrupt file cannot hide the
// rest of the workspace.
type Problem struct {
	Path string
	Err  error
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %v", p.Path, p.Err)
}

// Snapshot is the result of one full workspace load.
type Snapshot struct {
	Projects   []*entity.Project
	Milestones []*entity.Milestone
	Issues     []*entity.Issue
	Problems   []Problem
	Warnings   []string
}

// LoadAll walks the base directory and decodes every entity file. Directory
// order (and therefore output order) is lexicographic by project id, then by
// filename within a project.
func (s *Store) LoadAll() (*Snapshot, error) {
	entries, err := os.ReadDir(s.Base)
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{}, nil
		}

		return nil, fmt.Errorf("read base directory: %w", err)
	}

	snap := &Snapshot{}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		id := entry.Name()

		raw, err := os.ReadFile(s.ProjectPath(id))
		if err != nil {
			if os.IsNotExist(err) {
				continue // unrelated directory, not a project
			}

			snap.Problems = append(snap.Problems, Problem{Path: s.ProjectPath(id), Err: err})

			continue
		}

		project, warnings, err := entity.DecodeProject(raw)
		if err != nil {
			snap.Problems = append(snap.Problems, Problem{Path: s.ProjectPath(id), Err: err})
		} else {
			project.ID = id
			snap.Projects = append(snap.Projects, project)
			snap.Warnings = append(snap.Warnings, prefix(s.ProjectPath(id), warnings)...)
		}

		milestones, _, warnings, problems, err := s.loadMilestones(id)
		if err != nil {
			return nil, err
		}

		snap.Milestones = append(snap.Milestones, milestones...)
		snap.Warnings = append(snap.Warnings, warnings...)
		snap.Problems = append(snap.Problems, problems...)

		issues, warnings, problems, err := s.loadIssues(id)
		if err != nil {
			return nil, err
		}

		snap.Issues = append(snap.Issues, issues...)
		snap.Warnings = append(snap.Warnings, warnings...)
		snap.Problems = append(snap.Problems, problems...)
	}

	return snap, nil
}

// loadMilestones decodes every milestone file of one project. The returned
// paths slice is parallel to the milestones slice. The error is only set for
// directory-level failures; per-file damage lands in problems.
func (s *Store) loadMilestones(project string) ([]*entity.Milestone, []string, []string, []Problem, error) {
	dir := s.MilestonesDir(project)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, nil, nil
		}

		return nil, nil, nil, nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var (
		milestones []*entity.Milestone
		paths      []string
		warnings   []string
		problems   []Problem
	)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		raw, err := os.ReadFile(path)
		if err != nil {
			problems = append(problems, Problem{Path: path, Err: err})

			continue
		}

		milestone, fileWarnings, err := entity.DecodeMilestone(raw)
		if err != nil {
			problems = append(problems, Problem{Path: path, Err: err})

			continue
		}

		milestone.Project = project
		milestones = append(milestones, milestone)
		paths = append(paths, path)
		warnings = append(warnings, prefix(path, fileWarnings)...)
	}

	return milestones, paths, warnings, problems, nil
}

func (s *Store) loadIssues(project string) ([]*entity.Issue, []string, []Problem, error) {
	dir := s.IssuesDir(project)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, nil
		}

		return nil, nil, nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var (
		issues   []*entity.Issue
		warnings []string
		problems []Problem
	)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		number, ok := ParseIssueNumber(entry.Name())
		if !ok {
			problems = append(problems, Problem{Path: path, Err: errors.New("filename missing NNN- number prefix")})

			continue
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			problems = append(problems, Problem{Path: path, Err: err})

			continue
		}

		issue, fileWarnings, err := entity.DecodeIssue(raw)
		if err != nil {
			problems = append(problems, Problem{Path: path, Err: err})

			continue
		}

		issue.Number = number
		issue.Project = project
		issues = append(issues, issue)
		warnings = append(warnings, prefix(path, fileWarnings)...)
	}

	return issues, warnings, problems, nil
}
