// Package entity defines the tracked record types (projects, milestones,
// issues, comments) and their markdown file representation.
package entity

import (
	"fmt"
	"time"

	"pillar/internal/frontmatter"
)

// Status is the lifecycle state shared by projects, milestones, and issues.
type Status string

// Status values, ordered by workflow weight.
const (
	StatusCancelled  Status = "cancelled"
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// AllStatuses lists every status in weight order.
var AllStatuses = []Status{
	StatusCancelled,
	StatusBacklog,
	StatusTodo,
	StatusInProgress,
	StatusCompleted,
}

// ParseStatus resolves s (case-insensitive, aliases accepted) to a Status.
func ParseStatus(s string) (Status, error) {
	switch normalize(s) {
	case "backlog":
		return StatusBacklog, nil
	case "todo":
		return StatusTodo, nil
	case "in-progress", "inprogress":
		return StatusInProgress, nil
	case "completed", "done":
		return StatusCompleted, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return "", &ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", s)}
	}
}

// Weight orders statuses for sorting and board columns. Higher means further
// along the workflow; cancelled sorts below everything.
func (s Status) Weight() int {
	switch s {
	case StatusCancelled:
		return 0
	case StatusBacklog:
		return 1
	case StatusTodo:
		return 2
	case StatusInProgress:
		return 3
	case StatusCompleted:
		return 4
	default:
		return -1
	}
}

// Active reports whether the status represents ongoing work.
func (s Status) Active() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusBacklog
}

// Priority is the urgency level on projects and issues.
type Priority string

// Priority values, ordered by weight.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// AllPriorities lists every priority in weight order.
var AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// ParsePriority resolves s (case-insensitive) to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch normalize(s) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	default:
		return "", &ValidationError{Field: "priority", Msg: fmt.Sprintf("unknown priority %q", s)}
	}
}

// Weight orders priorities for sorting. Higher means more urgent.
func (p Priority) Weight() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 0
	}
}

// ValidationError reports a rejected field value or a missing required field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// Comment is one entry in an entity's trailing "## Comments" section.
//
// ID is generated fresh on every read or append; the durable identity of a
// comment is its "### [timestamp] - author" marker line in the file.
type Comment struct {
	ID        string
	Author    string
	Timestamp time.Time
	Content   string
}

// Project is the top-level entity, stored as <base>/<ID>/README.md.
type Project struct {
	ID          string
	Name        string
	Status      Status
	Priority    Priority
	Created     time.Time
	Updated     time.Time
	Description string
	Comments    []Comment

	// Extra holds header keys the codec does not recognize. They are
	// written back verbatim so hand-added fields survive updates.
	Extra frontmatter.Frontmatter
}

// Milestone is stored as <base>/<project>/milestones/<slug>.md.
type Milestone struct {
	Title       string
	Status      Status
	TargetDate  time.Time // zero when no target date is set
	Project     string
	Created     time.Time
	Updated     time.Time
	Description string
	Comments    []Comment
	Extra       frontmatter.Frontmatter
}

// Issue is stored as <base>/<project>/issues/<NNN-slug>.md. Number comes from
// the filename, never from the header.
type Issue struct {
	Number      int
	Title       string
	Status      Status
	Priority    Priority
	Project     string
	Milestone   string // milestone title; may dangle if the milestone file was removed
	Tags        []string
	Created     time.Time
	Updated     time.Time
	Description string
	Comments    []Comment
	Extra       frontmatter.Frontmatter
}

func normalize(s string) string {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}

		out = append(out, c)
	}

	return string(out)
}
