package server

import (
	"time"

	"pillar/internal/entity"
	"pillar/internal/store"
)

// Payload is the wire shape of a full workspace dump, shared by the HTTP API
// and the export command.
type Payload struct {
	Projects   []ProjectDTO   `json:"projects" yaml:"projects"`
	Milestones []MilestoneDTO `json:"milestones" yaml:"milestones"`
	Issues     []IssueDTO     `json:"issues" yaml:"issues"`
}

// CommentDTO mirrors entity.Comment for serialization.
type CommentDTO struct {
	ID        string `json:"id" yaml:"id"`
	Author    string `json:"author" yaml:"author"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Content   string `json:"content" yaml:"content"`
}

// ProjectDTO mirrors entity.Project for serialization.
type ProjectDTO struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Status      string         `json:"status" yaml:"status"`
	Priority    string         `json:"priority" yaml:"priority"`
	Created     string         `json:"created,omitempty" yaml:"created,omitempty"`
	Updated     string         `json:"updated,omitempty" yaml:"updated,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Comments    []CommentDTO   `json:"comments,omitempty" yaml:"comments,omitempty"`
	Extra       map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// MilestoneDTO mirrors entity.Milestone for serialization.
type MilestoneDTO struct {
	Title       string         `json:"title" yaml:"title"`
	Status      string         `json:"status" yaml:"status"`
	TargetDate  string         `json:"target_date,omitempty" yaml:"target_date,omitempty"`
	Project     string         `json:"project" yaml:"project"`
	Created     string         `json:"created,omitempty" yaml:"created,omitempty"`
	Updated     string         `json:"updated,omitempty" yaml:"updated,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Comments    []CommentDTO   `json:"comments,omitempty" yaml:"comments,omitempty"`
	Extra       map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// IssueDTO mirrors entity.Issue for serialization.
type IssueDTO struct {
	Number      int            `json:"number" yaml:"number"`
	Title       string         `json:"title" yaml:"title"`
	Status      string         `json:"status" yaml:"status"`
	Priority    string         `json:"priority" yaml:"priority"`
	Project     string         `json:"project" yaml:"project"`
	Milestone   string         `json:"milestone,omitempty" yaml:"milestone,omitempty"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Created     string         `json:"created,omitempty" yaml:"created,omitempty"`
	Updated     string         `json:"updated,omitempty" yaml:"updated,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Comments    []CommentDTO   `json:"comments,omitempty" yaml:"comments,omitempty"`
	Extra       map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// BuildPayload converts a snapshot to its wire shape. Slices are always
// non-nil so empty workspaces serialize as [] rather than null.
func BuildPayload(snap *store.Snapshot) Payload {
	payload := Payload{
		Projects:   make([]ProjectDTO, 0, len(snap.Projects)),
		Milestones: make([]MilestoneDTO, 0, len(snap.Milestones)),
		Issues:     make([]IssueDTO, 0, len(snap.Issues)),
	}

	for _, project := range snap.Projects {
		payload.Projects = append(payload.Projects, FromProject(project))
	}

	for _, milestone := range snap.Milestones {
		payload.Milestones = append(payload.Milestones, FromMilestone(milestone))
	}

	for _, issue := range snap.Issues {
		payload.Issues = append(payload.Issues, FromIssue(issue))
	}

	return payload
}

// FromProject converts one project.
func FromProject(p *entity.Project) ProjectDTO {
	return ProjectDTO{
		ID:          p.ID,
		Name:        p.Name,
		Status:      string(p.Status),
		Priority:    string(p.Priority),
		Created:     stampString(p.Created),
		Updated:     stampString(p.Updated),
		Description: p.Description,
		Comments:    fromComments(p.Comments),
		Extra:       p.Extra.Plain(),
	}
}

// FromMilestone converts one milestone.
func FromMilestone(m *entity.Milestone) MilestoneDTO {
	target := ""
	if !m.TargetDate.IsZero() {
		target = m.TargetDate.Format(time.DateOnly)
	}

	return MilestoneDTO{
		Title:       m.Title,
		Status:      string(m.Status),
		TargetDate:  target,
		Project:     m.Project,
		Created:     stampString(m.Created),
		Updated:     stampString(m.Updated),
		Description: m.Description,
		Comments:    fromComments(m.Comments),
		Extra:       m.Extra.Plain(),
	}
}

// FromIssue converts one issue.
func FromIssue(i *entity.Issue) IssueDTO {
	return IssueDTO{
		Number:      i.Number,
		Title:       i.Title,
		Status:      string(i.Status),
		Priority:    string(i.Priority),
		Project:     i.Project,
		Milestone:   i.Milestone,
		Tags:        i.Tags,
		Created:     stampString(i.Created),
		Updated:     stampString(i.Updated),
		Description: i.Description,
		Comments:    fromComments(i.Comments),
		Extra:       i.Extra.Plain(),
	}
}

func fromComments(comments []entity.Comment) []CommentDTO {
	if len(comments) == 0 {
		return nil
	}

	out := make([]CommentDTO, 0, len(comments))

	for _, comment := range comments {
		out = append(out, CommentDTO{
			ID:        comment.ID,
			Author:    comment.Author,
			Timestamp: stampString(comment.Timestamp),
			Content:   comment.Content,
		})
	}

	return out
}

func stampString(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}
