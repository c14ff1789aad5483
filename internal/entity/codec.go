package entity

import (
	"strings"
	"time"

	"pillar/internal/frontmatter"
)

// Canonical header key order per kind. Unknown keys follow, sorted.
var (
	projectKeyOrder   = []string{"name", "status", "priority", "created", "updated"}
	milestoneKeyOrder = []string{"title", "status", "target_date", "project", "created", "updated"}
	issueKeyOrder     = []string{"title", "status", "priority", "project", "milestone", "tags", "created", "updated"}
)

// DecodeProject parses a project README. Warnings report recovered damage
// (malformed comment blocks); the returned project is still usable.
func DecodeProject(src []byte) (*Project, []string, error) {
	fm, body, err := frontmatter.Parse(src)
	if err != nil {
		return nil, nil, &ValidationError{Field: "header", Msg: err.Error()}
	}

	extra := fm.Clone()

	name, err := takeRequired(extra, "name")
	if err != nil {
		return nil, nil, err
	}

	status, err := takeStatus(extra, StatusBacklog)
	if err != nil {
		return nil, nil, err
	}

	priority, err := takePriority(extra)
	if err != nil {
		return nil, nil, err
	}

	created, err := takeTime(extra, "created")
	if err != nil {
		return nil, nil, err
	}

	updated, err := takeTime(extra, "updated")
	if err != nil {
		return nil, nil, err
	}

	desc, comments, warnings := parseBody(body)

	return &Project{
		Name:        name,
		Status:      status,
		Priority:    priority,
		Created:     created,
		Updated:     updated,
		Description: desc,
		Comments:    comments,
		Extra:       extra,
	}, warnings, nil
}

// EncodeProject renders p back to file form. Unknown keys in p.Extra are
// written after the known ones.
func EncodeProject(p *Project) ([]byte, error) {
	fm := cloneExtra(p.Extra)
	fm["name"] = frontmatter.String(p.Name)
	putStatus(fm, p.Status)
	putPriority(fm, p.Priority)
	putTime(fm, "created", p.Created)
	putTime(fm, "updated", p.Updated)

	return render(fm, projectKeyOrder, p.Description, p.Comments)
}

// DecodeMilestone parses a milestone file.
func DecodeMilestone(src []byte) (*Milestone, []string, error) {
	fm, body, err := frontmatter.Parse(src)
	if err != nil {
		return nil, nil, &ValidationError{Field: "header", Msg: err.Error()}
	}

	extra := fm.Clone()

	title, err := takeRequired(extra, "title")
	if err != nil {
		return nil, nil, err
	}

	status, err := takeStatus(extra, StatusTodo)
	if err != nil {
		return nil, nil, err
	}

	target, err := takeDate(extra, "target_date")
	if err != nil {
		return nil, nil, err
	}

	project, _ := extra.GetString("project")
	delete(extra, "project")

	created, err := takeTime(extra, "created")
	if err != nil {
		return nil, nil, err
	}

	updated, err := takeTime(extra, "updated")
	if err != nil {
		return nil, nil, err
	}

	desc, comments, warnings := parseBody(body)

	return &Milestone{
		Title:       title,
		Status:      status,
		TargetDate:  target,
		Project:     project,
		Created:     created,
		Updated:     updated,
		Description: desc,
		Comments:    comments,
		Extra:       extra,
	}, warnings, nil
}

// EncodeMilestone renders m back to file form.
func EncodeMilestone(m *Milestone) ([]byte, error) {
	fm := cloneExtra(m.Extra)
	fm["title"] = frontmatter.String(m.Title)
	putStatus(fm, m.Status)

	if !m.TargetDate.IsZero() {
		fm["target_date"] = frontmatter.String(m.TargetDate.Format(time.DateOnly))
	}

	if m.Project != "" {
		fm["project"] = frontmatter.String(m.Project)
	}

	putTime(fm, "created", m.Created)
	putTime(fm, "updated", m.Updated)

	return render(fm, milestoneKeyOrder, m.Description, m.Comments)
}

// DecodeIssue parses an issue file. The issue number lives in the filename,
// so the caller sets it after decoding.
func DecodeIssue(src []byte) (*Issue, []string, error) {
	fm, body, err := frontmatter.Parse(src)
	if err != nil {
		return nil, nil, &ValidationError{Field: "header", Msg: err.Error()}
	}

	extra := fm.Clone()

	title, err := takeRequired(extra, "title")
	if err != nil {
		return nil, nil, err
	}

	status, err := takeStatus(extra, StatusTodo)
	if err != nil {
		return nil, nil, err
	}

	priority, err := takePriority(extra)
	if err != nil {
		return nil, nil, err
	}

	project, _ := extra.GetString("project")
	delete(extra, "project")

	milestone, _ := extra.GetString("milestone")
	delete(extra, "milestone")

	var tags []string

	if v, ok := extra["tags"]; ok {
		if v.Kind != frontmatter.KindList {
			return nil, nil, &ValidationError{Field: "tags", Msg: "must be a list"}
		}

		tags = v.List

		delete(extra, "tags")
	}

	created, err := takeTime(extra, "created")
	if err != nil {
		return nil, nil, err
	}

	updated, err := takeTime(extra, "updated")
	if err != nil {
		return nil, nil, err
	}

	desc, comments, warnings := parseBody(body)

	return &Issue{
		Title:       title,
		Status:      status,
		Priority:    priority,
		Project:     project,
		Milestone:   milestone,
		Tags:        tags,
		Created:     created,
		Updated:     updated,
		Description: desc,
		Comments:    comments,
		Extra:       extra,
	}, warnings, nil
}

// EncodeIssue renders i back to file form.
func EncodeIssue(i *Issue) ([]byte, error) {
	fm := cloneExtra(i.Extra)
	fm["title"] = frontmatter.String(i.Title)
	putStatus(fm, i.Status)
	putPriority(fm, i.Priority)

	if i.Project != "" {
		fm["project"] = frontmatter.String(i.Project)
	}

	if i.Milestone != "" {
		fm["milestone"] = frontmatter.String(i.Milestone)
	}

	if i.Tags != nil {
		fm["tags"] = frontmatter.List(i.Tags)
	}

	putTime(fm, "created", i.Created)
	putTime(fm, "updated", i.Updated)

	return render(fm, issueKeyOrder, i.Description, i.Comments)
}

func render(fm frontmatter.Frontmatter, keyOrder []string, desc string, comments []Comment) ([]byte, error) {
	header, err := frontmatter.Marshal(fm, keyOrder)
	if err != nil {
		return nil, err
	}

	body := renderBody(desc, comments)
	if body == "" {
		return []byte(header), nil
	}

	return []byte(header + "\n" + body), nil
}

func cloneExtra(extra frontmatter.Frontmatter) frontmatter.Frontmatter {
	if extra == nil {
		return make(frontmatter.Frontmatter)
	}

	return extra.Clone()
}

func takeRequired(fm frontmatter.Frontmatter, key string) (string, error) {
	value, ok := fm.GetString(key)

	delete(fm, key)

	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", &ValidationError{Field: key, Msg: "required"}
	}

	return value, nil
}

func takeStatus(fm frontmatter.Frontmatter, fallback Status) (Status, error) {
	raw, ok := fm.GetString("status")

	delete(fm, "status")

	if !ok || raw == "" {
		return fallback, nil
	}

	return ParseStatus(raw)
}

func takePriority(fm frontmatter.Frontmatter) (Priority, error) {
	raw, ok := fm.GetString("priority")

	delete(fm, "priority")

	if !ok || raw == "" {
		return PriorityMedium, nil
	}

	return ParsePriority(raw)
}

func takeTime(fm frontmatter.Frontmatter, key string) (time.Time, error) {
	raw, ok := fm.GetString(key)

	delete(fm, key)

	if !ok || raw == "" {
		return time.Time{}, nil
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &ValidationError{Field: key, Msg: "not an RFC 3339 timestamp"}
	}

	return parsed.UTC(), nil
}

func takeDate(fm frontmatter.Frontmatter, key string) (time.Time, error) {
	raw, ok := fm.GetString(key)

	delete(fm, key)

	if !ok || raw == "" {
		return time.Time{}, nil
	}

	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, &ValidationError{Field: key, Msg: "not a YYYY-MM-DD date"}
	}

	return parsed, nil
}

func putStatus(fm frontmatter.Frontmatter, s Status) {
	if s != "" {
		fm["status"] = frontmatter.String(string(s))
	}
}

func putPriority(fm frontmatter.Frontmatter, p Priority) {
	if p != "" {
		fm["priority"] = frontmatter.String(string(p))
	}
}

func putTime(fm frontmatter.Frontmatter, key string, t time.Time) {
	if !t.IsZero() {
		fm[key] = frontmatter.String(t.UTC().Format(time.RFC3339))
	}
}
