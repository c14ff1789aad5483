// Package query filters, sorts, and groups loaded entities. Everything here
// is pure: inputs are never mutated and results are freshly allocated, so the
// same snapshot can serve several views in one invocation.
package query

import (
	"slices"
	"strings"

	"pillar/internal/entity"
)

// Fields is the flattened view of an entity that criteria match against.
// Adapter functions (ProjectFields, MilestoneFields, IssueFields) project
// each concrete type onto it.
type Fields struct {
	Label     string // name or title, also searched text
	Text      string // additional searched text (description)
	Project   string
	Milestone string
	Status    entity.Status
	Priority  entity.Priority
	Tags      []string
	Number    int
}

// ProjectFields adapts a project for matching.
func ProjectFields(p *entity.Project) Fields {
	return Fields{
		Label:    p.Name,
		Text:     p.Description,
		Project:  p.ID,
		Status:   p.Status,
		Priority: p.Priority,
	}
}

// MilestoneFields adapts a milestone for matching.
func MilestoneFields(m *entity.Milestone) Fields {
	return Fields{
		Label:   m.Title,
		Text:    m.Description,
		Project: m.Project,
		Status:  m.Status,
	}
}

// IssueFields adapts an issue for matching.
func IssueFields(i *entity.Issue) Fields {
	return Fields{
		Label:     i.Title,
		Text:      i.Description,
		Project:   i.Project,
		Milestone: i.Milestone,
		Status:    i.Status,
		Priority:  i.Priority,
		Tags:      i.Tags,
		Number:    i.Number,
	}
}

// Criteria is one filter. Zero-valued members match everything; populated
// members must all match (AND), while the values inside one member are
// alternatives (OR).
type Criteria struct {
	Project    string
	Milestone  string
	Statuses   []entity.Status
	Priorities []entity.Priority
	Tags       []string
	Text       string // case-insensitive substring over Label, Text, and Tags
}

// Empty reports whether the criteria match everything.
func (c Criteria) Empty() bool {
	return c.Project == "" && c.Milestone == "" && c.Text == "" &&
		len(c.Statuses) == 0 && len(c.Priorities) == 0 && len(c.Tags) == 0
}

// Matches applies the criteria to one flattened entity.
func (c Criteria) Matches(f Fields) bool {
	if c.Project != "" && !strings.EqualFold(c.Project, f.Project) {
		return false
	}

	if c.Milestone != "" && !strings.EqualFold(c.Milestone, f.Milestone) {
		return false
	}

	if len(c.Statuses) > 0 && !slices.Contains(c.Statuses, f.Status) {
		return false
	}

	if len(c.Priorities) > 0 && !slices.Contains(c.Priorities, f.Priority) {
		return false
	}

	if len(c.Tags) > 0 && !anyTag(c.Tags, f.Tags) {
		return false
	}

	if c.Text != "" && !matchesText(c.Text, f) {
		return false
	}

	return true
}

func anyTag(wanted, have []string) bool {
	for _, want := range wanted {
		for _, tag := range have {
			if strings.EqualFold(want, tag) {
				return true
			}
		}
	}

	return false
}

func matchesText(text string, f Fields) bool {
	needle := strings.ToLower(text)

	if strings.Contains(strings.ToLower(f.Label), needle) {
		return true
	}

	if strings.Contains(strings.ToLower(f.Text), needle) {
		return true
	}

	for _, tag := range f.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}

	return false
}

// Filter returns the items matching c, in their original order.
func Filter[T any](items []T, c Criteria, adapt func(T) Fields) []T {
	out := make([]T, 0, len(items))

	for _, item := range items {
		if c.Matches(adapt(item)) {
			out = append(out, item)
		}
	}

	return out
}

// SortKey selects the comparison used by Sort.
type SortKey int

// Sort keys. SortByNumber is the default ordering for issues.
const (
	SortByNumber   SortKey = iota // descending: newest issue first
	SortByPriority                // descending weight: urgent first
	SortByStatus                  // ascending weight: workflow order
	SortByLabel                   // lexicographic, case-insensitive
)

// Sort returns a sorted copy. The sort is stable, so equal items keep the
// load order (lexicographic by path).
func Sort[T any](items []T, key SortKey, adapt func(T) Fields) []T {
	out := slices.Clone(items)

	slices.SortStableFunc(out, func(a, b T) int {
		fa, fb := adapt(a), adapt(b)

		switch key {
		case SortByPriority:
			return fb.Priority.Weight() - fa.Priority.Weight()
		case SortByStatus:
			return fa.Status.Weight() - fb.Status.Weight()
		case SortByLabel:
			return strings.Compare(strings.ToLower(fa.Label), strings.ToLower(fb.Label))
		default:
			return fb.Number - fa.Number
		}
	})

	return out
}

// GroupKey selects the bucket label used by Group.
type GroupKey int

// Group keys.
const (
	GroupByStatus GroupKey = iota
	GroupByPriority
	GroupByProject
	GroupByMilestone
)

// NoMilestone is the reserved bucket for issues without a milestone.
const NoMilestone = "No Milestone"

// Bucket is one group of items under a shared label.
type Bucket[T any] struct {
	Label string
	Items []T
}

// Group partitions items into ordered buckets. Status and priority buckets
// come out in weight order and include empty buckets, so a board always shows
// every column; other keys order buckets lexicographically and omit empty
// ones, with the "No Milestone" bucket last.
func Group[T any](items []T, key GroupKey, adapt func(T) Fields) []Bucket[T] {
	switch key {
	case GroupByStatus:
		buckets := make([]Bucket[T], 0, len(entity.AllStatuses))

		for _, status := range entity.AllStatuses {
			bucket := Bucket[T]{Label: string(status)}

			for _, item := range items {
				if adapt(item).Status == status {
					bucket.Items = append(bucket.Items, item)
				}
			}

			buckets = append(buckets, bucket)
		}

		return buckets
	case GroupByPriority:
		buckets := make([]Bucket[T], 0, len(entity.AllPriorities))

		for _, priority := range entity.AllPriorities {
			bucket := Bucket[T]{Label: string(priority)}

			for _, item := range items {
				if adapt(item).Priority == priority {
					bucket.Items = append(bucket.Items, item)
				}
			}

			buckets = append(buckets, bucket)
		}

		return buckets
	default:
		byLabel := make(map[string][]T)

		for _, item := range items {
			label := adapt(item).Project
			if key == GroupByMilestone {
				label = adapt(item).Milestone
				if label == "" {
					label = NoMilestone
				}
			}

			byLabel[label] = append(byLabel[label], item)
		}

		labels := make([]string, 0, len(byLabel))
		for label := range byLabel {
			if label != NoMilestone {
				labels = append(labels, label)
			}
		}

		slices.Sort(labels)

		if _, ok := byLabel[NoMilestone]; ok {
			labels = append(labels, NoMilestone)
		}

		buckets := make([]Bucket[T], 0, len(labels))
		for _, label := range labels {
			buckets = append(buckets, Bucket[T]{Label: label, Items: byLabel[label]})
		}

		return buckets
	}
}
