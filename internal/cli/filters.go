package cli

import (
	"fmt"
	"strings"

	"pillar/internal/entity"
	"pillar/internal/query"
)

// buildCriteria assembles a query filter from flag values. status and
// priority accept comma-separated alternatives ("todo,in-progress").
func buildCriteria(project, status, priority, milestone string, tags []string, text string) (query.Criteria, error) {
	criteria := query.Criteria{
		Project:   project,
		Milestone: milestone,
		Tags:      tags,
		Text:      text,
	}

	for _, raw := range splitList(status) {
		parsed, err := entity.ParseStatus(raw)
		if err != nil {
			return query.Criteria{}, err
		}

		criteria.Statuses = append(criteria.Statuses, parsed)
	}

	for _, raw := range splitList(priority) {
		parsed, err := entity.ParsePriority(raw)
		if err != nil {
			return query.Criteria{}, err
		}

		criteria.Priorities = append(criteria.Priorities, parsed)
	}

	return criteria, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := parts[:0]

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

func parseSortKey(raw string) (query.SortKey, error) {
	switch strings.ToLower(raw) {
	case "", "number":
		return query.SortByNumber, nil
	case "priority":
		return query.SortByPriority, nil
	case "status":
		return query.SortByStatus, nil
	case "name", "title":
		return query.SortByLabel, nil
	default:
		return 0, fmt.Errorf("unknown sort key %q (use number, priority, status, or title)", raw)
	}
}
