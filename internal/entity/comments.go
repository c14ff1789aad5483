package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// commentsHeading starts the trailing comments section of a body. Everything
// after this line belongs to the section.
const commentsHeading = "## Comments"

// NewComment builds a comment stamped with the current UTC time, truncated to
// whole seconds so the marker line round-trips exactly.
func NewComment(author, content string) Comment {
	return Comment{
		ID:        uuid.NewString(),
		Author:    author,
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Content:   strings.TrimSpace(content),
	}
}

// parseBody splits a file body into the free-form description and the parsed
// trailing comments section. A comment block whose marker line cannot be
// parsed is skipped and reported as a warning; the rest of the section still
// loads.
func parseBody(body []byte) (string, []Comment, []string) {
	lines := strings.Split(string(body), "\n")

	idx := 0
	for ; idx < len(lines); idx++ {
		if strings.TrimRight(lines[idx], " \t") == commentsHeading {
			break
		}
	}

	desc := strings.TrimRight(strings.Join(lines[:idx], "\n"), "\n")
	if idx >= len(lines) {
		return desc, nil, nil
	}

	idx++

	var (
		comments []Comment
		warnings []string
	)

	for idx < len(lines) {
		line := lines[idx]
		if !strings.HasPrefix(line, "### ") {
			idx++

			continue
		}

		marker := strings.TrimSpace(strings.TrimPrefix(line, "### "))
		idx++

		var content []string

		for idx < len(lines) && !strings.HasPrefix(lines[idx], "### ") {
			content = append(content, lines[idx])
			idx++
		}

		comment, err := parseMarker(marker)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping malformed comment %q: %v", marker, err))

			continue
		}

		comment.ID = uuid.NewString()
		comment.Content = strings.TrimSpace(strings.Join(content, "\n"))
		comments = append(comments, comment)
	}

	return desc, comments, warnings
}

// parseMarker reads a "[timestamp] - author" marker. A missing author part
// falls back to "Unknown"; a missing or unparsable timestamp is an error.
func parseMarker(marker string) (Comment, error) {
	if !strings.HasPrefix(marker, "[") {
		return Comment{}, fmt.Errorf("missing timestamp bracket")
	}

	end := strings.IndexByte(marker, ']')
	if end < 0 {
		return Comment{}, fmt.Errorf("unterminated timestamp bracket")
	}

	stamp, err := time.Parse(time.RFC3339, marker[1:end])
	if err != nil {
		return Comment{}, fmt.Errorf("bad timestamp %q", marker[1:end])
	}

	author := "Unknown"

	rest := marker[end+1:]
	if after, ok := strings.CutPrefix(rest, " - "); ok {
		if trimmed := strings.TrimSpace(after); trimmed != "" {
			author = trimmed
		}
	}

	return Comment{Author: author, Timestamp: stamp.UTC()}, nil
}

// renderBody writes the description followed by the comments section. The
// output always ends in exactly one newline unless both parts are empty.
func renderBody(desc string, comments []Comment) string {
	desc = strings.TrimRight(desc, "\n")

	var builder strings.Builder

	if desc != "" {
		builder.WriteString(desc)
		builder.WriteString("\n")
	}

	if len(comments) == 0 {
		return builder.String()
	}

	if desc != "" {
		builder.WriteString("\n")
	}

	builder.WriteString(commentsHeading)
	builder.WriteString("\n")

	for _, comment := range comments {
		builder.WriteString("\n### [")
		builder.WriteString(comment.Timestamp.UTC().Format(time.RFC3339))
		builder.WriteString("] - ")
		builder.WriteString(comment.Author)
		builder.WriteString("\n")

		if content := strings.TrimSpace(comment.Content); content != "" {
			builder.WriteString(content)
			builder.WriteString("\n")
		}
	}

	return builder.String()
}
