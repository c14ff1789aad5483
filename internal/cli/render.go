package cli

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"pillar/internal/entity"
	"pillar/internal/store"
)

// surface turns snapshot-level problems and recovered warnings into IO
// warnings, so listings print partial results with exit code 1.
func surface(o *IO, snap *store.Snapshot) {
	for _, problem := range snap.Problems {
		o.Warn(problem.String())
	}

	for _, warning := range snap.Warnings {
		o.Warn(warning)
	}
}

func pad(text string, width int) string {
	if n := utf8.RuneCountInString(text); n < width {
		return text + strings.Repeat(" ", width-n)
	}

	return text
}

// truncate cuts on runes, not bytes, so multi-byte titles never end in a
// mangled sequence.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	return string(runes[:max-3]) + "..."
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format(time.DateOnly)
}

func fmtStamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.UTC().Format("2006-01-02 15:04")
}

func renderIssueRows(a *App, o *IO, issues []*entity.Issue) {
	o.Println(a.styles.Header(fmt.Sprintf("%-6s %-42s %-13s %-8s %-16s %s",
		"#", "TITLE", "STATUS", "PRIORITY", "MILESTONE", "TAGS")))

	for _, issue := range issues {
		milestone := issue.Milestone
		if milestone == "" {
			milestone = "-"
		}

		tags := "-"
		if len(issue.Tags) > 0 {
			tags = strings.Join(issue.Tags, ",")
		}

		o.Printf("%-6s %-42s %s %s %-16s %s\n",
			fmt.Sprintf("%03d", issue.Number),
			truncate(issue.Title, 42),
			a.styles.Status(pad(string(issue.Status), 13), issue.Status),
			a.styles.Priority(pad(string(issue.Priority), 8), issue.Priority),
			truncate(milestone, 16),
			tags)
	}
}

func renderComments(a *App, o *IO, comments []entity.Comment) {
	if len(comments) == 0 {
		return
	}

	o.Println()
	o.Println(a.styles.Header("Comments:"))

	for _, comment := range comments {
		o.Printf("  %s %s\n", a.styles.Dim("["+fmtStamp(comment.Timestamp)+"]"), comment.Author)

		for _, line := range strings.Split(comment.Content, "\n") {
			o.Println("   ", line)
		}
	}
}

func renderDescription(o *IO, desc string) {
	if desc == "" {
		return
	}

	o.Println()
	o.Println(desc)
}
