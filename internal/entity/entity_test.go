package entity_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"pillar/internal/entity"
)

func Test_ParseStatus_AcceptsAliases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want entity.Status
	}{
		{in: "backlog", want: entity.StatusBacklog},
		{in: "todo", want: entity.StatusTodo},
		{in: "in-progress", want: entity.StatusInProgress},
		{in: "inprogress", want: entity.StatusInProgress},
		{in: "InProgress", want: entity.StatusInProgress},
		{in: "completed", want: entity.StatusCompleted},
		{in: "done", want: entity.StatusCompleted},
		{in: "cancelled", want: entity.StatusCancelled},
		{in: "canceled", want: entity.StatusCancelled},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			got, err := entity.ParseStatus(tc.in)
			if err != nil {
				t.Fatalf("ParseStatus(%q) error = %v", tc.in, err)
			}

			if got != tc.want {
				t.Fatalf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func Test_ParseStatus_ReturnsValidationError_When_Unknown(t *testing.T) {
	t.Parallel()

	_, err := entity.ParseStatus("paused")

	var verr *entity.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ParseStatus() error = %v, want *ValidationError", err)
	}
}

func Test_StatusAndPriorityWeights_FollowWorkflowOrder(t *testing.T) {
	t.Parallel()

	statusWeights := map[entity.Status]int{
		entity.StatusCancelled:  0,
		entity.StatusBacklog:    1,
		entity.StatusTodo:       2,
		entity.StatusInProgress: 3,
		entity.StatusCompleted:  4,
	}

	for status, want := range statusWeights {
		if got := status.Weight(); got != want {
			t.Errorf("%s.Weight() = %d, want %d", status, got, want)
		}
	}

	priorityWeights := map[entity.Priority]int{
		entity.PriorityLow:    1,
		entity.PriorityMedium: 2,
		entity.PriorityHigh:   3,
		entity.PriorityUrgent: 4,
	}

	for priority, want := range priorityWeights {
		if got := priority.Weight(); got != want {
			t.Errorf("%s.Weight() = %d, want %d", priority, got, want)
		}
	}
}

func Test_DecodeProject_AppliesDefaults_When_OptionalFieldsMissing(t *testing.T) {
	t.Parallel()

	src := "---\nname: Alpha\n---\n"

	project, warnings, err := entity.DecodeProject([]byte(src))
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}

	if project.Status != entity.StatusBacklog {
		t.Errorf("Status = %q, want backlog", project.Status)
	}

	if project.Priority != entity.PriorityMedium {
		t.Errorf("Priority = %q, want medium", project.Priority)
	}

	if !project.Created.IsZero() || !project.Updated.IsZero() {
		t.Errorf("timestamps = %v / %v, want zero", project.Created, project.Updated)
	}
}

func Test_DecodeProject_ReturnsValidationError_When_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		src  string
	}{
		{name: "missing name", src: "---\nstatus: todo\n---\n"},
		{name: "blank name", src: "---\nname: ''\n---\n"},
		{name: "bad status", src: "---\nname: Alpha\nstatus: paused\n---\n"},
		{name: "bad priority", src: "---\nname: Alpha\npriority: extreme\n---\n"},
		{name: "bad created", src: "---\nname: Alpha\ncreated: yesterday\n---\n"},
		{name: "unparsable header", src: "---\nname Alpha\n---\n"},
		{name: "no header", src: "# Alpha\n"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := entity.DecodeProject([]byte(tc.src))

			var verr *entity.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("DecodeProject() error = %v, want *ValidationError", err)
			}
		})
	}
}

func Test_ProjectRoundTrip_PreservesBytes(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"---",
		"name: Alpha Rollout",
		"status: in-progress",
		"priority: high",
		"created: 2026-01-02T15:04:05Z",
		"updated: 2026-03-04T08:00:00Z",
		"x-review: second round",
		"---",
		"",
		"Ship the alpha to the pilot group.",
		"",
		"## Comments",
		"",
		"### [2026-02-01T10:00:00Z] - alice",
		"Kickoff done.",
		"",
		"### [2026-02-02T11:30:00Z] - bob",
		"Waiting on infra.",
		"",
	}, "\n")

	project, warnings, err := entity.DecodeProject([]byte(src))
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}

	if got, ok := project.Extra.GetString("x-review"); !ok || got != "second round" {
		t.Fatalf("Extra[x-review] = %q, %v", got, ok)
	}

	out, err := entity.EncodeProject(project)
	if err != nil {
		t.Fatalf("EncodeProject() error = %v", err)
	}

	if diff := cmp.Diff(src, string(out)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func Test_DecodeProject_ParsesCommentsInOrder(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"---",
		"name: Alpha",
		"---",
		"",
		"## Comments",
		"",
		"### [2026-02-01T10:00:00Z] - alice",
		"first",
		"",
		"### [2026-02-02T11:00:00Z] - bob",
		"second",
		"line two",
		"",
	}, "\n")

	project, _, err := entity.DecodeProject([]byte(src))
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}

	want := []entity.Comment{
		{Author: "alice", Timestamp: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), Content: "first"},
		{Author: "bob", Timestamp: time.Date(2026, 2, 2, 11, 0, 0, 0, time.UTC), Content: "second\nline two"},
	}

	if diff := cmp.Diff(want, project.Comments, cmpopts.IgnoreFields(entity.Comment{}, "ID")); diff != "" {
		t.Fatalf("comments mismatch (-want +got):\n%s", diff)
	}

	for _, comment := range project.Comments {
		if comment.ID == "" {
			t.Fatalf("comment %q has empty ID", comment.Author)
		}
	}
}

func Test_DecodeProject_SkipsMalformedCommentBlock_WithWarning(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"---",
		"name: Alpha",
		"---",
		"",
		"## Comments",
		"",
		"### not a marker at all",
		"lost content",
		"",
		"### [2026-02-02T11:00:00Z] - bob",
		"kept",
		"",
	}, "\n")

	project, warnings, err := entity.DecodeProject([]byte(src))
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}

	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}

	if len(project.Comments) != 1 || project.Comments[0].Author != "bob" {
		t.Fatalf("comments = %+v, want only bob's", project.Comments)
	}
}

func Test_DecodeProject_FallsBackToUnknownAuthor_When_MarkerHasNoAuthor(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"---",
		"name: Alpha",
		"---",
		"",
		"## Comments",
		"",
		"### [2026-02-01T10:00:00Z]",
		"orphaned",
		"",
	}, "\n")

	project, warnings, err := entity.DecodeProject([]byte(src))
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}

	if len(project.Comments) != 1 || project.Comments[0].Author != "Unknown" {
		t.Fatalf("comments = %+v, want one by Unknown", project.Comments)
	}
}

func Test_MilestoneRoundTrip_PreservesBytes(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"---",
		"title: Beta Launch",
		"status: todo",
		"target_date: 2026-09-01",
		"project: ALPH",
		"created: 2026-01-02T15:04:05Z",
		"updated: 2026-01-02T15:04:05Z",
		"---",
		"",
		"Public beta window.",
		"",
	}, "\n")

	milestone, _, err := entity.DecodeMilestone([]byte(src))
	if err != nil {
		t.Fatalf("DecodeMilestone() error = %v", err)
	}

	if milestone.TargetDate != time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("TargetDate = %v", milestone.TargetDate)
	}

	out, err := entity.EncodeMilestone(milestone)
	if err != nil {
		t.Fatalf("EncodeMilestone() error = %v", err)
	}

	if diff := cmp.Diff(src, string(out)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func Test_IssueRoundTrip_PreservesBytes_And_UnknownKeys(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"---",
		"title: Fix login timeout",
		"status: in-progress",
		"priority: urgent",
		"project: ALPH",
		"milestone: Beta Launch",
		"tags:",
		"  - bug",
		"  - auth",
		"created: 2026-01-10T09:00:00Z",
		"updated: 2026-01-12T16:45:00Z",
		"assignee: carol",
		"estimate: 3d",
		"---",
		"",
		"Sessions expire after 30 seconds.",
		"",
	}, "\n")

	issue, _, err := entity.DecodeIssue([]byte(src))
	if err != nil {
		t.Fatalf("DecodeIssue() error = %v", err)
	}

	if got, ok := issue.Extra.GetString("assignee"); !ok || got != "carol" {
		t.Fatalf("Extra[assignee] = %q, %v", got, ok)
	}

	out, err := entity.EncodeIssue(issue)
	if err != nil {
		t.Fatalf("EncodeIssue() error = %v", err)
	}

	if diff := cmp.Diff(src, string(out)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func Test_DecodeIssue_KeepsDanglingMilestoneReference(t *testing.T) {
	t.Parallel()

	src := "---\ntitle: Orphan\nmilestone: Removed Milestone\n---\n"

	issue, _, err := entity.DecodeIssue([]byte(src))
	if err != nil {
		t.Fatalf("DecodeIssue() error = %v", err)
	}

	if issue.Milestone != "Removed Milestone" {
		t.Fatalf("Milestone = %q", issue.Milestone)
	}

	out, err := entity.EncodeIssue(issue)
	if err != nil {
		t.Fatalf("EncodeIssue() error = %v", err)
	}

	if !strings.Contains(string(out), "milestone: Removed Milestone\n") {
		t.Fatalf("encoded issue lost milestone reference:\n%s", out)
	}
}

func Test_EncodeProject_AppendsComment_WithoutTouchingDescription(t *testing.T) {
	t.Parallel()

	src := "---\nname: Alpha\n---\n\nOriginal description.\n"

	project, _, err := entity.DecodeProject([]byte(src))
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}

	comment := entity.NewComment("alice", "looks good\n")
	if comment.ID == "" {
		t.Fatalf("NewComment() produced empty ID")
	}

	project.Comments = append(project.Comments, comment)

	out, err := entity.EncodeProject(project)
	if err != nil {
		t.Fatalf("EncodeProject() error = %v", err)
	}

	text := string(out)
	if !strings.Contains(text, "Original description.\n\n## Comments\n") {
		t.Fatalf("comments section not appended after description:\n%s", text)
	}

	if !strings.Contains(text, "] - alice\nlooks good\n") {
		t.Fatalf("comment body missing:\n%s", text)
	}

	reparsed, _, err := entity.DecodeProject(out)
	if err != nil {
		t.Fatalf("DecodeProject(reencoded) error = %v", err)
	}

	if reparsed.Description != "Original description." {
		t.Fatalf("Description = %q", reparsed.Description)
	}

	if len(reparsed.Comments) != 1 || reparsed.Comments[0].Content != "looks good" {
		t.Fatalf("comments = %+v", reparsed.Comments)
	}
}
