package cli

import (
	"fmt"
	"sort"
	"time"

	flag "github.com/spf13/pflag"

	"pillar/internal/entity"
	"pillar/internal/query"
)

const upcomingMilestoneWindow = 5

func newStatusCmd() *Command {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "status",
		Short: "Workspace overview: active projects, work in progress, upcoming milestones",
		Exec: func(a *App, o *IO, args []string) error {
			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			snap, err := st.LoadAll()
			if err != nil {
				return err
			}

			surface(o, snap)

			o.Println(a.styles.Header("Workspace: " + st.Root))
			o.Println()

			active := 0
			for _, project := range snap.Projects {
				if project.Status.Active() {
					active++
				}
			}

			openIssues := 0
			for _, issue := range snap.Issues {
				if issue.Status != entity.StatusCompleted && issue.Status != entity.StatusCancelled {
					openIssues++
				}
			}

			o.Printf("Projects:   %d (%d active)\n", len(snap.Projects), active)
			o.Printf("Milestones: %d\n", len(snap.Milestones))
			o.Printf("Issues:     %d (%d open)\n", len(snap.Issues), openIssues)

			inProgress := query.Filter(snap.Issues,
				query.Criteria{Statuses: []entity.Status{entity.StatusInProgress}},
				query.IssueFields)

			if len(inProgress) > 0 {
				o.Println()
				o.Println(a.styles.Header("In progress:"))

				for _, issue := range query.Sort(inProgress, query.SortByPriority, query.IssueFields) {
					o.Printf("  %s #%03d %s %s\n",
						issue.Project,
						issue.Number,
						truncate(issue.Title, 48),
						a.styles.Priority("("+string(issue.Priority)+")", issue.Priority))
				}
			}

			upcoming := upcomingMilestones(snap.Milestones, time.Now().UTC())
			if len(upcoming) > 0 {
				o.Println()
				o.Println(a.styles.Header("Upcoming milestones:"))

				for _, milestone := range upcoming {
					o.Printf("  %s  %s / %s\n",
						a.styles.Dim(fmtDate(milestone.TargetDate)),
						milestone.Project,
						milestone.Title)
				}
			}

			return nil
		},
	}
}

// upcomingMilestones returns the next few unfinished milestones with a target
// date from today on, soonest first.
func upcomingMilestones(milestones []*entity.Milestone, now time.Time) []*entity.Milestone {
	today := now.Truncate(24 * time.Hour)

	var out []*entity.Milestone

	for _, milestone := range milestones {
		if milestone.TargetDate.IsZero() || milestone.TargetDate.Before(today) {
			continue
		}

		if milestone.Status == entity.StatusCompleted || milestone.Status == entity.StatusCancelled {
			continue
		}

		out = append(out, milestone)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TargetDate.Before(out[j].TargetDate)
	})

	if len(out) > upcomingMilestoneWindow {
		out = out[:upcomingMilestoneWindow]
	}

	return out
}

func newBoardCmd() *Command {
	flags := flag.NewFlagSet("board", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "board [project]",
		Short: "Show issues as a status board",
		Exec: func(a *App, o *IO, args []string) error {
			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			project := ""

			if len(args) > 0 {
				if project, err = st.ResolveProject(args[0]); err != nil {
					return err
				}
			}

			snap, err := st.LoadAll()
			if err != nil {
				return err
			}

			surface(o, snap)

			issues := snap.Issues
			if project != "" {
				issues = query.Filter(issues, query.Criteria{Project: project}, query.IssueFields)
			}

			buckets := query.Group(issues, query.GroupByStatus, query.IssueFields)

			for idx, bucket := range buckets {
				if idx > 0 {
					o.Println()
				}

				status := entity.Status(bucket.Label)
				o.Println(a.styles.Status(fmt.Sprintf("%s (%d)", bucket.Label, len(bucket.Items)), status))

				for _, issue := range query.Sort(bucket.Items, query.SortByPriority, query.IssueFields) {
					prefix := ""
					if project == "" {
						prefix = issue.Project + " "
					}

					o.Printf("  %s#%03d %s %s\n",
						prefix,
						issue.Number,
						truncate(issue.Title, 48),
						a.styles.Priority("("+string(issue.Priority)+")", issue.Priority))
				}
			}

			return nil
		},
	}
}
