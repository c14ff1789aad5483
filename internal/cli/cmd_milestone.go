package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"pillar/internal/entity"
	"pillar/internal/query"
)

func newMilestoneCreateCmd() *Command {
	flags := flag.NewFlagSet("milestone create", flag.ContinueOnError)
	desc := flags.StringP("description", "d", "", "milestone description")
	status := flags.String("status", "", "initial status (default todo)")
	date := flags.String("date", "", "target date (YYYY-MM-DD)")

	return &Command{
		Flags: flags,
		Usage: "milestone create <project> <title> [flags]",
		Short: "Create a milestone in a project",
		Exec: func(a *App, o *IO, args []string) error {
			if len(args) < 2 {
				return errors.New("project id and milestone title required")
			}

			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			id, err := st.ResolveProject(args[0])
			if err != nil {
				return err
			}

			milestone := &entity.Milestone{
				Project:     id,
				Title:       strings.Join(args[1:], " "),
				Status:      entity.StatusTodo,
				Description: *desc,
			}

			if *status != "" {
				if milestone.Status, err = entity.ParseStatus(*status); err != nil {
					return err
				}
			}

			if *date != "" {
				parsed, err := time.Parse(time.DateOnly, *date)
				if err != nil {
					return &entity.ValidationError{Field: "date", Msg: "not a YYYY-MM-DD date"}
				}

				milestone.TargetDate = parsed
			}

			if err := st.CreateMilestone(milestone); err != nil {
				return err
			}

			o.Printf("Created milestone %q in %s\n", milestone.Title, id)

			return nil
		},
	}
}

func newMilestoneListCmd() *Command {
	flags := flag.NewFlagSet("milestone list", flag.ContinueOnError)
	status := flags.String("status", "", "filter by status")

	return &Command{
		Flags: flags,
		Usage: "milestone list [project] [flags]",
		Short: "List milestones, optionally for one project",
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

			criteria, err := buildCriteria(project, *status, "", "", nil, "")
			if err != nil {
				return err
			}

			milestones := query.Filter(snap.Milestones, criteria, query.MilestoneFields)
			if len(milestones) == 0 {
				o.Println("No milestones found.")

				return nil
			}

			// Count open issues per milestone for the progress column.
			open := make(map[string]int)
			total := make(map[string]int)

			for _, issue := range snap.Issues {
				if issue.Milestone == "" {
					continue
				}

				key := issue.Project + "\x00" + strings.ToLower(issue.Milestone)
				total[key]++

				if issue.Status != entity.StatusCompleted && issue.Status != entity.StatusCancelled {
					open[key]++
				}
			}

			o.Println(a.styles.Header(fmt.Sprintf("%-10s %-28s %-13s %-12s %s",
				"PROJECT", "TITLE", "STATUS", "TARGET", "OPEN/TOTAL")))

			for _, milestone := range milestones {
				key := milestone.Project + "\x00" + strings.ToLower(milestone.Title)

				o.Printf("%-10s %-28s %s %-12s %d/%d\n",
					milestone.Project,
					truncate(milestone.Title, 28),
					a.styles.Status(pad(string(milestone.Status), 13), milestone.Status),
					fmtDate(milestone.TargetDate),
					open[key],
					total[key])
			}

			return nil
		},
	}
}

func newMilestoneEditCmd() *Command {
	flags := flag.NewFlagSet("milestone edit", flag.ContinueOnError)
	title := flags.String("title", "", "new title")
	desc := flags.StringP("description", "d", "", "new description")
	status := flags.String("status", "", "new status")
	date := flags.String("date", "", "new target date (YYYY-MM-DD, empty clears it)")

	return &Command{
		Flags: flags,
		Usage: "milestone edit <project> <title> [flags]",
		Short: "Edit a milestone's fields",
		Exec: func(a *App, o *IO, args []string) error {
			if len(args) < 2 {
				return errors.New("project id and milestone title required")
			}

			if !anyChanged(flags, "title", "description", "status", "date") {
				return errors.New("nothing to change: pass at least one of --title, --description, --status, --date")
			}

			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			id, err := st.ResolveProject(args[0])
			if err != nil {
				return err
			}

			milestone, warnings, err := st.UpdateMilestone(id, strings.Join(args[1:], " "), func(m *entity.Milestone) error {
				if flags.Changed("title") {
					if strings.TrimSpace(*title) == "" {
						return &entity.ValidationError{Field: "title", Msg: "required"}
					}

					m.Title = *title
				}

				if flags.Changed("description") {
					m.Description = *desc
				}

				if flags.Changed("status") {
					parsed, err := entity.ParseStatus(*status)
					if err != nil {
						return err
					}

					m.Status = parsed
				}

				if flags.Changed("date") {
					if *date == "" {
						m.TargetDate = time.Time{}

						return nil
					}

					parsed, err := time.Parse(time.DateOnly, *date)
					if err != nil {
						return &entity.ValidationError{Field: "date", Msg: "not a YYYY-MM-DD date"}
					}

					m.TargetDate = parsed
				}

				return nil
			})
			if err != nil {
				return err
			}

			for _, warning := range warnings {
				o.Warn(warning)
			}

			o.Printf("Updated milestone %q in %s\n", milestone.Title, id)

			return nil
		},
	}
}
