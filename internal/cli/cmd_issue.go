package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"pillar/internal/entity"
	"pillar/internal/query"
	"pillar/internal/store"
)

func newIssueCreateCmd() *Command {
	flags := flag.NewFlagSet("issue create", flag.ContinueOnError)
	desc := flags.StringP("description", "d", "", "issue description")
	status := flags.String("status", "", "initial status (default from workspace config)")
	priority := flags.String("priority", "", "priority (default from workspace config)")
	milestone := flags.String("milestone", "", "milestone title")
	tags := flags.StringSlice("tags", nil, "comma-separated tags")

	return &Command{
		Flags: flags,
		Usage: "issue create <project> <title> [flags]",
		Short: "Create an issue in a project",
		Long: `Create an issue in a project. The issue number is the highest existing
number in the project plus one.`,
		Exec: func(a *App, o *IO, args []string) error {
			if len(args) < 2 {
				return errors.New("project id and issue title required")
			}

			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			id, err := st.ResolveProject(args[0])
			if err != nil {
				return err
			}

			issue := &entity.Issue{
				Project:     id,
				Title:       strings.Join(args[1:], " "),
				Milestone:   *milestone,
				Tags:        *tags,
				Description: *desc,
			}

			if issue.Status, err = st.Config.DefaultStatus(); err != nil {
				return err
			}

			if issue.Priority, err = st.Config.DefaultPriority(); err != nil {
				return err
			}

			if *status != "" {
				if issue.Status, err = entity.ParseStatus(*status); err != nil {
					return err
				}
			}

			if *priority != "" {
				if issue.Priority, err = entity.ParsePriority(*priority); err != nil {
					return err
				}
			}

			if err := st.CreateIssue(issue); err != nil {
				return err
			}

			o.Printf("Created issue #%03d in %s: %s\n", issue.Number, id, issue.Title)

			return nil
		},
	}
}

func newIssueListCmd() *Command {
	flags := flag.NewFlagSet("issue list", flag.ContinueOnError)
	status := flags.String("status", "", "filter by status (comma-separated alternatives)")
	priority := flags.String("priority", "", "filter by priority (comma-separated alternatives)")
	milestone := flags.String("milestone", "", "filter by milestone title")
	tags := flags.StringSlice("tags", nil, "filter by tags (any match)")
	sortKey := flags.String("sort", "number", "sort order: number, priority, status, or title")

	return &Command{
		Flags: flags,
		Usage: "issue list [project] [flags]",
		Short: "List issues, optionally for one project",
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

			criteria, err := buildCriteria(project, *status, *priority, *milestone, *tags, "")
			if err != nil {
				return err
			}

			key, err := parseSortKey(*sortKey)
			if err != nil {
				return err
			}

			issues := query.Filter(snap.Issues, criteria, query.IssueFields)
			issues = query.Sort(issues, key, query.IssueFields)

			if len(issues) == 0 {
				o.Println("No issues found.")

				return nil
			}

			if project == "" {
				// Cross-project listing shows the project column.
				o.Println(a.styles.Header(fmt.Sprintf("%-10s %-6s %-42s %-13s %s",
					"PROJECT", "#", "TITLE", "STATUS", "PRIORITY")))

				for _, issue := range issues {
					o.Printf("%-10s %-6s %-42s %s %s\n",
						issue.Project,
						fmt.Sprintf("%03d", issue.Number),
						truncate(issue.Title, 42),
						a.styles.Status(pad(string(issue.Status), 13), issue.Status),
						a.styles.Priority(string(issue.Priority), issue.Priority))
				}

				return nil
			}

			renderIssueRows(a, o, issues)

			return nil
		},
	}
}

func newIssueShowCmd() *Command {
	flags := flag.NewFlagSet("issue show", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "issue show <project> <number>",
		Short: "Show one issue",
		Exec: func(a *App, o *IO, args []string) error {
			st, id, number, err := resolveIssueRef(a, args)
			if err != nil {
				return err
			}

			issue, _, warnings, err := st.GetIssue(id, number)
			if err != nil {
				return err
			}

			for _, warning := range warnings {
				o.Warn(warning)
			}

			o.Println(a.styles.Header(fmt.Sprintf("%s #%03d: %s", issue.Project, issue.Number, issue.Title)))
			o.Printf("Status:    %s\n", a.styles.Status(string(issue.Status), issue.Status))
			o.Printf("Priority:  %s\n", a.styles.Priority(string(issue.Priority), issue.Priority))

			if issue.Milestone != "" {
				o.Printf("Milestone: %s\n", issue.Milestone)
			}

			if len(issue.Tags) > 0 {
				o.Printf("Tags:      %s\n", strings.Join(issue.Tags, ", "))
			}

			o.Printf("Created:   %s\n", fmtDate(issue.Created))
			o.Printf("Updated:   %s\n", fmtDate(issue.Updated))

			renderDescription(o, issue.Description)
			renderComments(a, o, issue.Comments)

			return nil
		},
	}
}

func newIssueEditCmd() *Command {
	flags := flag.NewFlagSet("issue edit", flag.ContinueOnError)
	title := flags.String("title", "", "new title")
	desc := flags.StringP("description", "d", "", "new description")
	status := flags.String("status", "", "new status")
	priority := flags.String("priority", "", "new priority")
	milestone := flags.String("milestone", "", "new milestone title (empty clears it)")
	tags := flags.StringSlice("tags", nil, "replacement tag list")

	return &Command{
		Flags: flags,
		Usage: "issue edit <project> <number> [flags]",
		Short: "Edit an issue's fields",
		Exec: func(a *App, o *IO, args []string) error {
			if !anyChanged(flags, "title", "description", "status", "priority", "milestone", "tags") {
				return errors.New("nothing to change: pass at least one of --title, --description, --status, --priority, --milestone, --tags")
			}

			st, id, number, err := resolveIssueRef(a, args)
			if err != nil {
				return err
			}

			issue, warnings, err := st.UpdateIssue(id, number, func(i *entity.Issue) error {
				if flags.Changed("title") {
					if strings.TrimSpace(*title) == "" {
						return &entity.ValidationError{Field: "title", Msg: "required"}
					}

					i.Title = *title
				}

				if flags.Changed("description") {
					i.Description = *desc
				}

				if flags.Changed("status") {
					parsed, err := entity.ParseStatus(*status)
					if err != nil {
						return err
					}

					i.Status = parsed
				}

				if flags.Changed("priority") {
					parsed, err := entity.ParsePriority(*priority)
					if err != nil {
						return err
					}

					i.Priority = parsed
				}

				if flags.Changed("milestone") {
					i.Milestone = *milestone
				}

				if flags.Changed("tags") {
					i.Tags = *tags
				}

				return nil
			})
			if err != nil {
				return err
			}

			for _, warning := range warnings {
				o.Warn(warning)
			}

			o.Printf("Updated issue #%03d in %s\n", issue.Number, id)

			return nil
		},
	}
}

// resolveIssueRef parses the "<project> <number>" argument pair shared by
// issue show/edit and opens the store.
func resolveIssueRef(a *App, args []string) (st *store.Store, id string, number int, err error) {
	if len(args) != 2 {
		return nil, "", 0, errors.New("project id and issue number required")
	}

	s, err := a.OpenStore()
	if err != nil {
		return nil, "", 0, err
	}

	id, err = s.ResolveProject(args[0])
	if err != nil {
		return nil, "", 0, err
	}

	number, err = strconv.Atoi(strings.TrimPrefix(args[1], "#"))
	if err != nil || number <= 0 {
		return nil, "", 0, fmt.Errorf("invalid issue number %q", args[1])
	}

	return s, id, number, nil
}
