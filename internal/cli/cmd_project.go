package cli

import (
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"pillar/internal/entity"
	"pillar/internal/query"
)

func newProjectCreateCmd() *Command {
	flags := flag.NewFlagSet("project create", flag.ContinueOnError)
	id := flags.String("id", "", "explicit project identifier (derived from the name when omitted)")
	desc := flags.StringP("description", "d", "", "project description")
	status := flags.String("status", "", "initial status (default backlog)")
	priority := flags.String("priority", "", "priority (default medium)")

	return &Command{
		Flags: flags,
		Usage: "project create <name> [flags]",
		Short: "Create a project",
		Exec: func(a *App, o *IO, args []string) error {
			name := strings.TrimSpace(strings.Join(args, " "))
			if name == "" {
				return errors.New("project name required")
			}

			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			project := &entity.Project{
				ID:          *id,
				Name:        name,
				Status:      entity.StatusBacklog,
				Priority:    entity.PriorityMedium,
				Description: *desc,
			}

			if *status != "" {
				if project.Status, err = entity.ParseStatus(*status); err != nil {
					return err
				}
			}

			if *priority != "" {
				if project.Priority, err = entity.ParsePriority(*priority); err != nil {
					return err
				}
			}

			if err := st.CreateProject(project); err != nil {
				return err
			}

			o.Printf("Created project %s (%s)\n", project.Name, project.ID)

			return nil
		},
	}
}

func newProjectListCmd() *Command {
	flags := flag.NewFlagSet("project list", flag.ContinueOnError)
	status := flags.String("status", "", "filter by status")
	priority := flags.String("priority", "", "filter by priority")
	sortKey := flags.String("sort", "name", "sort order: name, priority, or status")

	return &Command{
		Flags: flags,
		Usage: "project list [flags]",
		Short: "List projects",
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

			criteria, err := buildCriteria("", *status, *priority, "", nil, "")
			if err != nil {
				return err
			}

			key, err := parseSortKey(*sortKey)
			if err != nil {
				return err
			}

			projects := query.Filter(snap.Projects, criteria, query.ProjectFields)
			projects = query.Sort(projects, key, query.ProjectFields)

			if len(projects) == 0 {
				o.Println("No projects found.")

				return nil
			}

			issueCounts := make(map[string]int, len(projects))
			for _, issue := range snap.Issues {
				issueCounts[issue.Project]++
			}

			o.Println(a.styles.Header(fmt.Sprintf("%-10s %-32s %-13s %-8s %s",
				"ID", "NAME", "STATUS", "PRIORITY", "ISSUES")))

			for _, project := range projects {
				o.Printf("%-10s %-32s %s %s %d\n",
					project.ID,
					truncate(project.Name, 32),
					a.styles.Status(pad(string(project.Status), 13), project.Status),
					a.styles.Priority(pad(string(project.Priority), 8), project.Priority),
					issueCounts[project.ID])
			}

			return nil
		},
	}
}

func newProjectShowCmd() *Command {
	flags := flag.NewFlagSet("project show", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "project show <id>",
		Short: "Show one project with its milestones and issues",
		Exec: func(a *App, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("project id required")
			}

			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			id, err := st.ResolveProject(args[0])
			if err != nil {
				return err
			}

			project, warnings, err := st.GetProject(id)
			if err != nil {
				return err
			}

			for _, warning := range warnings {
				o.Warn(warning)
			}

			snap, err := st.LoadAll()
			if err != nil {
				return err
			}

			milestones := query.Filter(snap.Milestones, query.Criteria{Project: id}, query.MilestoneFields)
			issues := query.Filter(snap.Issues, query.Criteria{Project: id}, query.IssueFields)

			o.Println(a.styles.Header(fmt.Sprintf("%s: %s", project.ID, project.Name)))
			o.Printf("Status:    %s\n", a.styles.Status(string(project.Status), project.Status))
			o.Printf("Priority:  %s\n", a.styles.Priority(string(project.Priority), project.Priority))
			o.Printf("Created:   %s\n", fmtDate(project.Created))
			o.Printf("Updated:   %s\n", fmtDate(project.Updated))

			renderDescription(o, project.Description)

			if len(milestones) > 0 {
				o.Println()
				o.Println(a.styles.Header("Milestones:"))

				for _, milestone := range milestones {
					o.Printf("  %s %s (target: %s)\n",
						a.styles.Status(pad(string(milestone.Status), 13), milestone.Status),
						milestone.Title,
						fmtDate(milestone.TargetDate))
				}
			}

			if len(issues) > 0 {
				o.Println()
				renderIssueRows(a, o, query.Sort(issues, query.SortByNumber, query.IssueFields))
			}

			renderComments(a, o, project.Comments)

			return nil
		},
	}
}

func newProjectEditCmd() *Command {
	flags := flag.NewFlagSet("project edit", flag.ContinueOnError)
	name := flags.String("name", "", "new name")
	desc := flags.StringP("description", "d", "", "new description")
	status := flags.String("status", "", "new status")
	priority := flags.String("priority", "", "new priority")

	return &Command{
		Flags: flags,
		Usage: "project edit <id> [flags]",
		Short: "Edit a project's fields",
		Exec: func(a *App, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("project id required")
			}

			if !anyChanged(flags, "name", "description", "status", "priority") {
				return errors.New("nothing to change: pass at least one of --name, --description, --status, --priority")
			}

			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			id, err := st.ResolveProject(args[0])
			if err != nil {
				return err
			}

			project, warnings, err := st.UpdateProject(id, func(p *entity.Project) error {
				if flags.Changed("name") {
					if strings.TrimSpace(*name) == "" {
						return &entity.ValidationError{Field: "name", Msg: "required"}
					}

					p.Name = *name
				}

				if flags.Changed("description") {
					p.Description = *desc
				}

				if flags.Changed("status") {
					parsed, err := entity.ParseStatus(*status)
					if err != nil {
						return err
					}

					p.Status = parsed
				}

				if flags.Changed("priority") {
					parsed, err := entity.ParsePriority(*priority)
					if err != nil {
						return err
					}

					p.Priority = parsed
				}

				return nil
			})
			if err != nil {
				return err
			}

			for _, warning := range warnings {
				o.Warn(warning)
			}

			o.Printf("Updated project %s\n", project.ID)

			return nil
		},
	}
}

func anyChanged(flags *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if flags.Changed(name) {
			return true
		}
	}

	return false
}
