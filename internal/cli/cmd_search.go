package cli

import (
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"pillar/internal/query"
)

func newSearchCmd() *Command {
	flags := flag.NewFlagSet("search", flag.ContinueOnError)
	kind := flags.String("type", "all", "restrict to one kind: project, milestone, or issue")

	return &Command{
		Flags: flags,
		Usage: "search <query> [flags]",
		Short: "Case-insensitive search across names, titles, descriptions, and tags",
		Exec: func(a *App, o *IO, args []string) error {
			if len(args) == 0 {
				return errors.New("search query required")
			}

			text := strings.Join(args, " ")

			wantProjects, wantMilestones, wantIssues, err := searchKinds(*kind)
			if err != nil {
				return err
			}

			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			snap, err := st.LoadAll()
			if err != nil {
				return err
			}

			surface(o, snap)

			criteria := query.Criteria{Text: text}
			found := false

			if wantProjects {
				projects := query.Filter(snap.Projects, criteria, query.ProjectFields)
				if len(projects) > 0 {
					found = true

					o.Println(a.styles.Header("Projects:"))

					for _, project := range projects {
						o.Printf("  %-10s %s\n", project.ID, project.Name)
					}
				}
			}

			if wantMilestones {
				milestones := query.Filter(snap.Milestones, criteria, query.MilestoneFields)
				if len(milestones) > 0 {
					if found {
						o.Println()
					}

					found = true

					o.Println(a.styles.Header("Milestones:"))

					for _, milestone := range milestones {
						o.Printf("  %-10s %s\n", milestone.Project, milestone.Title)
					}
				}
			}

			if wantIssues {
				issues := query.Filter(snap.Issues, criteria, query.IssueFields)
				if len(issues) > 0 {
					if found {
						o.Println()
					}

					found = true

					o.Println(a.styles.Header("Issues:"))

					for _, issue := range query.Sort(issues, query.SortByNumber, query.IssueFields) {
						o.Printf("  %-10s #%03d %s\n", issue.Project, issue.Number, issue.Title)
					}
				}
			}

			if !found {
				o.Printf("No matches for %q.\n", text)
			}

			return nil
		},
	}
}

func searchKinds(kind string) (projects, milestones, issues bool, err error) {
	switch strings.ToLower(kind) {
	case "all", "":
		return true, true, true, nil
	case "project", "projects":
		return true, false, false, nil
	case "milestone", "milestones":
		return false, true, false, nil
	case "issue", "issues":
		return false, false, true, nil
	default:
		return false, false, false, fmt.Errorf("unknown type %q (use project, milestone, issue, or all)", kind)
	}
}
