package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"pillar/internal/entity"
)

func newCommentAddCmd() *Command {
	flags := flag.NewFlagSet("comment add", flag.ContinueOnError)
	issue := flags.IntP("issue", "i", 0, "comment on an issue number instead of the project")
	milestone := flags.StringP("milestone", "m", "", "comment on a milestone instead of the project")
	text := flags.StringP("text", "t", "", "comment text (prompted or read from stdin when omitted)")

	return &Command{
		Flags: flags,
		Usage: "comment add <project> [flags]",
		Short: "Add a comment to a project, milestone, or issue",
		Long: `Add a comment to a project, or with -i/-m to one of its issues or
milestones. The author is taken from git config user.name, falling back to
$USER. Comments are append-only.`,
		Exec: func(a *App, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("project id required")
			}

			if *issue != 0 && *milestone != "" {
				return errors.New("-i and -m are mutually exclusive")
			}

			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			id, err := st.ResolveProject(args[0])
			if err != nil {
				return err
			}

			content := *text
			if content == "" {
				if content, err = readCommentText(a); err != nil {
					return err
				}
			}

			if strings.TrimSpace(content) == "" {
				return errors.New("comment text required")
			}

			comment := entity.NewComment(resolveAuthor(a), content)

			var warnings []string

			switch {
			case *issue != 0:
				_, warnings, err = st.UpdateIssue(id, *issue, func(i *entity.Issue) error {
					i.Comments = append(i.Comments, comment)

					return nil
				})
			case *milestone != "":
				_, warnings, err = st.UpdateMilestone(id, *milestone, func(m *entity.Milestone) error {
					m.Comments = append(m.Comments, comment)

					return nil
				})
			default:
				_, warnings, err = st.UpdateProject(id, func(p *entity.Project) error {
					p.Comments = append(p.Comments, comment)

					return nil
				})
			}

			if err != nil {
				return err
			}

			for _, warning := range warnings {
				o.Warn(warning)
			}

			o.Printf("Added comment by %s\n", comment.Author)

			return nil
		},
	}
}

func newCommentListCmd() *Command {
	flags := flag.NewFlagSet("comment list", flag.ContinueOnError)
	issue := flags.IntP("issue", "i", 0, "list comments of an issue number")
	milestone := flags.StringP("milestone", "m", "", "list comments of a milestone")

	return &Command{
		Flags: flags,
		Usage: "comment list <project> [flags]",
		Short: "List comments of a project, milestone, or issue",
		Exec: func(a *App, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("project id required")
			}

			if *issue != 0 && *milestone != "" {
				return errors.New("-i and -m are mutually exclusive")
			}

			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			id, err := st.ResolveProject(args[0])
			if err != nil {
				return err
			}

			var (
				comments []entity.Comment
				warnings []string
			)

			switch {
			case *issue != 0:
				target, _, w, err := st.GetIssue(id, *issue)
				if err != nil {
					return err
				}

				comments, warnings = target.Comments, w
			case *milestone != "":
				target, _, w, err := st.GetMilestone(id, *milestone)
				if err != nil {
					return err
				}

				comments, warnings = target.Comments, w
			default:
				target, w, err := st.GetProject(id)
				if err != nil {
					return err
				}

				comments, warnings = target.Comments, w
			}

			for _, warning := range warnings {
				o.Warn(warning)
			}

			if len(comments) == 0 {
				o.Println("No comments.")

				return nil
			}

			for idx, comment := range comments {
				if idx > 0 {
					o.Println()
				}

				o.Printf("%s %s %s\n",
					a.styles.Dim("["+fmtStamp(comment.Timestamp)+"]"),
					a.styles.Header(comment.Author),
					a.styles.Dim("("+comment.ID+")"))
				o.Println(comment.Content)
			}

			return nil
		},
	}
}

// readCommentText gets the comment body interactively when stdin is a
// terminal, otherwise by reading stdin to EOF (so comments can be piped in).
func readCommentText(a *App) (string, error) {
	if file, ok := a.Stdin.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		prompt := liner.NewLiner()
		defer func() { _ = prompt.Close() }()

		prompt.SetCtrlCAborts(true)

		text, err := prompt.Prompt("comment> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return "", errors.New("aborted")
			}

			return "", fmt.Errorf("read comment: %w", err)
		}

		return text, nil
	}

	if a.Stdin == nil {
		return "", errors.New("comment text required (use -t or pipe it on stdin)")
	}

	data, err := io.ReadAll(a.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return string(data), nil
}
