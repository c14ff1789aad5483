package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"pillar/internal/store"
)

const (
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

// App carries the per-invocation environment every command runs against.
type App struct {
	WorkDir string
	Env     map[string]string
	Stdin   io.Reader
	Signals <-chan os.Signal

	styles *styles
}

// OpenStore resolves the workspace containing the working directory.
func (a *App) OpenStore() (*store.Store, error) {
	return store.Open(a.WorkDir)
}

// Getenv looks up an environment variable from the invocation's env map.
func (a *App) Getenv(key string) string {
	return a.Env[key]
}

// Run is the main entry point. Returns exit code.
func Run(stdin io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	if len(args) < 2 {
		printUsage(out)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	workDir := flags.workDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			fprintln(errOut, "error: cannot get working directory:", err)

			return 1
		}
	}

	if len(flags.remaining) == 0 {
		printUsage(out)

		return 0
	}

	name := flags.remaining[0]
	if name == "-h" || name == helpFlag {
		printUsage(out)

		return 0
	}

	app := &App{
		WorkDir: workDir,
		Env:     env,
		Stdin:   stdin,
		Signals: sigCh,
		styles:  newStyles(out, env),
	}

	ioCtx := NewIO(out, errOut)

	if group, ok := commandGroups()[name]; ok {
		return runGroup(app, ioCtx, out, errOut, name, group, flags.remaining[1:])
	}

	builder, ok := topCommands()[name]
	if !ok {
		fprintln(errOut, "error: unknown command:", name)
		printUsage(errOut)

		return 1
	}

	if code := builder().Run(app, ioCtx, flags.remaining[1:]); code != 0 {
		return code
	}

	return ioCtx.Finish()
}

func runGroup(app *App, ioCtx *IO, out, errOut io.Writer, name string, group map[string]func() *Command, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == helpFlag {
		printGroupUsage(out, name, group)

		return 0
	}

	builder, ok := group[args[0]]
	if !ok {
		fprintln(errOut, "error: unknown command:", name, args[0])
		printGroupUsage(errOut, name, group)

		return 1
	}

	if code := builder().Run(app, ioCtx, args[1:]); code != 0 {
		return code
	}

	return ioCtx.Finish()
}

// topCommands maps single-word commands to their builders. Builders run per
// invocation because pflag FlagSets are stateful.
func topCommands() map[string]func() *Command {
	return map[string]func() *Command{
		"init":   newInitCmd,
		"status": newStatusCmd,
		"board":  newBoardCmd,
		"search": newSearchCmd,
		"export": newExportCmd,
		"serve":  newServeCmd,
	}
}

func commandGroups() map[string]map[string]func() *Command {
	return map[string]map[string]func() *Command{
		"project": {
			"create": newProjectCreateCmd,
			"list":   newProjectListCmd,
			"show":   newProjectShowCmd,
			"edit":   newProjectEditCmd,
		},
		"milestone": {
			"create": newMilestoneCreateCmd,
			"list":   newMilestoneListCmd,
			"edit":   newMilestoneEditCmd,
		},
		"issue": {
			"create": newIssueCreateCmd,
			"list":   newIssueListCmd,
			"show":   newIssueShowCmd,
			"edit":   newIssueEditCmd,
		},
		"comment": {
			"add":  newCommentAddCmd,
			"list": newCommentListCmd,
		},
	}
}

type globalFlags struct {
	workDir   string
	remaining []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a global flag at args[idx]. Returns number of args
// consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	// -C/--cwd flag (work directory)
	if (arg == "-C" || arg == "--cwd") && idx+1 < len(args) {
		flags.workDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "-C"); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	if after, ok := strings.CutPrefix(arg, "--cwd="); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	// -h/--help flags
	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	// Unknown global flag
	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("unknown flag: %s", arg)
	}

	// Not a flag
	return consumedNone, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer) {
	fprintln(w, `pillar - file-based project tracker

Usage: pillar [options] <command> [args]

Options:
  -C, --cwd <dir>    Run as if started in <dir>

Commands:
  init [-p <dir>]                        Initialize a workspace
  project create|list|show|edit          Manage projects
  milestone create|list|edit             Manage milestones
  issue create|list|show|edit            Manage issues
  comment add|list                       Manage comments
  status                                 Workspace overview
  board [project]                        Issues grouped by status
  search <query>                         Search across entities
  export --format json|csv|yaml          Dump workspace data
  serve [--port <n>]                     Run the HTTP API

Run 'pillar <command> --help' for details.`)
}

func printGroupUsage(w io.Writer, name string, group map[string]func() *Command) {
	fprintln(w, "Usage: pillar", name, "<command> [args]")
	fprintln(w)
	fprintln(w, "Commands:")

	// Fixed order so help output is deterministic.
	for _, sub := range []string{"create", "add", "list", "show", "edit"} {
		builder, ok := group[sub]
		if !ok {
			continue
		}

		fprintln(w, builder().HelpLine())
	}
}
