package cli

import (
	flag "github.com/spf13/pflag"

	"pillar/internal/store"
)

func newInitCmd() *Command {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	base := flags.StringP("path", "p", "", "base directory for entity files, relative to the workspace root (default \".\")")

	return &Command{
		Flags: flags,
		Usage: "init [-p <dir>]",
		Short: "Initialize a workspace in the current directory",
		Long: `Initialize a workspace by creating a .pillar/config.json in the current
directory. Entity files are stored under the base directory given with -p.`,
		Exec: func(a *App, o *IO, args []string) error {
			st, err := store.Init(a.WorkDir, *base)
			if err != nil {
				return err
			}

			o.Println("Initialized workspace in", st.Root)
			o.Println("Entity files will be stored in", st.Base)

			return nil
		},
	}
}
