package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"pillar/internal/server"
)

const defaultServePort = 8080

func newServeCmd() *Command {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := flags.IntP("port", "p", defaultServePort, "port to listen on")

	return &Command{
		Flags: flags,
		Usage: "serve [--port <n>]",
		Short: "Run the HTTP API over the workspace",
		Long: `Run the HTTP API over the workspace. Every request loads fresh state from
disk, so files edited while the server runs are always visible. Stops on
SIGINT/SIGTERM.`,
		Exec: func(a *App, o *IO, args []string) error {
			st, err := a.OpenStore()
			if err != nil {
				return err
			}

			logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
			app := server.New(st, logger)

			if a.Signals != nil {
				go func() {
					<-a.Signals

					_ = app.Shutdown()
				}()
			}

			o.Printf("Serving %s on http://localhost:%d\n", st.Root, *port)

			return app.Listen(fmt.Sprintf(":%d", *port))
		},
	}
}
