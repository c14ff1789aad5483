package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"pillar/internal/server"
	"pillar/internal/store"
)

func newExportCmd() *Command {
	flags := flag.NewFlagSet("export", flag.ContinueOnError)
	format := flags.StringP("format", "f", "json", "output format: json, csv, or yaml")
	kind := flags.String("type", "all", "what to export: all, projects, milestones, or issues")
	output := flags.StringP("output", "o", "", "write to a file instead of stdout")

	return &Command{
		Flags: flags,
		Usage: "export [flags]",
		Short: "Dump workspace data as JSON, CSV, or YAML",
		Long: `Dump workspace data as JSON, CSV, or YAML. CSV is tabular and therefore
needs a single entity type; --type all works with json and yaml only.`,
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

			kindName := strings.ToLower(*kind)
			switch kindName {
			case "all", "projects", "milestones", "issues":
			default:
				return fmt.Errorf("unknown type %q (use all, projects, milestones, or issues)", *kind)
			}

			var data []byte

			switch strings.ToLower(*format) {
			case "json":
				data, err = marshalExport(snap, kindName, func(v any) ([]byte, error) {
					return json.MarshalIndent(v, "", "  ")
				})
			case "yaml":
				data, err = marshalExport(snap, kindName, yaml.Marshal)
			case "csv":
				if kindName == "all" {
					return errors.New("csv export needs a single --type (projects, milestones, or issues)")
				}

				data, err = exportCSV(snap, kindName)
			default:
				return fmt.Errorf("unknown format %q (use json, csv, or yaml)", *format)
			}

			if err != nil {
				return err
			}

			if *output != "" {
				if err := os.WriteFile(*output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", *output, err)
				}

				o.Printf("Wrote %s\n", *output)

				return nil
			}

			o.Printf("%s", data)

			if len(data) > 0 && data[len(data)-1] != '\n' {
				o.Println()
			}

			return nil
		},
	}
}

func marshalExport(snap *store.Snapshot, kind string, marshal func(any) ([]byte, error)) ([]byte, error) {
	payload := server.BuildPayload(snap)

	switch kind {
	case "projects":
		return marshal(payload.Projects)
	case "milestones":
		return marshal(payload.Milestones)
	case "issues":
		return marshal(payload.Issues)
	default:
		return marshal(payload)
	}
}

func exportCSV(snap *store.Snapshot, kind string) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	payload := server.BuildPayload(snap)

	var err error

	switch kind {
	case "projects":
		err = w.Write([]string{"id", "name", "status", "priority", "created", "updated", "description"})

		for _, p := range payload.Projects {
			if err != nil {
				break
			}

			err = w.Write([]string{p.ID, p.Name, p.Status, p.Priority, p.Created, p.Updated, p.Description})
		}
	case "milestones":
		err = w.Write([]string{"project", "title", "status", "target_date", "created", "updated", "description"})

		for _, m := range payload.Milestones {
			if err != nil {
				break
			}

			err = w.Write([]string{m.Project, m.Title, m.Status, m.TargetDate, m.Created, m.Updated, m.Description})
		}
	case "issues":
		err = w.Write([]string{"project", "number", "title", "status", "priority", "milestone", "tags", "created", "updated", "description"})

		for _, i := range payload.Issues {
			if err != nil {
				break
			}

			err = w.Write([]string{
				i.Project,
				strconv.Itoa(i.Number),
				i.Title,
				i.Status,
				i.Priority,
				i.Milestone,
				strings.Join(i.Tags, ";"),
				i.Created,
				i.Updated,
				i.Description,
			})
		}
	}

	if err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}

	return buf.Bytes(), nil
}
