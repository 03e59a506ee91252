package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/glean/internal/errors"
	"github.com/hpungsan/glean/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(st *appState) *cli.App {
	app := &cli.App{
		Name:    "glean",
		Usage:   "Capture UI text snapshots, de-duplicated, into a local store",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", EnvVars: []string{"GLEAN_DIR"}, Usage: "Data directory (default ~/.glean)"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level: debug|info|warn|error"},
		},
		Before: func(c *cli.Context) error {
			if st.logger != nil {
				return nil
			}
			logger, err := newLogger(c.String("log-level"))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			st.logger = logger
			slog.SetDefault(logger)
			return nil
		},
		Commands: []*cli.Command{
			runCmd(st),
			ingestCmd(st),
			watchCmd(st),
			recentCmd(st),
			statusCmd(st),
			toggleCmd(st, true),
			toggleCmd(st, false),
			exportCmd(st),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// withState opens the shared state before running action.
func withState(st *appState, action cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := st.open(c.String("dir")); err != nil {
			return outputError(errors.NewStoreUnavailable("open", err))
		}
		return action(c)
	}
}

// recentCmd creates the recent command.
func recentCmd(st *appState) *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "Show the most recent captures, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum items (default from config, max 500)"},
			&cli.BoolFlag{Name: "plain", Usage: "Print content only, one item per line"},
		},
		Action: withState(st, func(c *cli.Context) error {
			limit := c.Int("limit")
			if limit == 0 {
				limit = st.cfg.RecentLimit
			}

			output, err := ops.Recent(c.Context, st.db, ops.RecentInput{Limit: limit})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("plain") {
				for _, it := range output.Items {
					fmt.Fprintln(c.App.Writer, it.Content)
				}
				return nil
			}
			return outputJSON(c, output)
		}),
	}
}

// statusCmd creates the status command.
func statusCmd(st *appState) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show whether capture is enabled and how much is stored",
		Action: withState(st, func(c *cli.Context) error {
			output, err := ops.Status(c.Context, st.db, st.prefs, nil)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// toggleCmd creates the enable or disable command.
func toggleCmd(st *appState, enabled bool) *cli.Command {
	name, usage := "enable", "Resume capturing on the next snapshot event"
	if !enabled {
		name, usage = "disable", "Pause capturing; events are ignored until re-enabled"
	}
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: withState(st, func(c *cli.Context) error {
			output, err := ops.Toggle(c.Context, st.prefs, enabled)
			if err != nil {
				return outputError(err)
			}
			if output.Enabled {
				fmt.Fprintln(c.App.ErrWriter, color.GreenString("capture enabled"))
			} else {
				fmt.Fprintln(c.App.ErrWriter, color.YellowString("capture disabled"))
			}
			return outputJSON(c, output)
		}),
	}
}

// exportCmd creates the export command.
func exportCmd(st *appState) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export all captures to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output .jsonl path, directly in <dir>/exports or allowed_paths (default <dir>/exports/captures-<timestamp>.jsonl)"},
		},
		Action: withState(st, func(c *cli.Context) error {
			output, err := ops.Export(c.Context, st.db, st.cfg, ops.ExportInput{
				Path:    c.String("path"),
				BaseDir: st.baseDir,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// Helper functions

// outputJSON marshals result to the app's writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	w := c.App.Writer
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if gErr, ok := err.(*errors.GleanError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", gErr.Code, gErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
