package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"dealbrief-backend/internal/bootstrap"
	"dealbrief-backend/internal/shared/config"
	"dealbrief-backend/internal/shared/telemetry"
)

// cli carries state shared by subcommands once the root pre-run has loaded
// configuration.
type cli struct {
	cfg      config.Config
	buildApp func(ctx context.Context, cfg config.Config) (*bootstrap.App, error)
}

func newRootCmd() *cobra.Command {
	c := &cli{buildApp: bootstrap.Build}

	root := &cobra.Command{
		Use:           "briefctl",
		Short:         "Generate and inspect deal briefs",
		Long:          "Submits deal descriptions to the brief pipeline and reads stored deals from the configured record store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return eris.Wrap(err, "load config")
			}
			c.cfg = cfg
			if err := telemetry.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
				return eris.Wrap(err, "init logger")
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			telemetry.Sync()
		},
	}

	root.AddCommand(
		newCreateCmd(c),
		newGetCmd(c),
		newListCmd(c),
		newMigrateCmd(c),
		newPromptCmd(c),
	)
	return root
}

func (c *cli) withApp(cmd *cobra.Command, fn func(app *bootstrap.App) error) error {
	app, err := c.buildApp(cmd.Context(), c.cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
