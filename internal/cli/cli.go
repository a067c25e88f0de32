// Package cli implements the partctl commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/partmanager/internal/app"
	"github.com/matthewbaird/partmanager/internal/config"
)

// Loader returns the configuration the commands run against.
type Loader func() (config.Config, error)

// NewRootCmd builds the partctl command tree.
func NewRootCmd(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "partctl",
		Short:         "Manage buildings, tenants and payments from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		ListCmd(load),
		ImportCmd(load),
		ExportCmd(load),
		MetricsCmd(load),
		RentCmd(load),
		SplitCmd(load),
		MigrateCmd(load),
	)
	return root
}

// withApp opens the portfolio for one command and tears it down after fn,
// draining any queued events.
func withApp(ctx context.Context, load Loader, fn func(a *app.App) error) error {
	cfg, err := load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := cfg.Logger(os.Stderr)
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	a.Start(ctx)
	defer a.Stop()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
