package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hangar/internal/cli/config"
	"hangar/internal/cli/runner"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize the raw extract into typed tables",
	Long:  "Parse the raw registry extract, split it into the canonical tables, and write one Parquet file per table",
	Example: `  hangar normalize
  hangar normalize --snapshot 2026-08-16`,
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func newRunner() (*runner.Runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return runner.New(cfg, snapshot)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	r, err := newRunner()
	if err != nil {
		return err
	}

	fmt.Println(color.CyanString("Normalizing snapshot %s", r.Snapshot()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	result, err := r.Normalize(ctx)
	if err != nil {
		return err
	}

	fmt.Println(color.GreenString("Normalize complete: %d rows read, %d dropped",
		result.Stage.RowsRead, result.Stage.RowsDropped))
	return nil
}
