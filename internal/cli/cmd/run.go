package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: normalize, then publish",
	Example: `  hangar run
  hangar run --snapshot 2026-08-16`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	r, err := newRunner()
	if err != nil {
		return err
	}

	fmt.Println(color.CyanString("Running pipeline for snapshot %s", r.Snapshot()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	fmt.Println(color.GreenString("Pipeline completed successfully"))
	return nil
}
