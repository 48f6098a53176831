package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish normalized tables to the query stores",
	Long:  "Load the typed tables into a fresh DuckDB generation and SQLite full-text index, then atomically swap the current pointer",
	Example: `  hangar publish
  hangar publish --snapshot 2026-08-16`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	r, err := newRunner()
	if err != nil {
		return err
	}

	fmt.Println(color.CyanString("Publishing snapshot %s", r.Snapshot()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := r.Publish(ctx); err != nil {
		return err
	}

	fmt.Println(color.GreenString("Publish complete"))
	return nil
}
