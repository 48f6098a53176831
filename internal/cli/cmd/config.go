package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hangar/internal/cli/config"
	"hangar/internal/cli/runner"
	"hangar/internal/extract"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration and snapshot inspection commands",
}

// showCmd prints the effective configuration after file, environment, and
// flag resolution.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

// checkCmd verifies that the selected raw snapshot is complete and untampered
// before any pipeline stage runs against it.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the raw snapshot against its source manifest",
	Example: `  hangar config check
  hangar config check --snapshot 2026-08-16`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		r, err := runner.New(cfg, snapshot)
		if err != nil {
			return err
		}

		rawDir := cfg.RawDir(r.Snapshot())
		if _, err := os.Stat(rawDir); err != nil {
			return fmt.Errorf("raw snapshot directory does not exist: %s", rawDir)
		}

		m, err := extract.LoadSourceManifest(rawDir)
		if err != nil {
			return err
		}

		failed := 0
		for i := range m.Files {
			f := &m.Files[i]
			if err := f.Verify(rawDir); err != nil {
				color.Red("❌ %s: %v", f.Name, err)
				failed++
				continue
			}
			color.Green("✅ %s (%d bytes)", f.Name, f.Size)
		}
		if failed > 0 {
			return fmt.Errorf("%d source file(s) failed verification", failed)
		}
		fmt.Println(color.GreenString("Snapshot %s verified", m.SnapshotDate))
		return nil
	},
}

func init() {
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
}
