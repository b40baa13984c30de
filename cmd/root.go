package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tirecheck/config"
	"tirecheck/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tirecheck",
	Short: "Tire health assessment service",
	Long: `tirecheck turns tire recognition output (tread depth samples, sidewall
text, defect detections) into a health score, a prioritized service plan and
an action level, and manages 3D model generation for analyzed tires.

  tirecheck serve     Start the HTTP API with model job polling
  tirecheck assess    Assess one recognition result offline`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logging.Init(cfg.ServiceName, cfg.Env)
		return nil
	},
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.AddCommand(serveCmd, assessCmd)
}
