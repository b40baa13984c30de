package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tirecheck/decoder"
	"tirecheck/engine"
)

var (
	assessInput string
	assessNow   string
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess one recognition result and print the analysis",
	Long: `Reads a recognition result (JSON, "-" for stdin) and prints the resulting
analysis. Nothing is stored.

  tirecheck assess --input recognition.json
  tirecheck assess --input - --now 2026-01-01T00:00:00Z < recognition.json`,
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().StringVarP(&assessInput, "input", "i", "-", "recognition JSON file")
	assessCmd.Flags().StringVar(&assessNow, "now", "", "evaluation time (RFC3339), defaults to the current time")
}

func runAssess(cmd *cobra.Command, args []string) error {
	var opts []engine.Option
	if assessNow != "" {
		now, err := time.Parse(time.RFC3339, assessNow)
		if err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
		opts = append(opts, engine.WithClock(func() time.Time { return now }))
	}

	var r io.Reader = cmd.InOrStdin()
	if assessInput != "-" {
		f, err := os.Open(assessInput)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var rec decoder.Recognition
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return fmt.Errorf("decoding recognition: %w", err)
	}

	analysis := engine.New(opts...).AssessRecognition(rec)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}
