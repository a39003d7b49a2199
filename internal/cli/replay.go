package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"forex-arb/internal/app"
)

var replayCapture string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run one detection pass over a captured quote dump",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayCapture == "" {
			return errors.New("--capture is required")
		}

		opts := app.ReplayOptions{
			CapturePath: replayCapture,
		}

		return getApp().Replay(cmd.Context(), opts)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayCapture, "capture", "", "Path to a raw binary quote capture")
}
