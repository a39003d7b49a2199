package cli

import (
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Run the demo quote provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Publish(cmd.Context())
	},
}
