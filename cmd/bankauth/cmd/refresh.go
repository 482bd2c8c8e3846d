package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force a token refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, _, cleanup, err := buildClient(newLogger())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if err := engine.Hydrate(ctx); err != nil {
			return err
		}
		if err := engine.Refresh(ctx); err != nil {
			return err
		}
		fmt.Println("Session refreshed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
