package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the local session and revoke it server-side",
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
		engine.Logout(ctx)
		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
