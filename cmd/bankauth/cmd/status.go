package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session state",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, tokens, _, cleanup, err := buildClient(newLogger())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if err := engine.Hydrate(ctx); err != nil {
			return err
		}

		snap := tokens.Read()
		if !snap.IsAuthenticated {
			fmt.Println("Not logged in")
			return nil
		}

		// Re-fetch the profile so the snapshot reflects server truth.
		user, err := engine.RefreshProfile(ctx)
		if err != nil {
			user = snap.User
		}
		fmt.Printf("Logged in as %s (%s)\n", user.Email, user.AccountNumber)
		if user.IsAdmin {
			fmt.Println("Role: administrator")
		}
		fmt.Printf("Balance: %s %s\n", user.Balance, user.Currency)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
