package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the banking API",
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

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Email: ")
		email, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		result, err := engine.Login(ctx, strings.TrimSpace(email), string(password))
		if err != nil {
			return err
		}

		if pending, ok := result.TwoFactorRequired(); ok {
			fmt.Printf("Two-factor verification required (expires %s)\n", pending.ExpiresAt.Local().Format("15:04:05"))
			fmt.Print("Code: ")
			code, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			sess, err := engine.VerifyTwoFactor(ctx, strings.TrimSpace(code))
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s\n", sess.User.Email)
			return nil
		}

		sess, _ := result.Authenticated()
		fmt.Printf("Logged in as %s\n", sess.User.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
