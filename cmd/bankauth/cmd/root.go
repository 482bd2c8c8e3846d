package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL  string
	dataDir string
	useBolt bool
)

var rootCmd = &cobra.Command{
	Use:   "bankauth",
	Short: "bankauth is the session client for the banking API",
	Long: `bankauth manages the client-side session lifecycle for the banking
API: login, two-factor step-up, silent token refresh, and logout. It can
also serve the browser-facing edge with route guarding.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "https://localhost:8443/api/v1", "backend API base URL")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "session storage directory (default ~/.bankauth)")
	rootCmd.PersistentFlags().BoolVar(&useBolt, "bolt", false, "persist the session in a bbolt database instead of a JSON file")
}
