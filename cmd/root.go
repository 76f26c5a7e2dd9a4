package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "meetsync",
	Short: "Connects meeting notes to third-party tools over OAuth",
	Long: `meetsync runs the integration API of the meeting assistant.

It handles the OAuth connect flow for Slack, Notion, HubSpot, Linear,
Monday, Salesforce, Attio and Google, keeps the stored tokens fresh and
dispatches meeting notes to the automations a user has set up.`,
	SilenceUsage: true,
}

var version = "dev"

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meetsync version %s\n" .Version}}`)

	// Serve by default.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
}
