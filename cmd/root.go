package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calassist application
var rootCmd = &cobra.Command{
	Use:   "calassist",
	Short: "Manage your Google Calendar by chatting with an LLM",
	Long: `calassist is a calendar assistant. Tell it what you need in plain language
and it creates, lists, updates and deletes Google Calendar events for you.

It can run as:
  - An interactive chat in the terminal (default)
  - An HTTP chat API
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calassist version %s\n" .Version}}`)

	// If no subcommand is provided, start the interactive chat
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "chat")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("account", "default", "Google account name. Can also use CALASSIST_ACCOUNT env var.")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newCalendarsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
