package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kchatbot",
	Short: "kchatbot is a bot backend adapter for the kChat platform",
	Long: `kchatbot connects a chat-bot framework to kChat's real-time
messaging API. It maintains the persistent event stream connection,
normalizes inbound events into framework callbacks, and translates
framework send requests into kChat API calls.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}
