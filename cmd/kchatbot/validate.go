package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Infomaniak/err-backend-kchat/internal/config"
)

var validateConfigFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long:  "Load the configuration file, expand environment variables and check it for errors without connecting",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(validateConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration OK\n")
		fmt.Printf("  Server:    %s\n", cfg.Identity.Server)
		fmt.Printf("  Team:      %s\n", cfg.Identity.Team)
		fmt.Printf("  Websocket: %s\n", cfg.Identity.WebsocketURL)
		if cfg.Identity.Token != "" {
			fmt.Printf("  Token:     %s\n", config.MaskSecret(cfg.Identity.Token))
		}
		fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "config", "c", "config.yaml", "Configuration file path")
}
