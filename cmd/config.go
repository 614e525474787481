package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Prints the configuration after defaults, the config file, MERMINWALK_*
environment variables and flags have been applied. The output is a valid
config file.`,
	RunE: runShowConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(showConfigCmd)
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	data, err := appConfig.YAML()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if used := configLoader.Used(); used != "" {
		fmt.Printf("# loaded from %s\n", used)
	}
	fmt.Print(string(data))
	return nil
}
