package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matsen/citeas/internal/config"
)

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
	Long: `Inspect configuration.

Values come from the config file, then environment overrides:
  GITHUB_TOKENS     comma separated login:token list
  CITEAS_ADDR       listen address
  PORT              listen port, when CITEAS_ADDR is unset
  CITEAS_CACHE_DB   sqlite path for the persisted response cache`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration, with tokens redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			exitWithError(ExitConfigError, "loading config: %v", err)
		}
		red := cfg.Redacted()
		if !humanOutput {
			return outputJSON(red)
		}
		data, err := yaml.Marshal(red)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		outputHuman("%s", data)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := config.GlobalConfigPath()
		if configFile != "" {
			path = config.ExpandPath(configFile)
		}
		if humanOutput {
			outputHuman("%s\n\n%s\n", path, config.HelpfulConfigMessage())
			return
		}
		outputJSON(map[string]string{"path": path})
	},
}
