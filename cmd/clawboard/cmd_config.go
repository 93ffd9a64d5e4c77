package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/user/clawboard/internal/config"
)

func init() {
	configListCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print secret values instead of masking them")
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

var showSecrets bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the dashboard configuration",
	Long: `Inspect and edit the dashboard configuration file.

Keys use dot notation and map onto the JSON config, e.g. agent.model,
agent.url, budget_ceiling, listen, telegram.chat_id. Secret keys
(agent.api_key, telegram.token) are masked on output; environment
overrides such as CLAWBOARD_API_KEY are never written to the file.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configuration key and its value",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:     "get <key>",
	Short:   "Print one configuration value",
	Example: "  clawboard config get agent.model",
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write one configuration value",
	Example: `  clawboard config set agent.model claude-sonnet-4
  clawboard config set budget_ceiling 5.0
  clawboard config set telegram.chat_id 123456789`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func runConfigList(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	values, err := config.ListValues(cfg, !showSecrets)
	if err != nil {
		return fmt.Errorf("list config: %w", err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(os.Stdout, "%s = %v\n", k, values[k])
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	val, err := config.GetValue(cfgPath, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, val)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := config.SetValue(cfgPath, args[0], args[1]); err != nil {
		return err
	}
	display := args[1]
	if config.IsSecretKey(args[0]) {
		display = "***"
	}
	fmt.Fprintf(os.Stdout, "Set %s = %s\n", args[0], display)
	return nil
}
