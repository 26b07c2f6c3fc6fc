package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/worldtree/am"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage worldtree configuration",
	Long: `am — Manage worldtree configuration ("I am")

Display and validate worldtree configuration settings.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (WORLDTREE_* prefix, WORLD_TREE_* page globals)
3. Project config (./am.toml, searched up from the working directory)
4. User config (~/.worldtree/am.toml)
5. System config (/etc/worldtree/am.toml)
6. Default values

Examples:
  worldtree am show                    # Show current configuration
  worldtree am show --format json      # Show configuration in JSON format
  worldtree am get heartbeat.pulse_ms  # Get specific config value
  worldtree am validate                # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current worldtree configuration from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., widget.server, ui.fps)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the current worldtree configuration is valid",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	out := cmd.OutOrStdout()

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(out, "# worldtree configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Fprintf(out, "# worldtree configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v := am.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  1. [DEFAULT]  Built-in defaults")
	fmt.Fprintln(out, "  2. [SYSTEM]   /etc/worldtree/am.toml")
	fmt.Fprintln(out, "  3. [USER]     ~/.worldtree/am.toml")
	fmt.Fprintln(out, "  4. [PROJECT]  ./am.toml (searches up directories)")
	fmt.Fprintln(out, "  5. [ENV]      WORLDTREE_* and WORLD_TREE_* environment variables")
	fmt.Fprintln(out)

	paths := am.ConfigPaths()
	if len(paths) == 0 {
		fmt.Fprintln(out, "No config files found; using defaults and environment")
	} else {
		fmt.Fprintln(out, "Merged files:")
		for _, p := range paths {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}

	store := am.NewServerOverrideStore("")
	if server, ok := store.Get(); ok {
		fmt.Fprintf(out, "\nSync server override: %s (%s)\n", server, store.Path())
	}
	return nil
}
