package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/worldtree/am"
	"github.com/teranos/worldtree/heartbeat"
)

// ServerCmd manages the persisted sync server override
var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the persisted sync server override",
	Long: `Manage the sync server override stored in ~/.worldtree/am_from_ui.toml.

The override is what "Change sync server…" in the widget menu writes. A
running session watches the file and switches servers when it changes.

Examples:
  worldtree server get
  worldtree server set wss://sync.example.org
  worldtree server clear`,
}

var serverGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the stored override",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := overrideStore()
		server, ok := store.Get()
		if !ok {
			pterm.Info.Printfln("No override stored in %s", store.Path())
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), server)
		return nil
	},
}

var serverSetCmd = &cobra.Command{
	Use:   "set <ws-url>",
	Short: "Store a sync server override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := heartbeat.ValidateURL(args[0]); err != nil {
			return err
		}
		store := overrideStore()
		if err := store.Set(args[0]); err != nil {
			return fmt.Errorf("failed to store override: %w", err)
		}
		pterm.Success.Printfln("Sync server set to %s", args[0])
		return nil
	},
}

var serverClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored override",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := overrideStore().Clear(); err != nil {
			return fmt.Errorf("failed to clear override: %w", err)
		}
		pterm.Success.Println("Sync server override cleared")
		return nil
	},
}

var overridePath string

func init() {
	ServerCmd.PersistentFlags().StringVar(&overridePath, "file", "", "Override file (default ~/.worldtree/am_from_ui.toml)")

	ServerCmd.AddCommand(serverGetCmd)
	ServerCmd.AddCommand(serverSetCmd)
	ServerCmd.AddCommand(serverClearCmd)
}

func overrideStore() *am.ServerOverrideStore {
	return am.NewServerOverrideStore(overridePath)
}
