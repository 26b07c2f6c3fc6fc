package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/worldtree/cmd/worldtree/commands"
	"github.com/teranos/worldtree/logger"
)

var rootCmd = &cobra.Command{
	Use:   "worldtree",
	Short: "worldtree - presence orb and shared comments agent",
	Long: `worldtree - presence orb and shared comments agent.

worldtree hosts the WorldTree seed widget headlessly: it keeps the heartbeat
channel to the WorldTree server open, shows who else is around, and syncs a
shared comment list through an Automerge sync server.

Available commands:
  run       - Host a widget session in this terminal
  comments  - Read and edit the shared comment list
  server    - Manage the persisted sync server override
  serve     - Run a relay sync server
  am        - Manage worldtree configuration ("I am")
  version   - Show version information

Examples:
  worldtree run --doc-id abc123           # Host a session with comments
  worldtree comments list --doc-id abc123 # Print the comment list
  worldtree server set wss://sync.example # Persist a sync server override
  worldtree serve --addr :3030            # Run a local relay`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 'am show' output is meant to be piped; keep it free of log lines
		if cmd.Name() == "show" {
			return nil
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	// Add commands
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.CommentsCmd)
	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
