package commands

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/worldtree/am"
	"github.com/teranos/worldtree/automerge"
	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/endpoint"
	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/logger"
)

// CommentsCmd runs one operation against a shared comment list
var CommentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Read and edit the shared comment list",
	Long: `Read and edit the shared comment list of a document.

The sync server is resolved the way a widget resolves it: the stored
override first, then --server and the configuration, then the default.

Examples:
  worldtree comments list --doc-id abc123
  worldtree comments add --doc-id abc123 "looks good"
  worldtree comments edit --doc-id abc123 <id> "looks great"
  worldtree comments rm --doc-id abc123 <id>`,
}

var commentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the comment list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(b *crdt.Bridge) error {
			if commentsJSON {
				data, err := json.MarshalIndent(b.Comments(), "", "  ")
				if err != nil {
					return errors.Wrap(err, "failed to marshal comments")
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printComments(b.Comments())
			return nil
		})
	},
}

var commentsAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Append a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(b *crdt.Bridge) error {
			id, err := b.Add(crdt.Record{"text": args[0], "ts": time.Now().UnixMilli()})
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Added %s", id)
			return nil
		})
	},
}

var commentsEditCmd = &cobra.Command{
	Use:   "edit <id> <text>",
	Short: "Replace the text of a comment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(b *crdt.Bridge) error {
			if crdt.IndexOf(b.Comments(), args[0]) < 0 {
				return errors.NewInvalidRequestError("no comment with id %s", args[0])
			}
			if err := b.Edit(args[0], crdt.Record{"text": args[1]}); err != nil {
				return err
			}
			pterm.Success.Printfln("Edited %s", args[0])
			return nil
		})
	},
}

var commentsRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove a comment",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(b *crdt.Bridge) error {
			if crdt.IndexOf(b.Comments(), args[0]) < 0 {
				return errors.NewInvalidRequestError("no comment with id %s", args[0])
			}
			if err := b.Remove(args[0]); err != nil {
				return err
			}
			pterm.Success.Printfln("Removed %s", args[0])
			return nil
		})
	},
}

var (
	commentsFlags widgetFlags
	commentsWait  time.Duration
	commentsFlush time.Duration
	commentsJSON  bool
)

func init() {
	commentsFlags.register(CommentsCmd.PersistentFlags())
	CommentsCmd.PersistentFlags().DurationVar(&commentsWait, "wait", 3*time.Second, "How long to wait for the server's copy")
	CommentsCmd.PersistentFlags().DurationVar(&commentsFlush, "flush", 500*time.Millisecond, "How long to keep syncing after a change")
	commentsListCmd.Flags().BoolVarP(&commentsJSON, "json", "j", false, "Output comments as JSON")

	CommentsCmd.AddCommand(commentsListCmd)
	CommentsCmd.AddCommand(commentsAddCmd)
	CommentsCmd.AddCommand(commentsEditCmd)
	CommentsCmd.AddCommand(commentsRmCmd)
}

// withBridge installs the document, waits for the first remote state and
// runs fn. Changes get commentsFlush to reach the server before the
// runtime is closed.
func withBridge(cmd *cobra.Command, fn func(*crdt.Bridge) error) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	scfg := commentsFlags.sessionConfig(cmd, cfg)
	opts := endpoint.ResolveOptions(scfg.Attributes, scfg.Globals)
	if opts.DocID == "" {
		return errors.NewInvalidRequestError("--doc-id is required")
	}
	server := endpoint.ResolveServer(endpoint.ServerInputs(scfg.Attributes, scfg.Globals, scfg.ScriptSrc, scfg.PageURL))
	log := logger.ComponentLogger("comments")

	synced := make(chan struct{}, 1)
	var sets atomic.Int32
	b := crdt.NewBridge(crdt.BridgeConfig{
		Constructors: automerge.Constructors(automerge.Options{
			ReconnectDelay:   cfg.ReconnectDelay(),
			HandshakeTimeout: cfg.HandshakeTimeout(),
			Logger:           log,
		}),
		DefaultServer: server,
		Overrides:     am.NewServerOverrideStore(""),
		Key:           opts.CRDTKey,
		Callbacks: crdt.Callbacks{
			// The first set is the local replica at install time
			OnRemoteSet: func([]crdt.Record) {
				if sets.Add(1) > 1 {
					select {
					case synced <- struct{}{}:
					default:
					}
				}
			},
		},
		Logger: log,
	})
	defer b.Close()

	if err := b.Start(opts.DocID); err != nil {
		return err
	}
	pterm.Debug.Printfln("Syncing %s via %s", b.DocURL(), b.SyncServer())

	select {
	case <-synced:
	case <-time.After(commentsWait):
		pterm.Warning.Printfln("No data from %s within %s; using the local copy", b.SyncServer(), commentsWait)
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}

	if err := fn(b); err != nil {
		return err
	}
	if cmd.Name() != "list" {
		time.Sleep(commentsFlush)
	}
	return nil
}
