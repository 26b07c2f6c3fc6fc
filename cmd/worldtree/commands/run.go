package commands

import (
	"bufio"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/worldtree/am"
	"github.com/teranos/worldtree/automerge"
	"github.com/teranos/worldtree/bootstrap"
	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/heartbeat"
	"github.com/teranos/worldtree/logger"
	"github.com/teranos/worldtree/session"
)

// RunCmd hosts one widget session in the terminal
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Host a widget session in this terminal",
	Long: `Host a widget session until interrupted.

Flags mirror the data-* attributes of the embedding element; anything not
given falls back to the widget section of the configuration and then to
the built-in defaults. Type "help" for the commands that drive the widget.

Examples:
  worldtree run
  worldtree run --server wss://worldtree.online --doc-id abc123
  worldtree run --follow --allow-server-switch`,
	RunE: runRun,
}

var (
	runFlags          widgetFlags
	runProvideRuntime bool
)

func init() {
	runFlags.register(RunCmd.Flags())
	RunCmd.Flags().BoolVar(&runProvideRuntime, "provide-runtime", false, "Hand the built-in CRDT runtime to the session instead of resolving module sources")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.ComponentLogger("session")

	verbosity, _ := cmd.Flags().GetCount("verbose")
	if logger.ShouldLogTrace(verbosity) {
		// Per-ping and CRDT status lines
		pterm.EnableDebugMessages()
	}
	log.Infow("Starting session", "verbosity", logger.LevelName(verbosity))

	store := am.NewServerOverrideStore("")
	watcher, err := am.NewConfigWatcher(store)
	if err != nil {
		// Hot reload is optional; the override is still read on start
		log.Warnw("Override watcher unavailable", logger.FieldError, err)
		watcher = nil
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lines := readLines(cmd.InOrStdin())
	con := newConsole(lines, ctx.Done())

	var provider bootstrap.Provider
	if runProvideRuntime {
		provider = automerge.Provider(automerge.Options{
			ReconnectDelay:   cfg.ReconnectDelay(),
			HandshakeTimeout: cfg.HandshakeTimeout(),
			Logger:           logger.ComponentLogger("automerge"),
		})
	}
	sess := session.New(runFlags.sessionConfig(cmd, cfg), session.Deps{
		Provider:  provider,
		Host:      con,
		Overrides: store,
		Watcher:   watcher,
		Observer:  statusPrinter{},
		OnStatus: func(s crdt.Status) {
			pterm.Debug.Printfln("crdt %s", s)
		},
		Logger: log,
	})
	con.ctl = sess

	if err := sess.Init(ctx); err != nil {
		return err
	}
	defer sess.Destroy()

	ep := sess.Endpoint()
	pterm.Info.Printfln("Heartbeat server: %s", ep.WSURL)
	pterm.Info.Printfln("REST base: %s", ep.RestBase)

	go func() {
		select {
		case <-sess.Ready():
			if err := sess.Err(); err != nil {
				pterm.Warning.Printfln("Comments unavailable: %v", err)
				return
			}
			pterm.Success.Printfln("Comments ready on %s", sess.SyncServer())
		case <-ctx.Done():
		}
	}()

	pterm.Println(`Type "help" for commands.`)
	for {
		select {
		case <-ctx.Done():
			pterm.Info.Println("Shutting down...")
			return nil
		case line, ok := <-lines:
			if !ok || con.dispatch(line) {
				return nil
			}
		}
	}
}

// readLines feeds r line by line until EOF
func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			out <- scanner.Text()
		}
	}()
	return out
}

// statusPrinter reports heartbeat changes on the terminal
type statusPrinter struct {
	heartbeat.NopObserver
}

func (statusPrinter) OnState(s heartbeat.State, label string) {
	switch s {
	case heartbeat.StateConnected:
		pterm.Success.Printfln("Heartbeat %s", label)
	case heartbeat.StateDisconnected, heartbeat.StateError:
		pterm.Warning.Printfln("Heartbeat %s", label)
	default:
		pterm.Info.Printfln("Heartbeat %s", label)
	}
}

func (statusPrinter) OnPing(s heartbeat.Sample) {
	pterm.Debug.Printfln("ping at %s · users %d · energy %s", s.Time, s.Users, heartbeat.FormatEnergy(s.Energy))
}
