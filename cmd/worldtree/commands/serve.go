package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/worldtree/automerge"
	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/logger"
)

// ServeCmd runs a relay sync server
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a relay sync server",
	Long: `Run an Automerge relay sync server.

The relay keeps an in-memory replica of every document a client syncs and
forwards changes between connected clients. Point widgets at it with
--server ws://<addr> or "worldtree server set".`,
	RunE: runServe,
}

var serveAddr string

func init() {
	ServeCmd.Flags().StringVar(&serveAddr, "addr", ":3030", "Listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	relay := automerge.NewSyncHandler(logger.ComponentLogger("relay"))

	mux := http.NewServeMux()
	mux.Handle("/", relay)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()
	pterm.Success.Printfln("Relay listening on %s", serveAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return errors.Wrap(err, "relay failed to start")
	case <-sigChan:
		pterm.Info.Println("Shutting down relay...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "relay shutdown")
	}
	_ = relay.Repo().Close()
	pterm.Success.Println("Relay stopped cleanly")
	return nil
}
