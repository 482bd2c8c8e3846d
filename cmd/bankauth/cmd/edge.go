package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/chinkauchenna2021/bankauth/auth"
	"github.com/chinkauchenna2021/bankauth/edge"
)

var (
	edgeAddr string
)

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Serve the browser-facing edge with route guarding",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		// The edge's expired-notice latch has to exist before the engine
		// so the callback can be registered at construction.
		var e *edge.Edge
		engine, tokens, _, cleanup, err := buildClient(logger,
			auth.WithOnSessionExpired(func() { e.NotifySessionExpired() }))
		if err != nil {
			return err
		}
		defer cleanup()
		e = edge.New(engine, tokens, edge.WithLogger(logger))

		// Hydrate before serving: the first guard decision must not see
		// an un-hydrated store.
		if err := engine.Hydrate(cmd.Context()); err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/", e.Router())

		srv := &http.Server{
			Addr:              edgeAddr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Printf("edge listening on %s\n", edgeAddr)
			errCh <- srv.ListenAndServe()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-stop:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	edgeCmd.Flags().StringVar(&edgeAddr, "addr", "127.0.0.1:8080", "listen address")
	rootCmd.AddCommand(edgeCmd)
}
