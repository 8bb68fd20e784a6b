package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PDelos/CineBus-AP2/model"
	"github.com/PDelos/CineBus-AP2/server"
)

// How often the manager is asked whether the graph is due for a
// refresh.
const refreshCheckInterval = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves routing and screening search over HTTP",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

var allowedOrigins []string

func init() {
	serveCmd.Flags().StringSliceVarP(&allowedOrigins, "allow-origin", "", []string{}, "CORS allowed origin")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dl, err := newDownloader()
	if err != nil {
		return err
	}
	m, err := newManager(dl)
	if err != nil {
		return err
	}

	if _, err := m.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("initial graph build failed")
	}

	go func() {
		ticker := time.NewTicker(refreshCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Refresh(ctx); err != nil {
					log.Error().Err(err).Msg("refreshing graph")
				}
			}
		}
	}()

	s := server.New(m, func(ctx context.Context) ([]model.Event, error) {
		return loadScreenings(ctx, dl)
	})
	s.Workers = cfg.Workers
	s.AllowedOrigins = allowedOrigins

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutting down")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("serving")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
