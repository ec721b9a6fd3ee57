package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"legal-rag/internal/app"
	"legal-rag/internal/config"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the legal advice HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gin.SetMode(cfg.Server.Mode)

			ctx, stop := signalContext()
			defer stop()

			a, err := app.Bootstrap(ctx, cfg)
			if err != nil {
				log.Error().Err(err).Msg("Error bootstrapping service")
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           a.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.Server.Addr).Msg("Listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("Server stopped")
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
