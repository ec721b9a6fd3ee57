package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"legal-rag/internal/config"
)

const configFilePath = config.DefaultPath

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
	zerolog.DefaultContextLogger = &log.Logger

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "legal-rag",
		Short:         "Answer Egyptian law questions from retrieved statutory articles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", configFilePath, "Path to the YAML config file")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("Error loading config")
			return nil, err
		}
		setupLogger(&cfg.Log)
		return cfg, nil
	}

	root.AddCommand(newServeCmd(loadConfig), newAskCmd(loadConfig))
	return root
}

// setupLogger applies the configured level and format to the global logger.
func setupLogger(lc *config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", lc.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if lc.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
