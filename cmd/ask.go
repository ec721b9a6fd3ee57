package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"legal-rag/internal/app"
	"legal-rag/internal/config"
)

func newAskCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and stream the answer to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			a, err := app.Bootstrap(ctx, cfg, app.WithoutMetrics())
			if err != nil {
				log.Error().Err(err).Msg("Error bootstrapping pipeline")
				return err
			}
			defer a.Close()

			question := strings.Join(args, " ")
			stream, err := a.Pipeline.Answer(ctx, question)
			if err != nil {
				log.Error().Err(err).Msg("Error querying")
				return err
			}
			defer stream.Close()

			out := cmd.OutOrStdout()
			for {
				frag, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					fmt.Fprintln(out)
					return nil
				}
				if err != nil {
					fmt.Fprintln(out)
					log.Error().Err(err).Msg("Answer stream failed")
					return err
				}
				fmt.Fprint(out, frag)
			}
		},
	}
}
