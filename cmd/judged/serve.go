package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itstheanurag/codejudge/internal/server"
	"github.com/spf13/cobra"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the judge: queue consumer, workers, /health and /metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := server.New(conf, &logger)
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		// graceful shutdown
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-stop:
		case err := <-errCh:
			if err != nil {
				logger.Error().Err(err).Msg("server crashed")
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "time allowed for queued evaluations to finish")
	rootCmd.AddCommand(serveCmd)
}
