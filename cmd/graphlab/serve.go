package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/graphlab"
	"github.com/aretw0/graphlab/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session server",
	Long: `Starts the HTTP and WebSocket session server. With --redis-addr, sessions are
checkpointed to redis and survive restarts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		srv, err := graphlab.NewServer(sigCtx, graphlab.Options{
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RedisDB:       cfg.RedisDB,
			RedisPrefix:   cfg.RedisPrefix,
			SessionTTL:    cfg.SessionTTL,
			LockTTL:       cfg.LockTTL,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		defer srv.Close()

		httpSrv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(sigCtx)

		if cfg.SweepSchedule != "" && cfg.SessionTTL > 0 {
			sweeper, err := srv.Sweeper(cfg.SweepSchedule)
			if err != nil {
				return err
			}
			sweeper.Start()
			g.Go(func() error {
				<-ctx.Done()
				<-sweeper.Stop().Done()
				return nil
			})
		}

		g.Go(func() error {
			logger.Info("starting graphlab server", "addr", httpSrv.Addr, "version", graphlab.Version)
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			logger.Info("shutting down", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return httpSrv.Close()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("graphlab server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "address to listen on")
	serveCmd.Flags().String("redis-addr", "", "redis address for checkpoints and step locks")
	serveCmd.Flags().Duration("session-ttl", 30*time.Minute, "idle time after which a session is removed")
}
