package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/context-store/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the context store REST API",
	Long:  `Starts the ctxstore HTTP server exposing the /api/contexts REST API plus /healthz and /readyz probes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, svc, log, closeBackend, err := openService(false)
		if err != nil {
			return err
		}
		defer closeBackend()

		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		srv := server.New(cfg.Server, svc, log)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("server shutdown")
			}
		}()

		log.WithFields(logrus.Fields{
			"version": Version,
			"port":    cfg.Server.Port,
			"backend": cfg.Storage.Backend,
		}).Info("ctxstore server starting")

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
