package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/controller"
	"github.com/tierforge/tierserve/lifecycle"
	"github.com/tierforge/tierserve/logger"
	"github.com/tierforge/tierserve/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bring up the process and block until interrupted",
	RunE:  runServe,
}

func runServe(*cobra.Command, []string) error {
	seq := lifecycle.New()
	if err := seq.Bootstrap(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- seq.Serve(func() {
			router.RegisterHealth("/"+config.App.AppInfo.Name+"/health", config.App.AppInfo.Name, map[string]controller.HealthDriver{})
			for _, register := range schemaRegistrars {
				register()
			}
		})
	}()

	select {
	case <-sigCh:
		logger.Lifecycle.Infow("signal received, shutting down")
	case err := <-serveErr:
		if err != nil {
			logger.Lifecycle.Errorw("serve exited with error", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.App.Server.ShutdownTimeout)
	defer cancel()
	return seq.Shutdown(ctx)
}
