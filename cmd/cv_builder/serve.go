package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-builder/internal/server"
	"github.com/jonathan/cv-builder/internal/server/ratelimit"
	"github.com/jonathan/cv-builder/internal/types"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long: `Start an HTTP server with the browser chat page, the WebSocket chat endpoint
and the REST session API. Generated documents are served under /static.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	logger := newLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var turnTimeout time.Duration
	if cfg.SemanticValidation {
		// Every judge attempt may run to its deadline.
		turnTimeout = 3*cfg.JudgeTimeoutDuration() + 30*time.Second
	}

	srv := server.New(a.controller, server.Config{
		Port:            cfg.Port,
		StaticDir:       cfg.OutputDir,
		DefaultLanguage: types.Language(cfg.DefaultLanguage),
		RateLimit:       ratelimit.LoadConfig(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Gatherer:        a.gatherer,
		Logger:          logger,
		TurnTimeout:     turnTimeout,
	})
	defer srv.Close()

	return srv.Start(ctx)
}
