package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"relay-agent/src/broker"
	"relay-agent/src/config"
	"relay-agent/src/deploy"
	"relay-agent/src/logger"
	"relay-agent/src/pipeline"
	"relay-agent/src/runner"
	"relay-agent/src/status"
	"relay-agent/src/store"
	"relay-agent/src/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook listener",
	Long: `Serve binds the webhook listener and handles push and pull-request
notifications until interrupted. In local mode builds run inline; with
RELAY_REDPANDA_BROKERS set, build requests are published for build agents.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	log := logger.NewConsoleLogger()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var events webhook.Events
	if cfg.Distributed() {
		brk, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
		if err != nil {
			return fmt.Errorf("failed to connect to Redpanda: %w", err)
		}
		defer brk.Close()
		events = webhook.NewPublisher(brk, cfg.DeployRefSet(), log)
		log.Info("distributed mode: publishing build requests to %v", cfg.RedpandaBrokers)
	} else {
		events = webhook.InlineEvents{Gate: buildGate(cfg, st, log)}
		log.Info("local mode: builds run inline")
	}

	dispatcher := webhook.NewDispatcher(cfg.WebhookSecret, events, log)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: dispatcher.Handler(cfg.WebhookPath),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s%s", cfg.ListenAddr, cfg.WebhookPath)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		// Startup failures, a taken port included, are fatal.
		return fmt.Errorf("listener failed: %w", err)
	case sig := <-sigCh:
		log.Info("received %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// openStore picks the build-history store: Postgres when a DSN is
// configured, otherwise in-memory.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.PostgresDSN == "" {
		return store.NewInMemoryStore(), nil
	}
	st, err := store.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return st, nil
}

// buildGate assembles the inline build path: reporter, runner, pipeline,
// and the ref-gated deploy hook.
func buildGate(cfg *config.Config, st store.Store, log logger.Logger) *deploy.Gate {
	rep := status.NewGitHubReporter(cfg.GitHubToken)
	run := runner.NewGitRunner(cfg.InstallCommand, cfg.TestCommand, cfg.BuildTimeout, log)
	run.Secrets = []string{cfg.GitHubToken, cfg.WebhookSecret}
	pipe := pipeline.New(rep, run, st, cfg.WorkRoot, log)
	dep := deploy.NewLogDeployer(log)
	return deploy.NewGate(cfg.DeployRefs, pipe, dep, cfg.LogDir, log)
}
