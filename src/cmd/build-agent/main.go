// Package main provides the standalone build agent binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"relay-agent/src/agent"
	"relay-agent/src/broker"
	"relay-agent/src/config"
	"relay-agent/src/deploy"
	"relay-agent/src/logger"
	"relay-agent/src/pipeline"
	"relay-agent/src/runner"
	"relay-agent/src/status"
	"relay-agent/src/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Verify we're in distributed mode
	if !cfg.Distributed() {
		fmt.Fprintln(os.Stderr, "ERROR: RELAY_REDPANDA_BROKERS environment variable is required for the build agent")
		fmt.Fprintln(os.Stderr, "Example: export RELAY_REDPANDA_BROKERS=localhost:19092")
		os.Exit(1)
	}

	// Create logger
	log := logger.NewConsoleLogger()

	log.Info("Starting Relay Build Agent")
	log.Info("Redpanda brokers: %v", cfg.RedpandaBrokers)

	// Create Redpanda broker
	brk, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create broker: %v\n", err)
		os.Exit(1)
	}
	defer brk.Close()

	// Open the build-history store
	var st store.Store
	if cfg.PostgresDSN != "" {
		st, err = store.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to Postgres: %v\n", err)
			os.Exit(1)
		}
	} else {
		log.Info("No RELAY_POSTGRES_DSN set, build history is kept in memory only")
		st = store.NewInMemoryStore()
	}
	defer st.Close()

	// Assemble the build path: reporter, runner, pipeline, deploy gate
	rep := status.NewGitHubReporter(cfg.GitHubToken)
	run := runner.NewGitRunner(cfg.InstallCommand, cfg.TestCommand, cfg.BuildTimeout, log)
	run.Secrets = []string{cfg.GitHubToken, cfg.WebhookSecret}
	pipe := pipeline.New(rep, run, st, cfg.WorkRoot, log)
	gate := deploy.NewGate(cfg.DeployRefs, pipe, deploy.NewLogDeployer(log), cfg.LogDir, log)

	// Create build agent
	a := agent.NewBuildAgent(brk, gate, log)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutdown signal received, stopping agent...")
		cancel()
	}()

	// Run agent
	log.Info("Build agent started, waiting for requests...")
	if err := a.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Agent error: %v\n", err)
		os.Exit(1)
	}

	log.Info("Build agent stopped")
}
