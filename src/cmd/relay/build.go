package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"relay-agent/src/config"
	"relay-agent/src/contracts"
	"relay-agent/src/logger"
	"relay-agent/src/pipeline"
	"relay-agent/src/runner"
	"relay-agent/src/status"
)

var (
	buildRef         string
	buildStatusesURL string
)

var buildCmd = &cobra.Command{
	Use:   "build <clone-url> <sha>",
	Short: "Run a single build inline and print the result",
	Long: `Build clones the repository, checks out the commit's working copy,
runs the install and test commands, and reports status when a statuses
URL is given. Output streams to stdout. Useful for trying a build
without going through the webhook.`,
	Args: cobra.ExactArgs(2),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildRef, "ref", "", "ref the commit was pushed to")
	buildCmd.Flags().StringVar(&buildStatusesURL, "statuses-url", "", "commit status API URL template; omit to skip reporting")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	log := logger.NewConsoleLogger()

	var rep status.Reporter = noopReporter{}
	if buildStatusesURL != "" {
		rep = status.NewGitHubReporter(cfg.GitHubToken)
	}

	run := runner.NewGitRunner(cfg.InstallCommand, cfg.TestCommand, cfg.BuildTimeout, log)
	run.Secrets = []string{cfg.GitHubToken, cfg.WebhookSecret}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	pipe := pipeline.New(rep, run, st, cfg.WorkRoot, log)
	target := contracts.NewCommitTarget(args[0], args[1], buildRef, buildStatusesURL)

	final, code, err := pipe.Execute(cmd.Context(), target, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s: %s (exit %d)\n", final.State, final.Description, code)
	if final.State != contracts.StateSuccess {
		return fmt.Errorf("build of %s did not succeed", args[1])
	}
	return nil
}

// noopReporter drops status updates for one-off builds without a statuses URL.
type noopReporter struct{}

func (noopReporter) Report(ctx context.Context, target contracts.BuildTarget, st contracts.BuildStatus) error {
	return nil
}
