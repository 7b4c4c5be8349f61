// Package runner materializes a working copy and executes the build-and-test
// procedure, capturing the test command's exit code and combined output.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"relay-agent/src/contracts"
	"relay-agent/src/logger"
	"relay-agent/src/sanitize"
)

// Stage-distinct failures. All of them still surface to callers as a
// non-zero exit code in the BuildResult.
var (
	ErrClone   = errors.New("clone failed")
	ErrPull    = errors.New("pull failed")
	ErrInstall = errors.New("dependency install failed")
)

// reportFile is the JUnit report the test command may leave in the checkout.
const reportFile = "report.xml"

// Runner executes one build attempt for a clone URL in a working directory.
type Runner interface {
	Run(ctx context.Context, cloneURL, workDir string, out io.Writer) (contracts.BuildResult, error)
}

// commandFunc runs a single command in dir with combined output to out.
// Swapped out in tests.
type commandFunc func(ctx context.Context, dir string, out io.Writer, name string, args ...string) error

// GitRunner clones or updates a git checkout, installs dependencies, and
// runs the test command as subprocesses.
type GitRunner struct {
	// InstallCommand installs declared dependencies; run through sh -c.
	InstallCommand string
	// TestCommand runs the test suite; its exit status is the build result.
	TestCommand string
	// Timeout bounds the whole run. Zero means no bound.
	Timeout time.Duration
	// Secrets are scrubbed from build output before it reaches out.
	Secrets []string

	log     logger.Logger
	execCmd commandFunc
}

// NewGitRunner creates a runner with the given install and test commands.
func NewGitRunner(installCmd, testCmd string, timeout time.Duration, log logger.Logger) *GitRunner {
	return &GitRunner{
		InstallCommand: installCmd,
		TestCommand:    testCmd,
		Timeout:        timeout,
		log:            log,
		execCmd:        runCommand,
	}
}

// Run materializes workDir (clone if absent, fast-forward pull if present),
// installs dependencies, and executes the test command. Combined output goes
// to out. The returned result's exit code is the test command's exit status;
// clone, pull, and install failures fold into a non-zero exit code but carry
// a stage-distinct error alongside.
func (g *GitRunner) Run(ctx context.Context, cloneURL, workDir string, out io.Writer) (contracts.BuildResult, error) {
	res := contracts.BuildResult{ExitCode: -1}
	if f, ok := out.(interface{ Name() string }); ok {
		res.OutputPath = f.Name()
	}
	if len(g.Secrets) > 0 {
		out = sanitize.NewWriter(out, g.Secrets...)
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	if _, err := os.Stat(workDir); os.IsNotExist(err) {
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return res, fmt.Errorf("%w: %v", ErrClone, err)
		}
		g.log.Debug("cloning %s into %s", cloneURL, workDir)
		fmt.Fprintf(out, "$ git clone %s\n", cloneURL)
		if err := g.execCmd(ctx, workDir, out, "git", "clone", cloneURL, "."); err != nil {
			res.ExitCode = exitCodeOf(err)
			return res, fmt.Errorf("%w: %v", ErrClone, err)
		}
	} else {
		// Assumes the directory already holds the right repository.
		g.log.Debug("updating existing checkout in %s", workDir)
		fmt.Fprintln(out, "$ git pull --ff-only")
		if err := g.execCmd(ctx, workDir, out, "git", "pull", "--ff-only"); err != nil {
			res.ExitCode = exitCodeOf(err)
			return res, fmt.Errorf("%w: %v", ErrPull, err)
		}
	}

	if g.InstallCommand != "" {
		fmt.Fprintf(out, "$ %s\n", g.InstallCommand)
		if err := g.execCmd(ctx, workDir, out, "sh", "-c", g.InstallCommand); err != nil {
			res.ExitCode = exitCodeOf(err)
			return res, fmt.Errorf("%w: %v", ErrInstall, err)
		}
	}

	fmt.Fprintf(out, "$ %s\n", g.TestCommand)
	err := g.execCmd(ctx, workDir, out, "sh", "-c", g.TestCommand)
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		fmt.Fprintln(out, "build timed out")
	default:
		res.ExitCode = exitCodeOf(err)
	}

	if p := filepath.Join(workDir, reportFile); fileExists(p) {
		res.ReportPath = p
	}

	return res, nil
}

// runCommand is the real subprocess executor.
func runCommand(ctx context.Context, dir string, out io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

// exitCodeOf extracts a process exit code from a command error.
// Non-process errors (command not started, context cancelled) map to 1.
func exitCodeOf(err error) int {
	var ee interface{ ExitCode() int }
	if errors.As(err, &ee) {
		if code := ee.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
