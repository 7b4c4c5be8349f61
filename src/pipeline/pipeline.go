// Package pipeline orchestrates the status reporter and the build runner for
// a single build target: report pending, run the build, report the terminal
// state, record history.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"relay-agent/src/contracts"
	"relay-agent/src/junit"
	"relay-agent/src/logger"
	"relay-agent/src/runner"
	"relay-agent/src/status"
	"relay-agent/src/store"
)

// Fixed per-outcome descriptions sent to the status API.
const (
	descPending = "Build started"
	descSuccess = "Build succeeded"
	descFailure = "Build failed"
	descTimeout = "Build timed out"
)

// maxListedTests caps how many failing test names land in the description.
const maxListedTests = 3

// Pipeline drives one build from pending to its terminal status.
type Pipeline struct {
	reporter status.Reporter
	runner   runner.Runner
	store    store.Store
	log      logger.Logger
	workRoot string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a pipeline. workRoot is the directory under which per-commit
// checkouts live.
func New(rep status.Reporter, run runner.Runner, st store.Store, workRoot string, log logger.Logger) *Pipeline {
	return &Pipeline{
		reporter: rep,
		runner:   run,
		store:    st,
		log:      log,
		workRoot: workRoot,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Execute runs the full sequence for target, writing combined build output to
// out. It returns the terminal status and the raw exit code so callers can
// branch on it. Status-report failures are logged and never abort the build.
//
// The sequence is strictly ordered: pending is reported before the build
// runs, the terminal state after, exactly once each. Builds of the same
// commit are serialized by a per-SHA lock; different commits get isolated
// working directories and may run concurrently.
func (p *Pipeline) Execute(ctx context.Context, target contracts.BuildTarget, out io.Writer) (contracts.BuildStatus, int, error) {
	lock := p.lockFor(target.SHA)
	lock.Lock()
	defer lock.Unlock()

	rec := &contracts.BuildRecord{
		ID:        uuid.NewString(),
		Kind:      target.Kind,
		SHA:       target.SHA,
		Ref:       target.Ref,
		CloneURL:  target.CloneURL,
		State:     contracts.StatePending,
		ExitCode:  -1,
		StartedAt: time.Now(),
	}
	if f, ok := out.(interface{ Name() string }); ok {
		rec.LogPath = f.Name()
	}
	if err := p.store.CreateBuild(ctx, rec); err != nil {
		p.log.Error("failed to record build %s: %v", rec.ID, err)
	}

	pending := contracts.BuildStatus{State: contracts.StatePending, Description: descPending}
	if err := p.reporter.Report(ctx, target, pending); err != nil {
		p.log.Error("pending status for %s not delivered: %v", target.SHA, err)
	}

	workDir := filepath.Join(p.workRoot, target.SHA)
	res, runErr := p.runner.Run(ctx, target.CloneURL, workDir, out)
	if runErr != nil {
		p.log.Error("build %s: %v", target.SHA, runErr)
	}

	final := p.finalStatus(res)
	if err := p.reporter.Report(ctx, target, final); err != nil {
		p.log.Error("final status for %s not delivered: %v", target.SHA, err)
	}

	if err := p.store.FinishBuild(ctx, rec.ID, final.State, res.ExitCode, final.Description); err != nil {
		p.log.Error("failed to finish build record %s: %v", rec.ID, err)
	}

	return final, res.ExitCode, nil
}

// finalStatus maps a build result to success or failure. Exit code 0 is
// success; any other exit code, and a timeout, is failure.
func (p *Pipeline) finalStatus(res contracts.BuildResult) contracts.BuildStatus {
	if res.Succeeded() {
		return contracts.BuildStatus{State: contracts.StateSuccess, Description: descSuccess}
	}

	desc := descFailure
	if res.TimedOut {
		desc = descTimeout
	} else if summary := p.testSummary(res.ReportPath); summary != "" {
		desc = fmt.Sprintf("%s: %s", descFailure, summary)
	}
	return contracts.BuildStatus{State: contracts.StateFailure, Description: desc}
}

// testSummary names the failing tests from a JUnit report, when one exists.
func (p *Pipeline) testSummary(reportPath string) string {
	if reportPath == "" {
		return ""
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		p.log.Debug("could not read test report %s: %v", reportPath, err)
		return ""
	}
	failures, err := junit.Parse(data)
	if err != nil {
		p.log.Debug("could not parse test report %s: %v", reportPath, err)
		return ""
	}
	return junit.Summarize(failures, maxListedTests)
}

// lockFor returns the mutex serializing builds of the given commit.
func (p *Pipeline) lockFor(sha string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.locks[sha]
	if !ok {
		l = &sync.Mutex{}
		p.locks[sha] = l
	}
	return l
}
