// Package deploy gates push builds on a configured ref set and hands
// successful builds to a Deployer.
package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"relay-agent/src/contracts"
	"relay-agent/src/logger"
)

// Executor runs a build pipeline for a target. Satisfied by *pipeline.Pipeline.
type Executor interface {
	Execute(ctx context.Context, target contracts.BuildTarget, out io.Writer) (contracts.BuildStatus, int, error)
}

// Deployer performs the post-build sequence. The deploy mechanics
// (bring-down, deploy, bring-up, notify) live outside this system.
type Deployer interface {
	// Deploy is invoked after a successful gated build.
	Deploy(ctx context.Context, target contracts.BuildTarget) error
	// NotifyFailure is invoked after a failed gated build.
	NotifyFailure(ctx context.Context, target contracts.BuildTarget, st contracts.BuildStatus) error
}

// LogDeployer is the placeholder Deployer used until a real deploy
// integration is wired in. It only logs what would happen.
type LogDeployer struct {
	log logger.Logger
}

// NewLogDeployer creates the placeholder deployer.
func NewLogDeployer(log logger.Logger) *LogDeployer {
	return &LogDeployer{log: log}
}

func (d *LogDeployer) Deploy(ctx context.Context, target contracts.BuildTarget) error {
	d.log.Info("deploy %s (%s): bring-down/deploy/bring-up not wired, skipping", target.SHA, target.Ref)
	return nil
}

func (d *LogDeployer) NotifyFailure(ctx context.Context, target contracts.BuildTarget, st contracts.BuildStatus) error {
	d.log.Info("deploy of %s skipped: %s", target.SHA, st.Description)
	return nil
}

// Gate decides whether a push event should build and deploy.
type Gate struct {
	refs     map[string]struct{}
	executor Executor
	deployer Deployer
	logDir   string
	log      logger.Logger
}

// NewGate creates a gate for the given deploy ref set. Build output for
// gated builds is written to timestamped files under logDir.
func NewGate(refs []string, exec Executor, dep Deployer, logDir string, log logger.Logger) *Gate {
	set := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		set[ref] = struct{}{}
	}
	return &Gate{
		refs:     set,
		executor: exec,
		deployer: dep,
		logDir:   logDir,
		log:      log,
	}
}

// HandlePush builds and possibly deploys a pushed commit. Pushes to refs
// outside the deploy set are ignored (built is false). Every failure inside
// the invocation is contained here: a single bad build must not crash the
// listening process.
func (g *Gate) HandlePush(ctx context.Context, target contracts.BuildTarget) (final contracts.BuildStatus, built bool) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("push handler for %s panicked: %v", target.SHA, r)
			final = panicStatus()
		}
	}()

	if _, ok := g.refs[target.Ref]; !ok {
		g.log.Debug("ref %s not in deploy set, ignoring push of %s", target.Ref, target.SHA)
		return contracts.BuildStatus{}, false
	}
	built = true

	out, closeOut := g.outputSink(target.SHA)
	defer closeOut()

	var (
		code int
		err  error
	)
	final, code, err = g.executor.Execute(ctx, target, out)
	if err != nil {
		g.log.Error("build of %s failed to execute: %v", target.SHA, err)
		return final, built
	}

	if final.State == contracts.StateSuccess {
		if err := g.deployer.Deploy(ctx, target); err != nil {
			g.log.Error("deploy of %s failed: %v", target.SHA, err)
		}
		return final, built
	}

	g.log.Info("build of %s exited %d, not deploying", target.SHA, code)
	if err := g.deployer.NotifyFailure(ctx, target, final); err != nil {
		g.log.Error("failure notification for %s failed: %v", target.SHA, err)
	}
	return final, built
}

// HandlePullRequest builds a pull-request head. Pull-request builds are never
// deploy-gated; their terminal status reaches users via the status API only.
func (g *Gate) HandlePullRequest(ctx context.Context, target contracts.BuildTarget) (final contracts.BuildStatus, built bool) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("pull-request handler for %s panicked: %v", target.SHA, r)
			final = panicStatus()
		}
	}()
	built = true

	out, closeOut := g.outputSink(target.SHA)
	defer closeOut()

	final, code, err := g.executor.Execute(ctx, target, out)
	if err != nil {
		g.log.Error("build of %s failed to execute: %v", target.SHA, err)
		return final, built
	}
	g.log.Info("pull request build of %s finished %s (exit %d)", target.SHA, final.State, code)
	return final, built
}

// panicStatus stands in for a terminal status when the pipeline never
// produced one.
func panicStatus() contracts.BuildStatus {
	return contracts.BuildStatus{State: contracts.StateFailure, Description: "Build did not complete"}
}

// outputSink creates a fresh timestamped log file for one gated build.
// Falls back to discarding output if the file cannot be created.
func (g *Gate) outputSink(sha string) (io.Writer, func()) {
	if err := os.MkdirAll(g.logDir, 0o755); err != nil {
		g.log.Error("could not create log dir %s: %v", g.logDir, err)
		return io.Discard, func() {}
	}

	name := fmt.Sprintf("build-%s-%s.log", sha, time.Now().Format("20060102-150405"))
	f, err := os.Create(filepath.Join(g.logDir, name))
	if err != nil {
		g.log.Error("could not create build log: %v", err)
		return io.Discard, func() {}
	}
	return f, func() { f.Close() }
}
