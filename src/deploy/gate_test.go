package deploy

import (
	"context"
	"io"
	"os"
	"testing"

	"relay-agent/src/contracts"
	"relay-agent/src/logger"
)

type fakeExecutor struct {
	result contracts.BuildStatus
	code   int
	ran    int
	panics bool
}

func (f *fakeExecutor) Execute(ctx context.Context, target contracts.BuildTarget, out io.Writer) (contracts.BuildStatus, int, error) {
	f.ran++
	if f.panics {
		panic("runner blew up")
	}
	return f.result, f.code, nil
}

type fakeDeployer struct {
	deployed int
	notified int
}

func (f *fakeDeployer) Deploy(ctx context.Context, target contracts.BuildTarget) error {
	f.deployed++
	return nil
}

func (f *fakeDeployer) NotifyFailure(ctx context.Context, target contracts.BuildTarget, st contracts.BuildStatus) error {
	f.notified++
	return nil
}

func pushTarget(ref string) contracts.BuildTarget {
	return contracts.NewCommitTarget(
		"https://example.com/repo.git",
		"abc123",
		ref,
		"https://api.example.com/statuses/{sha}",
	)
}

func newGate(t *testing.T, exec *fakeExecutor, dep *fakeDeployer) *Gate {
	t.Helper()
	refs := []string{"refs/heads/develop"}
	return NewGate(refs, exec, dep, t.TempDir(), logger.NewSilentLogger())
}

func TestHandlePushDeploysOnSuccess(t *testing.T) {
	exec := &fakeExecutor{result: contracts.BuildStatus{State: contracts.StateSuccess}}
	dep := &fakeDeployer{}
	g := newGate(t, exec, dep)

	g.HandlePush(context.Background(), pushTarget("refs/heads/develop"))

	if exec.ran != 1 {
		t.Fatalf("pipeline ran %d times, want 1", exec.ran)
	}
	if dep.deployed != 1 {
		t.Errorf("deployed %d times, want 1", dep.deployed)
	}
	if dep.notified != 0 {
		t.Errorf("failure notified %d times, want 0", dep.notified)
	}
}

func TestHandlePushNotifiesOnFailure(t *testing.T) {
	exec := &fakeExecutor{result: contracts.BuildStatus{State: contracts.StateFailure}, code: 1}
	dep := &fakeDeployer{}
	g := newGate(t, exec, dep)

	g.HandlePush(context.Background(), pushTarget("refs/heads/develop"))

	if dep.deployed != 0 {
		t.Errorf("deployed %d times, want 0", dep.deployed)
	}
	if dep.notified != 1 {
		t.Errorf("failure notified %d times, want 1", dep.notified)
	}
}

func TestHandlePushIgnoresRefsOutsideDeploySet(t *testing.T) {
	exec := &fakeExecutor{result: contracts.BuildStatus{State: contracts.StateSuccess}}
	dep := &fakeDeployer{}
	refs := []string{"refs/heads/develop"}
	logDir := t.TempDir()
	g := NewGate(refs, exec, dep, logDir, logger.NewSilentLogger())

	g.HandlePush(context.Background(), pushTarget("refs/heads/feature-x"))

	if exec.ran != 0 {
		t.Errorf("pipeline ran %d times for ignored ref, want 0", exec.ran)
	}
	if dep.deployed+dep.notified != 0 {
		t.Error("deployer invoked for ignored ref")
	}
	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("log dir has %d files for ignored ref, want 0", len(entries))
	}
}

func TestHandlePushCreatesTimestampedLog(t *testing.T) {
	exec := &fakeExecutor{result: contracts.BuildStatus{State: contracts.StateSuccess}}
	dep := &fakeDeployer{}
	refs := []string{"refs/heads/develop"}
	logDir := t.TempDir()
	g := NewGate(refs, exec, dep, logDir, logger.NewSilentLogger())

	g.HandlePush(context.Background(), pushTarget("refs/heads/develop"))

	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("log dir has %d files, want 1", len(entries))
	}
}

func TestHandlePullRequestBuildsWithoutDeploying(t *testing.T) {
	exec := &fakeExecutor{result: contracts.BuildStatus{State: contracts.StateSuccess}}
	dep := &fakeDeployer{}
	g := newGate(t, exec, dep)

	target := contracts.NewPullRequestTarget(
		"https://example.com/repo.git",
		"def456",
		"https://api.example.com/statuses/def456",
	)
	g.HandlePullRequest(context.Background(), target)

	if exec.ran != 1 {
		t.Errorf("pipeline ran %d times, want 1", exec.ran)
	}
	if dep.deployed != 0 {
		t.Error("pull request build deployed")
	}
}

func TestHandlePushContainsPanics(t *testing.T) {
	exec := &fakeExecutor{panics: true}
	dep := &fakeDeployer{}
	g := newGate(t, exec, dep)

	// Must not propagate; a bad build cannot take down the listener.
	g.HandlePush(context.Background(), pushTarget("refs/heads/develop"))

	if dep.deployed+dep.notified != 0 {
		t.Error("deployer invoked after panic")
	}
}
