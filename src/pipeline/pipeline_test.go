package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relay-agent/src/contracts"
	"relay-agent/src/logger"
	"relay-agent/src/store"
)

// fakeReporter records every status in order and can fail on demand.
type fakeReporter struct {
	statuses []contracts.BuildStatus
	targets  []contracts.BuildTarget
	fail     bool
}

func (f *fakeReporter) Report(ctx context.Context, target contracts.BuildTarget, st contracts.BuildStatus) error {
	f.statuses = append(f.statuses, st)
	f.targets = append(f.targets, target)
	if f.fail {
		return errors.New("status endpoint returned empty response")
	}
	return nil
}

// fakeRunner returns a scripted result and records its invocations.
type fakeRunner struct {
	result   contracts.BuildResult
	err      error
	workDirs []string
	ran      int
}

func (f *fakeRunner) Run(ctx context.Context, cloneURL, workDir string, out io.Writer) (contracts.BuildResult, error) {
	f.ran++
	f.workDirs = append(f.workDirs, workDir)
	return f.result, f.err
}

func commitTarget() contracts.BuildTarget {
	return contracts.NewCommitTarget(
		"https://example.com/repo.git",
		"abc123",
		"refs/heads/develop",
		"https://api.example.com/statuses/{sha}",
	)
}

func newPipeline(rep *fakeReporter, run *fakeRunner, st store.Store, workRoot string) *Pipeline {
	return New(rep, run, st, workRoot, logger.NewSilentLogger())
}

func TestExecuteSuccess(t *testing.T) {
	rep := &fakeReporter{}
	run := &fakeRunner{result: contracts.BuildResult{ExitCode: 0}}
	st := store.NewInMemoryStore()
	p := newPipeline(rep, run, st, "/work")

	var out bytes.Buffer
	final, code, err := p.Execute(context.Background(), commitTarget(), &out)
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if final.State != contracts.StateSuccess {
		t.Errorf("final state = %q, want success", final.State)
	}
	if len(rep.statuses) != 2 {
		t.Fatalf("reporter called %d times, want exactly 2", len(rep.statuses))
	}
	if rep.statuses[0].State != contracts.StatePending {
		t.Errorf("first report = %q, want pending", rep.statuses[0].State)
	}
	if rep.statuses[1].State != contracts.StateSuccess {
		t.Errorf("second report = %q, want success", rep.statuses[1].State)
	}
}

func TestExecuteFailureExitCodes(t *testing.T) {
	for _, code := range []int{1, 127} {
		rep := &fakeReporter{}
		run := &fakeRunner{result: contracts.BuildResult{ExitCode: code}}
		p := newPipeline(rep, run, store.NewInMemoryStore(), "/work")

		var out bytes.Buffer
		final, gotCode, _ := p.Execute(context.Background(), commitTarget(), &out)
		if final.State != contracts.StateFailure {
			t.Errorf("exit %d: final state = %q, want failure", code, final.State)
		}
		if gotCode != code {
			t.Errorf("exit code = %d, want %d", gotCode, code)
		}
	}
}

func TestExecuteDerivesWorkDirFromSHA(t *testing.T) {
	run := &fakeRunner{result: contracts.BuildResult{ExitCode: 0}}
	p := newPipeline(&fakeReporter{}, run, store.NewInMemoryStore(), "/root/PRS")

	var out bytes.Buffer
	p.Execute(context.Background(), commitTarget(), &out)

	want := filepath.Join("/root/PRS", "abc123")
	if run.workDirs[0] != want {
		t.Errorf("work dir = %q, want %q", run.workDirs[0], want)
	}
}

func TestExecuteReportFailureDoesNotAbortBuild(t *testing.T) {
	rep := &fakeReporter{fail: true}
	run := &fakeRunner{result: contracts.BuildResult{ExitCode: 0}}
	p := newPipeline(rep, run, store.NewInMemoryStore(), "/work")

	var out bytes.Buffer
	final, code, err := p.Execute(context.Background(), commitTarget(), &out)
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	if run.ran != 1 {
		t.Error("build did not run after failed pending report")
	}
	if code != 0 || final.State != contracts.StateSuccess {
		t.Errorf("result = (%q, %d), want real build outcome", final.State, code)
	}
	// Both reports must still have been attempted, in order.
	if len(rep.statuses) != 2 {
		t.Errorf("reporter called %d times, want 2", len(rep.statuses))
	}
}

func TestExecuteTimeout(t *testing.T) {
	run := &fakeRunner{result: contracts.BuildResult{ExitCode: -1, TimedOut: true}}
	p := newPipeline(&fakeReporter{}, run, store.NewInMemoryStore(), "/work")

	var out bytes.Buffer
	final, _, _ := p.Execute(context.Background(), commitTarget(), &out)
	if final.State != contracts.StateFailure {
		t.Errorf("final state = %q, want failure", final.State)
	}
	if !strings.Contains(final.Description, "timed out") {
		t.Errorf("description = %q, want timeout mention", final.Description)
	}
}

func TestExecuteSummarizesTestReport(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.xml")
	reportXML := `<testsuite name="auth" tests="1" failures="1">
  <testcase name="rejects bad password" classname="auth.test">
    <failure message="boom"/>
  </testcase>
</testsuite>`
	if err := os.WriteFile(reportPath, []byte(reportXML), 0o644); err != nil {
		t.Fatal(err)
	}

	run := &fakeRunner{result: contracts.BuildResult{ExitCode: 1, ReportPath: reportPath}}
	p := newPipeline(&fakeReporter{}, run, store.NewInMemoryStore(), "/work")

	var out bytes.Buffer
	final, _, _ := p.Execute(context.Background(), commitTarget(), &out)
	if !strings.Contains(final.Description, "rejects bad password") {
		t.Errorf("description = %q, want failing test named", final.Description)
	}
}

func TestExecuteRecordsHistory(t *testing.T) {
	st := store.NewInMemoryStore()
	run := &fakeRunner{result: contracts.BuildResult{ExitCode: 0}}
	p := newPipeline(&fakeReporter{}, run, st, "/work")

	var out bytes.Buffer
	p.Execute(context.Background(), commitTarget(), &out)

	recs, err := st.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent() unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].State != contracts.StateSuccess || recs[0].SHA != "abc123" {
		t.Errorf("record = %+v, want finished success for abc123", recs[0])
	}
}

func TestExecutePullRequestTargetReturnsStatus(t *testing.T) {
	// PR builds go through the same path as commit builds and report their
	// exit code back to the caller.
	rep := &fakeReporter{}
	run := &fakeRunner{result: contracts.BuildResult{ExitCode: 1}}
	p := newPipeline(rep, run, store.NewInMemoryStore(), "/work")

	target := contracts.NewPullRequestTarget(
		"https://example.com/repo.git",
		"def456",
		"https://api.example.com/statuses/def456",
	)

	var out bytes.Buffer
	final, code, err := p.Execute(context.Background(), target, &out)
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if final.State != contracts.StateFailure || code != 1 {
		t.Errorf("result = (%q, %d), want (failure, 1)", final.State, code)
	}
	if rep.targets[0].Kind != contracts.TargetPullRequest {
		t.Errorf("reported target kind = %q, want pull_request", rep.targets[0].Kind)
	}
}
