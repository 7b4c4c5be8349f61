// Package contracts defines the shared data types exchanged between components.
package contracts

import "time"

// TargetKind distinguishes the two addressing modes for a build.
type TargetKind string

const (
	// TargetCommit builds a single pushed commit. The statuses URL is a
	// template containing a {sha} placeholder.
	TargetCommit TargetKind = "commit"

	// TargetPullRequest builds a pull request head. The statuses URL is
	// used verbatim.
	TargetPullRequest TargetKind = "pull_request"
)

// BuildTarget identifies what to build. Immutable once constructed from an
// inbound event.
type BuildTarget struct {
	// Kind selects commit or pull-request addressing.
	Kind TargetKind `json:"kind"`
	// CloneURL is the repository to materialize.
	CloneURL string `json:"clone_url"`
	// SHA is the commit to build (head SHA for pull requests).
	SHA string `json:"sha"`
	// Ref is the pushed ref (e.g. "refs/heads/develop"). Empty for
	// pull-request targets.
	Ref string `json:"ref,omitempty"`
	// StatusesURL is where build progress is posted.
	StatusesURL string `json:"statuses_url"`
}

// NewCommitTarget constructs a target for a pushed commit.
func NewCommitTarget(cloneURL, sha, ref, statusesURL string) BuildTarget {
	return BuildTarget{
		Kind:        TargetCommit,
		CloneURL:    cloneURL,
		SHA:         sha,
		Ref:         ref,
		StatusesURL: statusesURL,
	}
}

// NewPullRequestTarget constructs a target for a pull-request head.
func NewPullRequestTarget(cloneURL, sha, statusesURL string) BuildTarget {
	return BuildTarget{
		Kind:        TargetPullRequest,
		CloneURL:    cloneURL,
		SHA:         sha,
		StatusesURL: statusesURL,
	}
}

// BuildState is one of the three states understood by the status API.
type BuildState string

const (
	StatePending BuildState = "pending"
	StateSuccess BuildState = "success"
	StateFailure BuildState = "failure"
)

// BuildStatus is the transient value posted to the status API.
type BuildStatus struct {
	State       BuildState `json:"state"`
	Description string     `json:"description"`
}

// BuildResult captures the outcome of one build attempt. Created by the
// runner, consumed immediately by the pipeline.
type BuildResult struct {
	// ExitCode is the test command's exit status. 0 signals success; any
	// non-zero value signals failure. -1 when the command never ran or
	// was killed.
	ExitCode int
	// TimedOut is set when the build exceeded its execution deadline.
	TimedOut bool
	// OutputPath is where combined output was written, if the sink was a
	// file. May be empty.
	OutputPath string
	// ReportPath is the JUnit report left behind by the test command, if
	// one was found in the checkout. May be empty.
	ReportPath string
}

// Succeeded reports whether the build passed.
func (r BuildResult) Succeeded() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// BuildRecord is the persisted history row for one build execution.
type BuildRecord struct {
	ID          string     `json:"id"`
	Kind        TargetKind `json:"kind"`
	SHA         string     `json:"sha"`
	Ref         string     `json:"ref,omitempty"`
	CloneURL    string     `json:"clone_url"`
	State       BuildState `json:"state"`
	ExitCode    int        `json:"exit_code"`
	Description string     `json:"description"`
	LogPath     string     `json:"log_path,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at,omitempty"`
}
