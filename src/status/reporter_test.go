package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"relay-agent/src/contracts"
)

type recordedPost struct {
	path   string
	token  string
	status contracts.BuildStatus
}

func statusServer(t *testing.T, respond func(w http.ResponseWriter)) (*httptest.Server, *[]recordedPost) {
	t.Helper()
	var posts []recordedPost
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var st contracts.BuildStatus
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			t.Errorf("bad status body: %v", err)
		}
		posts = append(posts, recordedPost{
			path:   r.URL.Path,
			token:  r.URL.Query().Get("access_token"),
			status: st,
		})
		respond(w)
	}))
	t.Cleanup(srv.Close)
	return srv, &posts
}

func TestReportCommitMode(t *testing.T) {
	srv, posts := statusServer(t, func(w http.ResponseWriter) {
		w.Write([]byte(`{"id": 1}`))
	})

	target := contracts.NewCommitTarget(
		"https://example.com/repo.git",
		"abc123",
		"refs/heads/develop",
		srv.URL+"/repos/acme/repo/statuses/{sha}",
	)
	reporter := NewGitHubReporter("tok")

	err := reporter.Report(context.Background(), target, contracts.BuildStatus{
		State:       contracts.StatePending,
		Description: "Build started",
	})
	if err != nil {
		t.Fatalf("Report() unexpected error: %v", err)
	}

	if len(*posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(*posts))
	}
	got := (*posts)[0]
	if got.path != "/repos/acme/repo/statuses/abc123" {
		t.Errorf("path = %q, want SHA substituted", got.path)
	}
	if got.token != "tok" {
		t.Errorf("access_token = %q, want tok", got.token)
	}
	if got.status.State != contracts.StatePending {
		t.Errorf("state = %q, want pending", got.status.State)
	}
}

func TestReportPullRequestMode(t *testing.T) {
	srv, posts := statusServer(t, func(w http.ResponseWriter) {
		w.Write([]byte(`{"id": 2}`))
	})

	// PR statuses URLs carry no template and must be used verbatim.
	target := contracts.NewPullRequestTarget(
		"https://example.com/repo.git",
		"def456",
		srv.URL+"/repos/acme/repo/statuses/def456",
	)
	reporter := NewGitHubReporter("tok")

	err := reporter.Report(context.Background(), target, contracts.BuildStatus{
		State:       contracts.StateSuccess,
		Description: "Build succeeded",
	})
	if err != nil {
		t.Fatalf("Report() unexpected error: %v", err)
	}
	if (*posts)[0].path != "/repos/acme/repo/statuses/def456" {
		t.Errorf("path = %q, want verbatim URL", (*posts)[0].path)
	}
}

func TestReportEmptyResponse(t *testing.T) {
	srv, _ := statusServer(t, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusOK)
	})

	target := contracts.NewPullRequestTarget("https://example.com/repo.git", "def456", srv.URL+"/statuses")
	reporter := NewGitHubReporter("tok")

	err := reporter.Report(context.Background(), target, contracts.BuildStatus{State: contracts.StateFailure})
	if err == nil {
		t.Fatal("Report() expected error for empty response, got nil")
	}
	var re *ReportError
	if !errors.As(err, &re) {
		t.Fatalf("Report() error = %T, want *ReportError", err)
	}
}

func TestReportErrorResponse(t *testing.T) {
	srv, _ := statusServer(t, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Bad credentials"}`))
	})

	target := contracts.NewPullRequestTarget("https://example.com/repo.git", "def456", srv.URL+"/statuses")
	reporter := NewGitHubReporter("bad-tok")

	err := reporter.Report(context.Background(), target, contracts.BuildStatus{State: contracts.StatePending})
	var re *ReportError
	if !errors.As(err, &re) {
		t.Fatalf("Report() error = %v, want *ReportError", err)
	}
	if re.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", re.StatusCode)
	}
	if re.Body == "" {
		t.Error("ReportError.Body empty, want response body captured")
	}
}
