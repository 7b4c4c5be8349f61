// Package status posts build progress to the commit status API.
package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"relay-agent/src/contracts"
)

// shaPlaceholder is the template token in commit-mode statuses URLs.
const shaPlaceholder = "{sha}"

// Reporter posts a three-state build status scoped to a target.
type Reporter interface {
	Report(ctx context.Context, target contracts.BuildTarget, st contracts.BuildStatus) error
}

// ReportError is returned when the status endpoint is unreachable or its
// response is unusable. It is recoverable: a failed status post must not
// abort the build that produced it.
type ReportError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *ReportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status report to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("status report to %s failed: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// GitHubReporter posts statuses to the GitHub commit status API.
type GitHubReporter struct {
	token      string
	httpClient *http.Client
}

// NewGitHubReporter creates a reporter authenticating with the given token.
func NewGitHubReporter(token string) *GitHubReporter {
	return &GitHubReporter{
		token: token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Report sends the status to the target's statuses URL. Commit targets have
// the commit SHA substituted into the URL template; pull-request targets use
// the URL verbatim. There is no automatic retry.
func (r *GitHubReporter) Report(ctx context.Context, target contracts.BuildTarget, st contracts.BuildStatus) error {
	endpoint, err := r.endpoint(target)
	if err != nil {
		return &ReportError{URL: target.StatusesURL, Err: err}
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return &ReportError{URL: endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &ReportError{URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return &ReportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ReportError{URL: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(body) == 0 {
		return &ReportError{URL: endpoint, StatusCode: resp.StatusCode, Body: "empty response"}
	}

	return nil
}

// endpoint resolves the statuses URL for the target and appends the access
// token query parameter.
func (r *GitHubReporter) endpoint(target contracts.BuildTarget) (string, error) {
	raw := target.StatusesURL
	if target.Kind == contracts.TargetCommit {
		raw = strings.Replace(raw, shaPlaceholder, target.SHA, 1)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid statuses URL: %w", err)
	}

	q := u.Query()
	q.Set("access_token", r.token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
