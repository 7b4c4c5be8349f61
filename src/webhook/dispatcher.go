// Package webhook verifies and decodes inbound source-control notifications
// and dispatches them to the build components.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-github/v29/github"
	"github.com/gorilla/mux"

	"relay-agent/src/contracts"
	"relay-agent/src/logger"
)

// Events receives decoded notifications. Push events are deploy-gated; pull
// request events only build.
type Events interface {
	HandlePush(ctx context.Context, target contracts.BuildTarget)
	HandlePullRequest(ctx context.Context, target contracts.BuildTarget)
}

// pushPayload carries the push-event fields this system consumes.
type pushPayload struct {
	Ref        string `json:"ref"`
	HeadCommit struct {
		ID string `json:"id"`
	} `json:"head_commit"`
	Repository struct {
		CloneURL string `json:"clone_url"`
		// StatusesURL is a template containing a {sha} placeholder.
		StatusesURL string `json:"statuses_url"`
	} `json:"repository"`
}

// pullRequestPayload carries the pull-request-event fields this system consumes.
type pullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		StatusesURL string `json:"statuses_url"`
		Head        struct {
			SHA string `json:"sha"`
		} `json:"head"`
		Base struct {
			Repo struct {
				CloneURL string `json:"clone_url"`
			} `json:"repo"`
		} `json:"base"`
	} `json:"pull_request"`
}

// buildableActions are the pull-request actions that trigger a build.
var buildableActions = map[string]struct{}{
	"opened":      {},
	"synchronize": {},
	"reopened":    {},
}

// Dispatcher is the HTTP surface receiving signed notification payloads.
type Dispatcher struct {
	secret []byte
	events Events
	log    logger.Logger

	// async is disabled in tests to make dispatch observable.
	async bool
}

// NewDispatcher creates a dispatcher verifying payloads with the shared secret.
func NewDispatcher(secret string, events Events, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		secret: []byte(secret),
		events: events,
		log:    log,
		async:  true,
	}
}

// Handler returns the HTTP handler serving the webhook on path. Every other
// path answers 404 with a plain-text body.
func (d *Dispatcher) Handler(path string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(path, d.handle).Methods(http.MethodPost)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintln(w, "Not Found")
	})
	return r
}

func (d *Dispatcher) handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, d.secret)
	if err != nil {
		d.log.Error("rejected webhook delivery: %v", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	switch github.WebHookType(r) {
	case "push":
		d.handlePush(w, payload)
	case "pull_request":
		d.handlePullRequest(w, payload)
	case "ping":
		fmt.Fprintln(w, "pong")
	default:
		// Other event kinds are accepted and ignored.
		fmt.Fprintln(w, "ignored")
	}
}

func (d *Dispatcher) handlePush(w http.ResponseWriter, payload []byte) {
	var ev pushPayload
	if err := json.Unmarshal(payload, &ev); err != nil {
		d.log.Error("malformed push payload: %v", err)
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if ev.HeadCommit.ID == "" || ev.Repository.CloneURL == "" {
		d.log.Error("push payload missing head commit or clone URL")
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	target := contracts.NewCommitTarget(
		ev.Repository.CloneURL,
		ev.HeadCommit.ID,
		ev.Ref,
		ev.Repository.StatusesURL,
	)
	d.log.Info("push of %s to %s received", target.SHA, target.Ref)
	d.dispatch(func(ctx context.Context) { d.events.HandlePush(ctx, target) })
	fmt.Fprintln(w, "accepted")
}

func (d *Dispatcher) handlePullRequest(w http.ResponseWriter, payload []byte) {
	var ev pullRequestPayload
	if err := json.Unmarshal(payload, &ev); err != nil {
		d.log.Error("malformed pull_request payload: %v", err)
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if _, ok := buildableActions[ev.Action]; !ok {
		d.log.Debug("pull_request action %q ignored", ev.Action)
		fmt.Fprintln(w, "ignored")
		return
	}
	if ev.PullRequest.Head.SHA == "" || ev.PullRequest.Base.Repo.CloneURL == "" {
		d.log.Error("pull_request payload missing head SHA or clone URL")
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	target := contracts.NewPullRequestTarget(
		ev.PullRequest.Base.Repo.CloneURL,
		ev.PullRequest.Head.SHA,
		ev.PullRequest.StatusesURL,
	)
	d.log.Info("pull request head %s received", target.SHA)
	d.dispatch(func(ctx context.Context) { d.events.HandlePullRequest(ctx, target) })
	fmt.Fprintln(w, "accepted")
}

// dispatch runs one pipeline invocation. Each notification gets its own
// invocation; there is no queue and no serialization across events.
func (d *Dispatcher) dispatch(f func(ctx context.Context)) {
	if d.async {
		go f(context.Background())
		return
	}
	f(context.Background())
}
