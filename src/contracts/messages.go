// Package contracts defines message types for the distributed build plane.
package contracts

// BuildRequested asks a build agent to execute one build.
// Published to: relay.builds.requested
// Key: {sha}
type BuildRequested struct {
	// RequestID identifies this delivery across the broker and the store.
	RequestID string `json:"request_id"`
	// Target describes what to build.
	Target BuildTarget `json:"target"`
	// Deliverable is set for push events whose ref is in the deploy set;
	// the consuming agent routes these through the deploy gate.
	Deliverable bool `json:"deliverable"`
	// Timestamp is the RFC3339 time the webhook accepted the event.
	Timestamp string `json:"timestamp"`
}

// BuildCompleted announces the terminal state of a requested build.
// Published to: relay.builds.completed
// Key: {request_id}
type BuildCompleted struct {
	RequestID   string     `json:"request_id"`
	SHA         string     `json:"sha"`
	State       BuildState `json:"state"`
	Description string     `json:"description"`
	Timestamp   string     `json:"timestamp"`
}

// Topic names used on the broker.
const (
	// TopicBuildsRequested carries BuildRequested messages from the
	// webhook listener to build agents.
	TopicBuildsRequested = "relay.builds.requested"

	// TopicBuildsCompleted carries BuildCompleted messages from build
	// agents back to any interested consumer.
	TopicBuildsCompleted = "relay.builds.completed"
)
