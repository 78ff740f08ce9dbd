// Package typeahead is the core, providing the debounced latest-wins controller that sits between keystrokes and a search provider.
package typeahead

import "context"

// Result is one matched candidate returned by a search provider.
// The controller treats everything except ID as opaque payload and never
// transforms or validates it.
type Result struct {
	ID      string
	Title   string
	Payload map[string]any
}

// Provider is the external search collaborator. Implementations may be slow
// and may fail; the controller guards against out-of-order responses, so a
// Provider does not need to honor ctx cancellation for correctness.
type Provider interface {
	// Search returns an ordered sequence of results for the query.
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// State is the controller lifecycle state observable by renderers.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateSearching
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateSearching:
		return "searching"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent view of the controller for a rendering collaborator.
// The Suggestions slice is owned by the receiver.
type Snapshot struct {
	State       State
	Loading     bool
	Query       string
	Suggestions []Result
}
