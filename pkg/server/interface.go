/*
Package server implements msgpack IPC for the debounced typeahead controller.

The server package provides a minimal interface for search-as-you-type over msgpack serialization on stdin/stdout.

Clients send one event per keystroke carrying the current full text of the input.
The server owns a Controller which debounces the stream, issues at most one
logically current search against its provider, and pushes an update frame back
for every observable state change. Because responses are pushed, a client must
treat frames as a stream keyed by the triggering event ID rather than a strict
request/response pairing.

# IPC

Keystroke events use mainly this structure:

	{"id": "ev_014", "t": "inter"}

The server pushes state frames as the controller moves through its lifecycle:

	{"id": "ev_014", "st": "debouncing", "q": "inter"}
	{"id": "ev_014", "st": "searching", "ld": true, "q": "inter"}
	{"id": "ev_014", "st": "ready", "q": "inter", "s": [{"i": "t000041", "w": "interstellar", "r": 1}], "c": 1, "t": 1043}

An empty "t" clears the suggestion list immediately and returns the controller
to idle; no search is issued.

Control ops share the request shape:

	{"id": "ct_001", "action": "cancel"}
	{"id": "ct_002", "action": "select", "rid": "t000041"}
	{"id": "ct_003", "action": "flush"}
	{"id": "ct_004", "action": "health"}

A superseded search is never reported: its outcome is discarded by the
controller's generation guard and the client only ever sees frames for the
most recent keystroke.

msgpack encoding has ~30 to 50% smaller message sizes compared to JSON and
parses faster, which matters when every keystroke crosses the pipe.
*/
package server

// Request - one incoming frame, either a keystroke event ("t" set) or a
// control op ("action" set)
type Request struct {
	ID       string  `msgpack:"id"`
	Text     *string `msgpack:"t,omitempty"`
	Action   string  `msgpack:"action,omitempty"`
	ResultID string  `msgpack:"rid,omitempty"`
}

// UpdateSuggestion - minimal suggestion in a pushed frame
type UpdateSuggestion struct {
	ID    string `msgpack:"i"`
	Title string `msgpack:"w"`
	Rank  uint16 `msgpack:"r"`
}

// UpdateFrame - pushed controller state change
type UpdateFrame struct {
	ID          string             `msgpack:"id"`
	State       string             `msgpack:"st"`
	Loading     bool               `msgpack:"ld,omitempty"`
	Query       string             `msgpack:"q,omitempty"`
	Suggestions []UpdateSuggestion `msgpack:"s,omitempty"`
	Count       int                `msgpack:"c,omitempty"`
	TimeTaken   int64              `msgpack:"t,omitempty"`
}

// SelectResponse - result of a "select" op
type SelectResponse struct {
	ID       string `msgpack:"id"`
	Status   string `msgpack:"status"`
	ResultID string `msgpack:"rid,omitempty"`
	Title    string `msgpack:"w,omitempty"`
}

// StatusResponse - result of "health" and other status ops
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// SearchError holds basic error information reported to the client
type SearchError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
