package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/pkg/config"
	"github.com/bastiangx/typeahead/pkg/typeahead"
)

// Server handles the IPC for typeahead suggestions
type Server struct {
	ctrl   *typeahead.Controller
	cfg    *config.Config
	dec    *msgpack.Decoder
	writer io.Writer

	writeMu sync.Mutex

	stateMu     sync.Mutex
	lastInputID string
	lastInputAt time.Time
}

var srvlog = logger.NewWithWriter(os.Stderr, "ipc")

// NewServer creates a new typeahead server using stdin/stdout for IPC
func NewServer(provider typeahead.Provider, cfg *config.Config) *Server {
	return newServerIO(provider, cfg, os.Stdin, os.Stdout)
}

// newServerIO wires the controller callbacks to the given streams.
func newServerIO(provider typeahead.Provider, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	s := &Server{
		cfg:    cfg,
		dec:    msgpack.NewDecoder(r),
		writer: w,
	}
	s.ctrl = typeahead.New(provider, typeahead.Options{
		Delay:    cfg.Controller.Delay(),
		Limit:    cfg.Controller.Limit,
		OnUpdate: s.pushUpdate,
		OnError:  s.pushError,
	})
	return s
}

// Start begins listening for IPC requests. Returns nil on clean EOF.
func (s *Server) Start() error {
	srvlog.Debug("Starting Server.")
	defer s.ctrl.Close()

	s.send(StatusResponse{Status: "ready"})

	for {
		var request Request
		if err := s.dec.Decode(&request); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			srvlog.Errorf("Decoding request: %v", err)
			return err
		}
		s.handleRequest(request)
	}
}

// handleRequest dispatches one decoded frame
func (s *Server) handleRequest(request Request) {
	switch {
	case request.Text != nil:
		s.handleInput(request)
	case request.Action == "cancel":
		s.ctrl.Cancel()
		s.send(StatusResponse{ID: request.ID, Status: "cancelled"})
	case request.Action == "flush":
		s.ctrl.Flush()
	case request.Action == "select":
		s.handleSelect(request)
	case request.Action == "health":
		s.send(StatusResponse{ID: request.ID, Status: "ok"})
	default:
		s.sendError(request.ID, fmt.Sprintf("Unknown action: %s", request.Action), 400)
	}
}

// handleInput validates a keystroke event and feeds it to the controller.
// The controller's own state frames carry the outcome; nothing is sent here
// unless the event is rejected outright.
func (s *Server) handleInput(request Request) {
	text := *request.Text

	if max := s.cfg.Provider.MaxQuery; max > 0 && len(text) > max {
		s.sendError(request.ID, fmt.Sprintf("Input exceeds maximum length of %d characters", max), 400)
		srvlog.Debug("Input too long in request")
		return
	}

	s.stateMu.Lock()
	s.lastInputID = request.ID
	s.lastInputAt = time.Now()
	s.stateMu.Unlock()

	s.ctrl.OnTextChanged(text)
}

// handleSelect resolves rid against the current suggestion list and confirms
// the pick. Selection supersedes any further search.
func (s *Server) handleSelect(request Request) {
	snap := s.ctrl.Snapshot()
	for _, r := range snap.Suggestions {
		if r.ID == request.ResultID {
			chosen := s.ctrl.Select(r)
			s.send(SelectResponse{
				ID:       request.ID,
				Status:   "selected",
				ResultID: chosen.ID,
				Title:    chosen.Title,
			})
			return
		}
	}
	s.sendError(request.ID, fmt.Sprintf("No suggestion with id %q", request.ResultID), 404)
}

// pushUpdate is the controller's rendering collaborator: every observable
// state change becomes one pushed frame.
func (s *Server) pushUpdate(snap typeahead.Snapshot) {
	s.stateMu.Lock()
	id := s.lastInputID
	elapsed := int64(0)
	if !s.lastInputAt.IsZero() {
		elapsed = time.Since(s.lastInputAt).Microseconds()
	}
	s.stateMu.Unlock()

	suggestions := make([]UpdateSuggestion, len(snap.Suggestions))
	for i, r := range snap.Suggestions {
		suggestions[i] = UpdateSuggestion{
			ID:    r.ID,
			Title: r.Title,
			Rank:  uint16(i + 1),
		}
	}

	s.send(UpdateFrame{
		ID:          id,
		State:       snap.State.String(),
		Loading:     snap.Loading,
		Query:       snap.Query,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   elapsed,
	})
}

// pushError is the controller's error-reporting collaborator.
func (s *Server) pushError(query string, err error) {
	s.stateMu.Lock()
	id := s.lastInputID
	s.stateMu.Unlock()

	srvlog.Errorf("search failed for %q: %v", query, err)
	s.sendError(id, err.Error(), 502)
}

// send marshals the given response into msgpack and writes it to the client.
func (s *Server) send(response interface{}) {
	data, err := msgpack.Marshal(response)
	if err != nil {
		srvlog.Errorf("Marshaling response: %v", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.writer.Write(data); err != nil {
		srvlog.Errorf("Writing response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.send(SearchError{
		ID:    id,
		Error: message,
		Code:  code,
	})
}
