// Package cli handles cmd line input and suggestions for DBG and testing various features
package cli

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/pkg/typeahead"
)

// InputHandler processes user input from stdin, driving a debounced
// controller one line per keystroke event. Each line is flushed through the
// debounce window immediately so the loop stays interactive.
type InputHandler struct {
	ctrl        *typeahead.Controller
	updates     chan typeahead.Snapshot
	maxLength   int
	waitTimeout time.Duration
	clilog      *log.Logger
}

// NewInputHandler builds the handler and its controller around the provider.
func NewInputHandler(provider typeahead.Provider, delay time.Duration, limit, maxLength int, waitTimeout time.Duration) *InputHandler {
	h := &InputHandler{
		updates:     make(chan typeahead.Snapshot, 16),
		maxLength:   maxLength,
		waitTimeout: waitTimeout,
		clilog:      logger.New("cli"),
	}
	h.ctrl = typeahead.New(provider, typeahead.Options{
		Delay:    delay,
		Limit:    limit,
		OnUpdate: h.onUpdate,
		OnError: func(query string, err error) {
			h.clilog.Errorf("search failed for %q: %v", query, err)
		},
	})
	return h
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin,
// and passes the trimmed input to handleInput() for processing.
// Loop terminates if an error occurs while reading from stdin
func (h *InputHandler) Start() error {
	defer h.ctrl.Close()

	h.clilog.Print("typeahead CLI")
	reader := bufio.NewReader(os.Stdin)
	h.clilog.Print("type something and press Enter to see the suggestions (empty line clears, Ctrl+C to exit):")

	for {
		h.clilog.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		h.handleInput(line)
	}
}

// handleInput feeds one line into the controller and waits for the search to
// settle. An empty line maps to the clear path: list emptied, back to idle.
func (h *InputHandler) handleInput(text string) {
	if len(text) > h.maxLength {
		h.clilog.Errorf("Input too long: %s", text)
		return
	}

	start := time.Now()
	h.drain()
	h.ctrl.OnTextChanged(text)

	if text == "" {
		h.clilog.Info("cleared")
		return
	}

	// One line is one keystroke burst; skip the debounce wait.
	h.ctrl.Flush()

	snap, ok := h.waitSettled()
	if !ok {
		h.clilog.Warn("timed out waiting for suggestions", "query", text)
		return
	}
	elapsed := time.Since(start)

	switch snap.State {
	case typeahead.StateFailed:
		h.clilog.Error("search failed", "query", text)
	case typeahead.StateReady:
		if len(snap.Suggestions) == 0 {
			h.clilog.Infof("No results found for: '%s'", text)
			return
		}
		h.clilog.Infof("%d results in %v:", len(snap.Suggestions), elapsed)
		for i, r := range snap.Suggestions {
			h.clilog.Printf("  %2d. %s [%s]", i+1, r.Title, r.ID)
		}
	}
}

// waitSettled blocks until the controller reaches Ready or Failed.
func (h *InputHandler) waitSettled() (typeahead.Snapshot, bool) {
	deadline := time.After(h.waitTimeout)
	for {
		select {
		case snap := <-h.updates:
			if snap.State == typeahead.StateReady || snap.State == typeahead.StateFailed {
				return snap, true
			}
		case <-deadline:
			return typeahead.Snapshot{}, false
		}
	}
}

// drain discards leftover frames from a previous line.
func (h *InputHandler) drain() {
	for {
		select {
		case <-h.updates:
		default:
			return
		}
	}
}

func (h *InputHandler) onUpdate(snap typeahead.Snapshot) {
	select {
	case h.updates <- snap:
	default:
		// Renderer fell behind; drop the frame rather than block the controller.
	}
}
