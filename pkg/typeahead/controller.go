package typeahead

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultDelay is the debounce window applied when Options.Delay is zero.
const DefaultDelay = 1000 * time.Millisecond

// DefaultLimit caps suggestions per search when Options.Limit is zero.
const DefaultLimit = 24

// Options configures a Controller.
type Options struct {
	// Delay is the debounce window. Each keystroke resets it; only the last
	// keystroke inside a window results in a search.
	Delay time.Duration

	// Limit is passed through to the provider on every search.
	Limit int

	// OnUpdate is invoked after every observable state change with a
	// consistent snapshot. Optional.
	OnUpdate func(Snapshot)

	// OnError receives provider failures for the still-current search.
	// Stale failures are dropped silently. Optional.
	OnError func(query string, err error)
}

// Controller debounces keystroke events and issues at most one logically
// current search at a time. A generation counter tags every issued search so
// a slow response to a superseded query can never overwrite suggestions
// computed for a later one, regardless of arrival order.
//
// All entry points are safe for concurrent use; internally a single mutex
// owns the timer, the generation counter and the suggestion list.
type Controller struct {
	provider Provider
	delay    time.Duration
	limit    int
	onUpdate func(Snapshot)
	onError  func(string, error)

	mu          sync.Mutex
	timer       *time.Timer
	timerSeq    uint64
	generation  uint64
	cancel      context.CancelFunc
	state       State
	loading     bool
	pending     string
	suggestions []Result
	closed      bool

	// notifyMu serializes OnUpdate delivery so frames arrive in snapshot
	// order even when the timer goroutine and a caller race.
	notifyMu sync.Mutex
}

// New creates a Controller in front of the given provider.
func New(provider Provider, opts Options) *Controller {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Controller{
		provider: provider,
		delay:    delay,
		limit:    limit,
		onUpdate: opts.OnUpdate,
		onError:  opts.OnError,
		state:    StateIdle,
	}
}

// OnTextChanged records text as the pending query and reschedules the
// debounce timer. Empty text clears the suggestion list immediately and no
// search is issued. Whitespace-only text is not special-cased.
//
// This call is fire-and-forget: it never blocks on the provider and never
// returns an error.
func (c *Controller) OnTextChanged(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.pending = text

	if text == "" {
		c.resetLocked()
		c.publish()
		return
	}

	// A newer keystroke supersedes any in-flight search. Its response, if
	// it ever arrives, must not touch the list.
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false

	c.state = StateDebouncing
	c.timerSeq++
	seq := c.timerSeq
	c.timer = time.AfterFunc(c.delay, func() { c.fire(seq) })
	c.publish()
}

// Cancel stops any pending timer, invalidates any in-flight search and
// resets to Idle with an empty suggestion list.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.resetLocked()
	c.publish()
}

// Select hands the chosen result back to the caller. A selection supersedes
// any further search, so the controller cancels itself first.
func (c *Controller) Select(r Result) Result {
	c.Cancel()
	log.Debugf("suggestion selected: %s", r.ID)
	return r
}

// Flush fires a pending debounce immediately instead of waiting out the
// window. No-op unless the controller is debouncing.
func (c *Controller) Flush() {
	c.mu.Lock()
	if c.closed || c.state != StateDebouncing {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.timerSeq++
	seq := c.timerSeq
	c.mu.Unlock()
	c.fire(seq)
}

// Close tears the controller down: timer cancelled, in-flight search
// abandoned. Entry points become no-ops afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.resetLocked()
	c.closed = true
	c.mu.Unlock()
}

// Snapshot returns a consistent view for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// fire runs when the debounce window elapses. A stale seq means a newer
// keystroke, a cancel or a close invalidated this timer after it was
// already committed to run, so it must not search.
func (c *Controller) fire(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.timerSeq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	query := c.pending
	limit := c.limit

	c.generation++
	gen := c.generation
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.state = StateSearching
	c.loading = true
	c.suggestions = nil
	c.publish()

	log.Debugf("search issued: %q (generation %d)", query, gen)

	go func() {
		results, err := c.provider.Search(ctx, query, limit)
		c.finish(gen, query, results, err)
	}()
}

// finish applies a provider outcome, unless a newer keystroke has since
// bumped the generation, in which case the outcome is dropped silently.
func (c *Controller) finish(gen uint64, query string, results []Result, err error) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		log.Debugf("discarding stale result for %q (generation %d)", query, gen)
		return
	}
	c.loading = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if err != nil {
		c.state = StateFailed
		c.suggestions = nil
		onError := c.onError
		c.publish()
		log.Errorf("search failed for %q: %v", query, err)
		if onError != nil {
			onError(query, err)
		}
		return
	}

	c.suggestions = results
	c.state = StateReady
	c.publish()
}

// resetLocked bumps the generation so an in-flight result is invalidated,
// and returns the controller to Idle with nothing listed.
func (c *Controller) resetLocked() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.suggestions = nil
	c.loading = false
	c.state = StateIdle
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerSeq++
}

func (c *Controller) snapshotLocked() Snapshot {
	var list []Result
	if len(c.suggestions) > 0 {
		list = make([]Result, len(c.suggestions))
		copy(list, c.suggestions)
	}
	return Snapshot{
		State:       c.state,
		Loading:     c.loading,
		Query:       c.pending,
		Suggestions: list,
	}
}

// publish delivers the current snapshot to OnUpdate. Must be called with
// c.mu held; releases it. notifyMu is taken before c.mu is released so
// delivery order always matches snapshot order.
func (c *Controller) publish() {
	snap := c.snapshotLocked()
	c.notifyMu.Lock()
	c.mu.Unlock()
	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
	c.notifyMu.Unlock()
}
