package typeahead

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// fakeProvider records every query it receives. A query with a gate does not
// return until the gate is closed, which lets tests arrange out-of-order
// response arrival. Gated searches deliberately ignore ctx: a superseded
// request may still complete remotely and its effect must be discarded.
type fakeProvider struct {
	mu      sync.Mutex
	calls   []string
	gates   map[string]chan struct{}
	results map[string][]Result
	errs    map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		gates:   make(map[string]chan struct{}),
		results: make(map[string][]Result),
		errs:    make(map[string]error),
	}
}

func (f *fakeProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	gate := f.gates[query]
	results := f.results[query]
	err := f.errs[query]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeProvider) gate(query string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[query] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeProvider) respond(query string, results ...Result) {
	f.mu.Lock()
	f.results[query] = results
	f.mu.Unlock()
}

func (f *fakeProvider) fail(query string, err error) {
	f.mu.Lock()
	f.errs[query] = err
	f.mu.Unlock()
}

func (f *fakeProvider) callCount(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == query {
			n++
		}
	}
	return n
}

func (f *fakeProvider) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Snapshot().State == want
	}, 2*time.Second, 2*time.Millisecond, "controller never reached %s", want)
}

func TestBurstSearchesOnlyLastKeystroke(t *testing.T) {
	provider := newFakeProvider()
	provider.respond("Interstellar", Result{ID: "m1", Title: "Interstellar"})

	c := New(provider, Options{Delay: 40 * time.Millisecond})
	defer c.Close()

	for _, text := range []string{"I", "In", "Int", "Inter", "Interstellar"} {
		c.OnTextChanged(text)
	}

	waitState(t, c, StateReady)

	assert.Equal(t, 1, provider.totalCalls(), "a burst must issue exactly one search")
	assert.Equal(t, 1, provider.callCount("Interstellar"))
	assert.Zero(t, provider.callCount("Inter"))

	snap := c.Snapshot()
	require.Len(t, snap.Suggestions, 1)
	assert.Equal(t, "m1", snap.Suggestions[0].ID)
	assert.False(t, snap.Loading)
}

func TestKeystrokeWithinWindowResetsTimer(t *testing.T) {
	provider := newFakeProvider()
	provider.respond("Interstellar", Result{ID: "m1", Title: "Interstellar"})

	c := New(provider, Options{Delay: 100 * time.Millisecond})
	defer c.Close()

	c.OnTextChanged("Inter")
	time.Sleep(30 * time.Millisecond) // less than the window
	c.OnTextChanged("Interstellar")

	waitState(t, c, StateReady)

	assert.Zero(t, provider.callCount("Inter"), "superseded keystroke must never search")
	assert.Equal(t, 1, provider.callCount("Interstellar"))
}

func TestEmptyTextClearsImmediately(t *testing.T) {
	provider := newFakeProvider()
	provider.respond("dune", Result{ID: "m2", Title: "dune"})

	c := New(provider, Options{Delay: 10 * time.Millisecond})
	defer c.Close()

	c.OnTextChanged("dune")
	waitState(t, c, StateReady)
	calls := provider.totalCalls()

	c.OnTextChanged("")

	// No debounce wait: the clear is synchronous.
	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Suggestions)
	assert.False(t, snap.Loading)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, calls, provider.totalCalls(), "empty text must not issue a search")
}

func TestWhitespaceOnlyStillSearches(t *testing.T) {
	provider := newFakeProvider()

	c := New(provider, Options{Delay: 10 * time.Millisecond})
	defer c.Close()

	c.OnTextChanged("   ")
	waitState(t, c, StateReady)

	assert.Equal(t, 1, provider.callCount("   "))
}

func TestStaleResponseNeverOverwritesNewer(t *testing.T) {
	provider := newFakeProvider()
	q1Gate := provider.gate("q1")
	q2Gate := provider.gate("q2")
	provider.respond("q1", Result{ID: "old", Title: "old result"})
	provider.respond("q2", Result{ID: "new", Title: "new result"})

	c := New(provider, Options{Delay: time.Millisecond})
	defer c.Close()

	c.OnTextChanged("q1")
	require.Eventually(t, func() bool {
		return provider.callCount("q1") == 1
	}, 2*time.Second, time.Millisecond, "q1 search never issued")

	c.OnTextChanged("q2")
	require.Eventually(t, func() bool {
		return provider.callCount("q2") == 1
	}, 2*time.Second, time.Millisecond, "q2 search never issued")

	// q2 responds first, then q1's slow response arrives after.
	close(q2Gate)
	waitState(t, c, StateReady)
	close(q1Gate)
	time.Sleep(30 * time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.Len(t, snap.Suggestions, 1)
	assert.Equal(t, "new", snap.Suggestions[0].ID, "stale q1 response must be discarded")
}

func TestKeystrokeSupersedesInFlightSearch(t *testing.T) {
	provider := newFakeProvider()
	q1Gate := provider.gate("q1")
	provider.respond("q1", Result{ID: "old", Title: "old result"})
	provider.respond("q2", Result{ID: "new", Title: "new result"})

	c := New(provider, Options{Delay: 60 * time.Millisecond})
	defer c.Close()

	c.OnTextChanged("q1")
	require.Eventually(t, func() bool {
		return provider.callCount("q1") == 1
	}, 2*time.Second, time.Millisecond, "q1 search never issued")

	// q2 arrives while q1 is still in flight; q1's response lands inside
	// q2's debounce window.
	c.OnTextChanged("q2")
	close(q1Gate)
	time.Sleep(20 * time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, StateDebouncing, snap.State, "stale q1 response must not settle the controller")
	assert.Empty(t, snap.Suggestions)

	waitState(t, c, StateReady)
	assert.Equal(t, 1, provider.callCount("q2"), "q2 search must still be issued")

	snap = c.Snapshot()
	require.Len(t, snap.Suggestions, 1)
	assert.Equal(t, "new", snap.Suggestions[0].ID)
}

func TestCancelWhileSearching(t *testing.T) {
	provider := newFakeProvider()
	gate := provider.gate("slow")
	provider.respond("slow", Result{ID: "s1", Title: "slow result"})

	c := New(provider, Options{Delay: time.Millisecond})
	defer c.Close()

	c.OnTextChanged("slow")
	waitState(t, c, StateSearching)

	c.Cancel()
	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Suggestions)
	assert.False(t, snap.Loading)

	// In-flight result arrives after the cancel and must be ignored.
	close(gate)
	time.Sleep(30 * time.Millisecond)
	snap = c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Suggestions)
}

func TestSelectReturnsResultAndResets(t *testing.T) {
	provider := newFakeProvider()
	picked := Result{ID: "m3", Title: "arrival"}
	provider.respond("arr", picked)

	c := New(provider, Options{Delay: time.Millisecond})
	defer c.Close()

	c.OnTextChanged("arr")
	waitState(t, c, StateReady)

	got := c.Select(picked)
	assert.Equal(t, picked, got)

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Suggestions)
}

func TestProviderFailureReportsOnce(t *testing.T) {
	provider := newFakeProvider()
	provider.fail("doomed", errors.New("search timeout"))

	var mu sync.Mutex
	var reported []string

	c := New(provider, Options{
		Delay: time.Millisecond,
		OnError: func(query string, err error) {
			mu.Lock()
			reported = append(reported, query)
			mu.Unlock()
		},
	})
	defer c.Close()

	c.OnTextChanged("doomed")
	waitState(t, c, StateFailed)

	snap := c.Snapshot()
	assert.Empty(t, snap.Suggestions)
	assert.False(t, snap.Loading)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.Equal(t, "doomed", reported[0])
}

func TestStaleFailureNotReported(t *testing.T) {
	provider := newFakeProvider()
	gate := provider.gate("bad")
	provider.fail("bad", errors.New("boom"))
	provider.respond("good", Result{ID: "g", Title: "good"})

	errs := make(chan string, 4)
	c := New(provider, Options{
		Delay:   time.Millisecond,
		OnError: func(query string, err error) { errs <- query },
	})
	defer c.Close()

	c.OnTextChanged("bad")
	require.Eventually(t, func() bool {
		return provider.callCount("bad") == 1
	}, 2*time.Second, time.Millisecond)

	c.OnTextChanged("good")
	waitState(t, c, StateReady)

	// Superseded failure arrives late: dropped silently, never reported.
	close(gate)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, StateReady, c.Snapshot().State)
	select {
	case q := <-errs:
		t.Fatalf("stale failure for %q was reported", q)
	default:
	}
}

func TestFlushFiresImmediately(t *testing.T) {
	provider := newFakeProvider()
	provider.respond("now", Result{ID: "n", Title: "now"})

	c := New(provider, Options{Delay: 5 * time.Second})
	defer c.Close()

	c.OnTextChanged("now")
	assert.Equal(t, StateDebouncing, c.Snapshot().State)

	c.Flush()
	waitState(t, c, StateReady)
	assert.Equal(t, 1, provider.callCount("now"))
}

func TestCloseAbandonsEverything(t *testing.T) {
	provider := newFakeProvider()

	c := New(provider, Options{Delay: 5 * time.Millisecond})
	c.OnTextChanged("pending")
	c.Close()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, provider.totalCalls(), "no search after teardown")

	c.OnTextChanged("after close")
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, provider.totalCalls())
}

func TestUpdatesCarrySnapshots(t *testing.T) {
	provider := newFakeProvider()
	provider.respond("abc", Result{ID: "a", Title: "abc"})

	var mu sync.Mutex
	var states []State
	c := New(provider, Options{
		Delay: time.Millisecond,
		OnUpdate: func(snap Snapshot) {
			mu.Lock()
			states = append(states, snap.State)
			mu.Unlock()
		},
	})
	defer c.Close()

	c.OnTextChanged("abc")
	waitState(t, c, StateReady)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, StateDebouncing, states[0])
	assert.Equal(t, StateReady, states[len(states)-1])
	assert.Contains(t, states, StateSearching)
}

func TestUpdateDeliveryMatchesSnapshotOrder(t *testing.T) {
	provider := newFakeProvider()
	provider.respond("final", Result{ID: "f", Title: "final"})

	var mu sync.Mutex
	var frames []Snapshot
	c := New(provider, Options{
		Delay: time.Millisecond,
		OnUpdate: func(snap Snapshot) {
			mu.Lock()
			frames = append(frames, snap)
			mu.Unlock()
		},
	})
	defer c.Close()

	// Let several intermediate searches complete so finish goroutines race
	// the caller's keystroke frames.
	for i := 0; i < 20; i++ {
		q := "k" + string(rune('a'+i))
		provider.respond(q, Result{ID: q, Title: q})
		c.OnTextChanged(q)
		time.Sleep(2 * time.Millisecond)
	}
	c.OnTextChanged("final")

	waitState(t, c, StateReady)
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	assert.Equal(t, StateReady, last.State, "a superseded frame arrived after the settled one")
	assert.Equal(t, "final", last.Query)
	require.Len(t, last.Suggestions, 1)
	assert.Equal(t, "f", last.Suggestions[0].ID)
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:       "idle",
		StateDebouncing: "debouncing",
		StateSearching:  "searching",
		StateReady:      "ready",
		StateFailed:     "failed",
		State(42):       "unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}
