package sequencer

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc"
)

const actionBuffer = 64

type runningEffect struct {
	token  uint64
	cancel context.CancelFunc
}

// Store serializes actions through the reducer and runs the effects it returns.
// Every state change is published to subscribers in order.
type Store struct {
	seq     *Sequencer
	actions chan Action
	done    chan struct{}

	mu    sync.RWMutex
	state State

	subsMu sync.Mutex
	subs   []func(State)

	effectsMu sync.Mutex
	running   map[string]runningEffect
	nextToken uint64
}

// NewStore creates a store holding initial; call Run to start processing
func NewStore(seq *Sequencer, initial State) *Store {
	return &Store{
		seq:     seq,
		actions: make(chan Action, actionBuffer),
		done:    make(chan struct{}),
		state:   initial,
		running: make(map[string]runningEffect),
	}
}

// State returns a snapshot of the current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to receive every new state. fn runs on the store
// goroutine and must not block on Send.
func (s *Store) Subscribe(fn func(State)) {
	s.subsMu.Lock()
	s.subs = append(s.subs, fn)
	s.subsMu.Unlock()
}

// Send queues an action. It is a no-op once the store has stopped.
func (s *Store) Send(a Action) {
	select {
	case s.actions <- a:
	case <-s.done:
	}
}

// Run processes actions until ctx is canceled, then cancels in-flight
// effects and waits for them to return
func (s *Store) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg conc.WaitGroup
	defer func() {
		close(s.done)
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case a := <-s.actions:
			s.dispatch(ctx, &wg, a)
		}
	}
}

func (s *Store) dispatch(ctx context.Context, wg *conc.WaitGroup, a Action) {
	s.mu.Lock()
	effects := s.seq.Reduce(&s.state, a)
	snapshot := s.state
	s.mu.Unlock()

	s.subsMu.Lock()
	subs := make([]func(State), len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn(snapshot)
	}

	for _, eff := range effects {
		s.start(ctx, wg, eff)
	}
}

// start runs eff on its own goroutine, canceling any running effect with the same ID
func (s *Store) start(ctx context.Context, wg *conc.WaitGroup, eff Effect) {
	effCtx, cancel := context.WithCancel(ctx)

	s.effectsMu.Lock()
	if prev, ok := s.running[eff.ID]; ok {
		prev.cancel()
	}
	s.nextToken++
	token := s.nextToken
	s.running[eff.ID] = runningEffect{token: token, cancel: cancel}
	s.effectsMu.Unlock()

	send := func(a Action) {
		if effCtx.Err() != nil {
			return
		}
		s.Send(a)
	}

	wg.Go(func() {
		defer func() {
			s.effectsMu.Lock()
			if cur, ok := s.running[eff.ID]; ok && cur.token == token {
				delete(s.running, eff.ID)
			}
			s.effectsMu.Unlock()
			cancel()
		}()
		eff.Run(effCtx, send)
	})
}
