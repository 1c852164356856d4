// Package banner serialises unlock notifications.
//
// A Queue shows one banner at a time. Each banner is Showing for a fixed
// duration, then HidingAnimation for a shorter one, then the queue returns
// to Idle and starts the next banner, if any:
//
//	Idle --enqueue--> Showing --ShowFor--> HidingAnimation --HideFor--> Idle
//
// All transitions happen on one goroutine. Enqueue and Flush are commands
// sent to it, so concurrent callers cannot reorder the FIFO or start a
// second timer. Timers come from an injected clock.Clock.
package banner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/badgekeeper/pkg/clock"
	"github.com/daviddao/badgekeeper/pkg/model"
)

const (
	DefaultShowFor = 3 * time.Second
	DefaultHideFor = 350 * time.Millisecond
)

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("banner: queue closed")

// State is the queue's presentation state.
type State int

const (
	Idle State = iota
	Showing
	HidingAnimation
)

func (s State) String() string {
	switch s {
	case Showing:
		return "showing"
	case HidingAnimation:
		return "hiding"
	default:
		return "idle"
	}
}

// EventKind enumerates what observers are told.
type EventKind string

const (
	EventShown   EventKind = "shown"
	EventHiding  EventKind = "hiding"
	EventHidden  EventKind = "hidden"
	EventFlushed EventKind = "flushed"
)

// Event describes one transition. Banner is empty for EventFlushed.
type Event struct {
	Kind    EventKind    `json:"kind"`
	Banner  model.Banner `json:"banner"`
	State   string       `json:"state"`
	Pending int          `json:"pending"`
	Dropped int          `json:"dropped,omitempty"`
	At      time.Time    `json:"at"`
}

// Config holds the two presentation durations. Zero values take the defaults.
type Config struct {
	ShowFor time.Duration
	HideFor time.Duration
}

type cmdKind int

const (
	cmdEnqueue cmdKind = iota
	cmdFlush
)

type command struct {
	kind   cmdKind
	banner model.Banner
	ack    chan int
}

// Queue is a FIFO banner scheduler. Create with New, release with Close.
type Queue struct {
	clock clock.Clock
	cfg   Config

	cmds      chan command
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	mu        sync.RWMutex
	state     State
	current   model.Banner
	pending   int
	observers map[int]func(Event)
	nextObs   int
}

// New starts a queue driven by clk.
func New(clk clock.Clock, cfg Config) *Queue {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.ShowFor <= 0 {
		cfg.ShowFor = DefaultShowFor
	}
	if cfg.HideFor <= 0 {
		cfg.HideFor = DefaultHideFor
	}
	q := &Queue{
		clock:     clk,
		cfg:       cfg,
		cmds:      make(chan command),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		observers: make(map[int]func(Event)),
	}
	go q.run()
	return q
}

// Config returns the effective durations.
func (q *Queue) Config() Config { return q.cfg }

// Enqueue appends a banner and returns once the queue has accepted it. An
// empty ID is filled with a new UUID and a zero EnqueuedAt with the clock's
// time. Returns the banner as queued.
func (q *Queue) Enqueue(b model.Banner) (model.Banner, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.EnqueuedAt.IsZero() {
		b.EnqueuedAt = q.clock.Now()
	}
	ack := make(chan int, 1)
	select {
	case q.cmds <- command{kind: cmdEnqueue, banner: b, ack: ack}:
	case <-q.done:
		return model.Banner{}, ErrClosed
	}
	select {
	case <-ack:
		return b, nil
	case <-q.stopped:
		return model.Banner{}, ErrClosed
	}
}

// Flush dismisses the visible banner, drops everything queued and returns
// to Idle without showing anything else. It returns once the queue is Idle,
// reporting how many banners were discarded (including the visible one).
func (q *Queue) Flush() (int, error) {
	ack := make(chan int, 1)
	select {
	case q.cmds <- command{kind: cmdFlush, ack: ack}:
	case <-q.done:
		return 0, ErrClosed
	}
	select {
	case n := <-ack:
		return n, nil
	case <-q.stopped:
		return 0, ErrClosed
	}
}

// Close stops the queue goroutine. Pending banners are discarded.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
	<-q.stopped
}

// State returns the current presentation state.
func (q *Queue) State() State {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.state
}

// Current returns the banner on screen, if any. A banner in its hiding
// animation still counts as on screen.
func (q *Queue) Current() (model.Banner, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.state == Idle {
		return model.Banner{}, false
	}
	return q.current, true
}

// IsShowing reports whether a banner is on screen.
func (q *Queue) IsShowing() bool { return q.State() != Idle }

// Len returns how many banners wait behind the current one.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.pending
}

// Subscribe registers fn to be called after every transition, on the queue
// goroutine. fn must not block or call back into the queue's Enqueue/Flush.
// The returned func unregisters it.
func (q *Queue) Subscribe(fn func(Event)) (unsubscribe func()) {
	q.mu.Lock()
	id := q.nextObs
	q.nextObs++
	q.observers[id] = fn
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		delete(q.observers, id)
		q.mu.Unlock()
	}
}

// WaitIdle blocks until the queue is Idle with nothing pending.
func (q *Queue) WaitIdle(ctx context.Context) error {
	idle := make(chan struct{}, 1)
	unsub := q.Subscribe(func(e Event) {
		if e.State == Idle.String() && e.Pending == 0 {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})
	defer unsub()

	if q.State() == Idle && q.Len() == 0 {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
		return ErrClosed
	}
}

func (q *Queue) run() {
	defer close(q.stopped)

	var (
		fifo    []model.Banner
		state   = Idle
		current model.Banner
		timer   clock.Timer
		timerC  <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, timerC = nil, nil
	}
	arm := func(d time.Duration) {
		timer = q.clock.NewTimer(d)
		timerC = timer.C()
	}
	showNext := func() {
		if len(fifo) == 0 {
			return
		}
		current, fifo = fifo[0], fifo[1:]
		state = Showing
		arm(q.cfg.ShowFor)
		q.publish(state, current, len(fifo), Event{Kind: EventShown, Banner: current})
	}

	for {
		select {
		case <-q.done:
			stopTimer()
			return

		case cmd := <-q.cmds:
			switch cmd.kind {
			case cmdEnqueue:
				fifo = append(fifo, cmd.banner)
				if state == Idle {
					showNext()
				} else {
					q.setPending(len(fifo))
				}
				cmd.ack <- len(fifo)
			case cmdFlush:
				stopTimer()
				dropped := len(fifo)
				if state != Idle {
					dropped++
				}
				fifo = nil
				state = Idle
				current = model.Banner{}
				q.publish(state, current, 0, Event{Kind: EventFlushed, Dropped: dropped})
				cmd.ack <- dropped
			}

		case <-timerC:
			timer, timerC = nil, nil
			switch state {
			case Showing:
				state = HidingAnimation
				arm(q.cfg.HideFor)
				q.publish(state, current, len(fifo), Event{Kind: EventHiding, Banner: current})
			case HidingAnimation:
				hidden := current
				state = Idle
				current = model.Banner{}
				q.publish(state, current, len(fifo), Event{Kind: EventHidden, Banner: hidden})
				showNext()
			}
		}
	}
}

func (q *Queue) setPending(n int) {
	q.mu.Lock()
	q.pending = n
	q.mu.Unlock()
}

// publish records the observable state and then notifies observers.
func (q *Queue) publish(state State, current model.Banner, pending int, e Event) {
	q.mu.Lock()
	q.state = state
	q.current = current
	q.pending = pending
	obs := make([]func(Event), 0, len(q.observers))
	for _, fn := range q.observers {
		obs = append(obs, fn)
	}
	q.mu.Unlock()

	e.State = state.String()
	e.Pending = pending
	e.At = q.clock.Now()
	for _, fn := range obs {
		fn(e)
	}
}
