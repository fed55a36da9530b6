package vtime

import (
	"container/heap"
	"fmt"
	"math"
	"slices"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/logiface"
)

// Unbounded is the largest frame, used as the default ceiling.
const Unbounded int64 = math.MaxInt64

// Scheduler is a virtual-time scheduler. Instances must be created via
// [New].
type Scheduler struct {
	js        *eventloop.JS
	strategy  DrainStrategy
	logger    *logiface.Logger[logiface.Event]
	queue     actionQueue
	frame     int64
	index     int64
	maxFrames int64
}

// New initializes a Scheduler, which will yield, while flushing, using js.
func New(js *eventloop.JS, opts ...Option) (*Scheduler, error) {
	if js == nil {
		return nil, ErrNilJS
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		js:        js,
		strategy:  cfg.strategy,
		logger:    cfg.logger,
		maxFrames: cfg.maxFrames,
		index:     -1,
	}, nil
}

// JS returns the adapter the scheduler runs on.
func (s *Scheduler) JS() *eventloop.JS { return s.js }

// Logger returns the configured logger, which may be nil.
func (s *Scheduler) Logger() *logiface.Logger[logiface.Event] { return s.logger }

// Now returns the current frame.
func (s *Scheduler) Now() int64 { return s.frame }

// Frame is an alias of Now.
func (s *Scheduler) Frame() int64 { return s.frame }

// MaxFrames returns the frame ceiling.
func (s *Scheduler) MaxFrames() int64 { return s.maxFrames }

// SetMaxFrames sets the frame ceiling. A subsequent Flush will resume from
// where the previous one stopped.
func (s *Scheduler) SetMaxFrames(maxFrames int64) { s.maxFrames = maxFrames }

// Len returns the number of queued actions, including inactive ones.
func (s *Scheduler) Len() int { return len(s.queue) }

// Actions returns the queued actions, in execution order.
func (s *Scheduler) Actions() []*Action {
	actions := slices.Clone(s.queue)
	slices.SortFunc(actions, func(a, b *Action) int {
		if a.frame != b.frame {
			if a.frame < b.frame {
				return -1
			}
			return 1
		}
		if a.index < b.index {
			return -1
		}
		return 1
	})
	return actions
}

// Schedule queues work, to run at the current frame plus delay. The delay
// may be negative. Nil work panics with [ErrNilWork].
func (s *Scheduler) Schedule(work Work, delay int64, state any) *Action {
	if work == nil {
		panic(ErrNilWork)
	}
	a := &Action{
		scheduler: s,
		work:      work,
		state:     state,
		delay:     delay,
		active:    true,
		pos:       -1,
	}
	s.enqueue(a)
	return a
}

// Reschedule replaces action with a new one, sharing the same work, that
// runs at the current frame plus delay. The original is deactivated, but
// will still advance the clock when dequeued, if it was queued. A closed
// action is not rescheduled, and is returned as-is.
func (s *Scheduler) Reschedule(action *Action, state any, delay int64) *Action {
	if action.scheduler != s {
		panic(`vtime: action belongs to a different scheduler`)
	}
	if action.closed {
		return action
	}
	action.active = false
	a := &Action{
		scheduler: s,
		work:      action.work,
		state:     state,
		delay:     delay,
		active:    true,
		pos:       -1,
	}
	action.children = append(action.children, a)
	s.enqueue(a)
	return a
}

func (s *Scheduler) enqueue(a *Action) {
	s.index++
	a.index = s.index
	a.frame = saturatingAdd(s.frame, a.delay)
	heap.Push(&s.queue, a)
}

func (s *Scheduler) remove(a *Action) {
	if a.pos >= 0 {
		heap.Remove(&s.queue, a.pos)
	}
}

// Flush drains queued actions, in order, until the queue is empty, or the
// next action targets a frame beyond the ceiling. The clock is set to the
// frame of each action, prior to it running. After each action, the
// scheduler yields, via the [DrainStrategy].
//
// The returned promise rejects, with an [*ExecutionError], if any action
// fails, in which case every remaining action is unsubscribed.
//
// Flush must be called from the loop goroutine.
func (s *Scheduler) Flush() *eventloop.ChainedPromise {
	p, resolve, reject := s.js.NewChainedPromise()
	s.step(resolve, reject)
	return p
}

func (s *Scheduler) step(resolve eventloop.ResolveFunc, reject eventloop.RejectFunc) {
	for {
		a := s.queue.peek()
		if a == nil {
			resolve(nil)
			return
		}
		if a.frame > s.maxFrames {
			s.logger.Debug().
				Int64(`frame`, s.frame).
				Int64(`next`, a.frame).
				Int64(`max_frames`, s.maxFrames).
				Int(`queued`, len(s.queue)).
				Log(`flush stopped at frame ceiling`)
			resolve(nil)
			return
		}

		heap.Pop(&s.queue)
		s.frame = a.frame

		if !a.active {
			continue
		}

		if err := s.execute(a); err != nil {
			s.logger.Err().
				Err(err).
				Int64(`frame`, a.frame).
				Int64(`index`, a.index).
				Log(`action failed`)
			s.cancel()
			reject(err)
			return
		}

		if err := s.strategy.Yield(s.js, func() { s.step(resolve, reject) }); err != nil {
			s.cancel()
			reject(fmt.Errorf(`vtime: drain strategy: %w`, err))
		}
		return
	}
}

func (s *Scheduler) execute(a *Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eventloop.PanicError{Value: r}
		}
		if err != nil {
			err = &ExecutionError{Frame: a.frame, Index: a.index, Cause: err}
		}
	}()
	return a.work(a, a.state)
}

// cancel unsubscribes every queued action.
func (s *Scheduler) cancel() {
	var n int
	for len(s.queue) != 0 {
		a := heap.Pop(&s.queue).(*Action)
		a.Unsubscribe()
		n++
	}
	if n != 0 {
		s.logger.Debug().
			Int(`count`, n).
			Log(`cancelled queued actions`)
	}
}

func saturatingAdd(a, b int64) int64 {
	c := a + b
	switch {
	case b > 0 && c < a:
		return math.MaxInt64
	case b < 0 && c > a:
		return math.MinInt64
	}
	return c
}
