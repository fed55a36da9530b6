package vtime

// Work is the body of an action. The action is passed so that the work may
// reschedule itself, e.g. to implement periodic behavior. A non-nil error
// (or a panic) fails the flush.
type Work func(action *Action, state any) error

// Action is a unit of work scheduled on a Scheduler, at a target frame.
//
// The frame, delay, and state of an Action never change. Rescheduling an
// action deactivates it, and returns a replacement, which is attached as a
// child, i.e. unsubscribing the original also unsubscribes the replacement.
type Action struct {
	scheduler *Scheduler
	work      Work
	state     any
	children  []*Action
	frame     int64
	delay     int64
	index     int64
	pos       int
	active    bool
	closed    bool
}

// Frame returns the absolute frame the action targets.
func (a *Action) Frame() int64 { return a.frame }

// Delay returns the delay, relative to the frame at which it was scheduled.
func (a *Action) Delay() int64 { return a.delay }

// State returns the state the action was scheduled with.
func (a *Action) State() any { return a.state }

// Index returns the insertion index, used to order actions targeting the
// same frame.
func (a *Action) Index() int64 { return a.index }

// Active reports whether the action will be executed, when dequeued.
func (a *Action) Active() bool { return a.active }

// Closed reports whether the action has been unsubscribed.
func (a *Action) Closed() bool { return a.closed }

// Queued reports whether the action is currently queued.
func (a *Action) Queued() bool { return a.pos >= 0 }

// Schedule is shorthand for [Scheduler.Reschedule].
func (a *Action) Schedule(state any, delay int64) *Action {
	return a.scheduler.Reschedule(a, state, delay)
}

// Unsubscribe cancels the action, and any replacements. It is idempotent.
func (a *Action) Unsubscribe() {
	stack := []*Action{a}
	for len(stack) != 0 {
		a := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if a.closed {
			continue
		}
		a.closed = true
		a.active = false
		a.scheduler.remove(a)
		stack = append(stack, a.children...)
		a.children = nil
	}
}
