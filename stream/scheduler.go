package stream

import (
	"sync"
	"time"

	"github.com/joeycumines/go-eventloop"
)

// Scheduler runs work after a delay, in milliseconds, or frames, for
// virtual schedulers.
type Scheduler interface {
	Now() int64
	Schedule(work func(), delay int64) *Subscription
}

// Async is the ambient scheduling slot, used by operators given a nil
// Scheduler. It must be given a fallback, or a delegate, before use.
var Async = NewSlot(nil)

// Slot is a Scheduler that forwards to a replaceable delegate, or to its
// fallback, if no delegate is set. It is safe for concurrent use.
type Slot struct {
	fallback Scheduler
	delegate Scheduler
	mu       sync.RWMutex
}

// NewSlot returns a Slot with the given fallback, which may be nil.
func NewSlot(fallback Scheduler) *Slot {
	return &Slot{fallback: fallback}
}

// Delegate returns the current delegate, which may be nil.
func (x *Slot) Delegate() Scheduler {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.delegate
}

// SetDelegate replaces the delegate, returning the previous one.
func (x *Slot) SetDelegate(delegate Scheduler) (previous Scheduler) {
	x.mu.Lock()
	defer x.mu.Unlock()
	previous, x.delegate = x.delegate, delegate
	return
}

// SetFallback replaces the fallback.
func (x *Slot) SetFallback(fallback Scheduler) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.fallback = fallback
}

func (x *Slot) current() Scheduler {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.delegate != nil {
		return x.delegate
	}
	if x.fallback != nil {
		return x.fallback
	}
	panic(`stream: slot has neither a delegate nor a fallback`)
}

func (x *Slot) Now() int64 { return x.current().Now() }

func (x *Slot) Schedule(work func(), delay int64) *Subscription {
	return x.current().Schedule(work, delay)
}

type asyncScheduler struct {
	js *eventloop.JS
}

// NewAsyncScheduler returns a wall-clock Scheduler, using timers on the
// event loop. Now is in Unix milliseconds.
func NewAsyncScheduler(js *eventloop.JS) Scheduler {
	return asyncScheduler{js: js}
}

func (x asyncScheduler) Now() int64 { return time.Now().UnixMilli() }

func (x asyncScheduler) Schedule(work func(), delay int64) *Subscription {
	sub := new(Subscription)
	if delay < 0 {
		delay = 0
	}
	id, err := x.js.SetTimeout(func() {
		if !sub.Closed() {
			work()
		}
	}, int(delay))
	if err != nil {
		// loop is terminated
		sub.Unsubscribe()
		return sub
	}
	sub.Add(func() { _ = x.js.ClearTimeout(id) })
	return sub
}

func orAsync(scheduler Scheduler) Scheduler {
	if scheduler == nil {
		return Async
	}
	return scheduler
}
