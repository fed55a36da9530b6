package vtime

import (
	"github.com/joeycumines/go-eventloop"
)

// DefaultChainLength is the chain length conventionally used with
// [UsingMicrotaskChain].
const DefaultChainLength = 10

type (
	// DrainStrategy yields to the event loop, between the actions of a
	// flush. Implementations must call next exactly once, unless they
	// return an error, in which case next must not be called.
	DrainStrategy interface {
		Yield(js *eventloop.JS, next func()) error
	}

	// DrainStrategyFunc implements [DrainStrategy].
	DrainStrategyFunc func(js *eventloop.JS, next func()) error
)

var _ DrainStrategy = DrainStrategyFunc(nil)

func (f DrainStrategyFunc) Yield(js *eventloop.JS, next func()) error { return f(js, next) }

// UsingSetImmediate yields until the next turn of the loop, via
// [eventloop.JS.SetImmediate]. This is the default.
func UsingSetImmediate() DrainStrategy {
	return DrainStrategyFunc(func(js *eventloop.JS, next func()) error {
		_, err := js.SetImmediate(next)
		return err
	})
}

// UsingSetTimeout yields via a zero delay [eventloop.JS.SetTimeout].
func UsingSetTimeout() DrainStrategy {
	return DrainStrategyFunc(func(js *eventloop.JS, next func()) error {
		_, err := js.SetTimeout(next, 0)
		return err
	})
}

// UsingMicrotaskChain yields after n+1 microtask hops. Promise chains
// started prior to the yield, that are shorter than n, will settle, but
// longer ones may not. Negative n panics.
func UsingMicrotaskChain(n int) DrainStrategy {
	if n < 0 {
		panic(`vtime: negative microtask chain length`)
	}
	return DrainStrategyFunc(func(js *eventloop.JS, next func()) error {
		return hop(js, n, next)
	})
}

func hop(js *eventloop.JS, n int, next func()) error {
	return js.QueueMicrotask(func() {
		if n == 0 {
			next()
			return
		}
		// only fails if the loop is terminated
		if err := hop(js, n-1, next); err != nil {
			next()
		}
	})
}
