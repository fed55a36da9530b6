package marbles

import (
	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-marbles/marble"
	"github.com/joeycumines/go-marbles/stream"
	"github.com/joeycumines/go-marbles/vtime"
)

// RunHelpers are passed to the callbacks of Run and RunAsync. Methods
// accepting diagrams panic with a [*marble.FormatError], if the diagram is
// malformed, which fails the run.
type RunHelpers struct {
	scheduler *TestScheduler
}

// Scheduler returns the scheduler performing the run.
func (h *RunHelpers) Scheduler() *TestScheduler { return h.scheduler }

// Cold is [TestScheduler.CreateColdObservable].
func (h *RunHelpers) Cold(diagram string, values Values, errorValue any) *ColdSource {
	source, err := h.scheduler.CreateColdObservable(diagram, values, errorValue)
	if err != nil {
		panic(err)
	}
	return source
}

// Hot is [TestScheduler.CreateHotObservable].
func (h *RunHelpers) Hot(diagram string, values Values, errorValue any) *HotSource {
	source, err := h.scheduler.CreateHotObservable(diagram, values, errorValue)
	if err != nil {
		panic(err)
	}
	return source
}

// Time is [TestScheduler.CreateTime].
func (h *RunHelpers) Time(diagram string) int64 {
	frames, err := h.scheduler.CreateTime(diagram)
	if err != nil {
		panic(err)
	}
	return frames
}

// Flush is [TestScheduler.Flush].
func (h *RunHelpers) Flush() *eventloop.ChainedPromise { return h.scheduler.Flush() }

// ExpectObservable is [TestScheduler.ExpectObservable], with an optional
// subscription diagram.
func (h *RunHelpers) ExpectObservable(source stream.Observable, subscriptionDiagram ...string) *ObservableExpectation {
	var diagram string
	switch len(subscriptionDiagram) {
	case 0:
	case 1:
		diagram = subscriptionDiagram[0]
	default:
		panic(`marbles: at most one subscription diagram may be provided`)
	}
	expectation, err := h.scheduler.ExpectObservable(source, diagram)
	if err != nil {
		panic(err)
	}
	return expectation
}

// ExpectSubscriptions is [TestScheduler.ExpectSubscriptions].
func (h *RunHelpers) ExpectSubscriptions(logs SubscriptionLogger) *SubscriptionExpectation {
	return h.scheduler.ExpectSubscriptions(logs)
}

// Run is RunAsync, for a synchronous callback. A non-nil error fails the
// run, without flushing.
func (x *TestScheduler) Run(fn func(h *RunHelpers) error) *eventloop.ChainedPromise {
	return x.RunAsync(func(h *RunHelpers) *eventloop.ChainedPromise {
		if fn == nil {
			return nil
		}
		if err := fn(h); err != nil {
			return x.JS().Reject(err)
		}
		return nil
	})
}

// RunAsync performs a test in run mode: one frame per character, no frame
// ceiling, literal time spans enabled, and the scheduler installed as the
// delegate of the slot. The callback is invoked in a microtask, and may
// return a promise (or nil), which is awaited prior to a final Flush.
//
// The returned promise resolves to the value of the callback's promise,
// or rejects with the first failure, of the callback, or the flush. The
// prior settings and delegate are always restored, before the returned
// promise settles.
func (x *TestScheduler) RunAsync(fn func(h *RunHelpers) *eventloop.ChainedPromise) *eventloop.ChainedPromise {
	js := x.JS()
	p, resolve, reject := js.NewChainedPromise()

	var (
		prevFactor    = x.factor
		prevMaxFrames = x.MaxFrames()
		prevRunMode   = x.runMode
	)
	x.factor = 1
	x.SetMaxFrames(vtime.Unbounded)
	x.runMode = true
	prevDelegate := x.slot.SetDelegate(x.AsyncScheduler())

	x.logger.Debug().Log(`run started`)

	restore := func() {
		x.factor = prevFactor
		x.SetMaxFrames(prevMaxFrames)
		x.runMode = prevRunMode
		x.slot.SetDelegate(prevDelegate)
		if n := x.PendingExpectations(); n != 0 {
			x.logger.Warning().
				Int(`pending`, n).
				Log(`run finished with expectations that were never given ToBe`)
		}
		x.logger.Debug().Log(`run finished`)
	}
	fail := func(reason any) any {
		restore()
		reject(reason)
		return nil
	}

	if err := js.QueueMicrotask(func() {
		result, err := x.invoke(fn)
		if err != nil {
			fail(err)
			return
		}
		result.Then(func(value any) any {
			x.Flush().Then(func(any) any {
				restore()
				resolve(value)
				return nil
			}, fail)
			return nil
		}, fail)
	}); err != nil {
		fail(err)
	}

	return p
}

// invoke calls fn, recovering panics, and normalizing a nil promise.
func (x *TestScheduler) invoke(fn func(h *RunHelpers) *eventloop.ChainedPromise) (result *eventloop.ChainedPromise, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*marble.FormatError); ok {
				err = e
			} else {
				err = eventloop.PanicError{Value: r}
			}
		}
	}()
	if fn != nil {
		result = fn(&RunHelpers{scheduler: x})
	}
	if result == nil {
		result = x.JS().Resolve(nil)
	}
	return
}
