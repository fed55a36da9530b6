package marbles

import (
	"errors"
	"strings"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-marbles/marble"
	"github.com/joeycumines/go-marbles/stream"
	"github.com/joeycumines/go-marbles/vtime"
	"github.com/joeycumines/logiface"
)

type (
	// Values maps diagram characters to values.
	Values = map[string]any

	// TestScheduler is a virtual-time scheduler that understands marble
	// diagrams. Instances must be created via [New].
	TestScheduler struct {
		*vtime.Scheduler
		compare Comparator
		slot    *stream.Slot
		logger  *logiface.Logger[logiface.Event]
		hot     []*HotSource
		tests   []*flushTest
		factor  int64
		runMode bool
	}

	// ObservableExpectation is returned by ExpectObservable, and must be
	// completed by calling ToBe.
	ObservableExpectation struct {
		test  *flushTest
		codec marble.Codec
	}

	// SubscriptionExpectation is returned by ExpectSubscriptions, and must
	// be completed by calling ToBe.
	SubscriptionExpectation struct {
		test  *flushTest
		codec marble.Codec
	}

	flushTest struct {
		actual   func() any
		expected any
		ready    bool
	}

	// innerTimeline records a next value that was itself an observable.
	innerTimeline struct {
		messages []marble.Message
	}

	virtualScheduler struct {
		scheduler *vtime.Scheduler
	}
)

// New initializes a TestScheduler. The comparator is called for each
// expectation, on flush, and defaults to [DeepEqual], if nil.
func New(js *eventloop.JS, compare Comparator, opts ...Option) (*TestScheduler, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	vopts := []vtime.Option{
		vtime.WithMaxFrames(cfg.maxFrames),
		vtime.WithLogger(cfg.logger),
	}
	if cfg.strategy != nil {
		vopts = append(vopts, vtime.WithDrainStrategy(cfg.strategy))
	}
	scheduler, err := vtime.New(js, vopts...)
	if err != nil {
		return nil, err
	}

	if compare == nil {
		compare = DeepEqual
	}

	return &TestScheduler{
		Scheduler: scheduler,
		compare:   compare,
		slot:      cfg.slot,
		logger:    cfg.logger,
		factor:    cfg.factor,
	}, nil
}

// FrameTimeFactor returns the number of frames per diagram character.
func (x *TestScheduler) FrameTimeFactor() int64 { return x.factor }

// RunMode reports whether a Run is in progress.
func (x *TestScheduler) RunMode() bool { return x.runMode }

// Slot returns the slot that Run installs the scheduler into.
func (x *TestScheduler) Slot() *stream.Slot { return x.slot }

// AsyncScheduler returns a view of the scheduler, for use by code under
// test.
func (x *TestScheduler) AsyncScheduler() stream.Scheduler {
	return virtualScheduler{scheduler: x.Scheduler}
}

// PendingExpectations returns the number of expectations that have not
// been completed via ToBe. They are never evaluated.
func (x *TestScheduler) PendingExpectations() (n int) {
	for _, test := range x.tests {
		if !test.ready {
			n++
		}
	}
	return
}

func (x *TestScheduler) codec() marble.Codec {
	return marble.Codec{FrameTimeFactor: x.factor, TimeProgression: x.runMode}
}

// CreateTime returns the frame of the `|` marker, in the diagram.
func (x *TestScheduler) CreateTime(diagram string) (int64, error) {
	return x.codec().Time(diagram)
}

// CreateColdObservable returns a source that replays the diagram, for each
// subscriber. The diagram must not contain `^` or `!`.
func (x *TestScheduler) CreateColdObservable(diagram string, values Values, errorValue any) (*ColdSource, error) {
	if i := strings.IndexByte(diagram, '^'); i >= 0 {
		return nil, &marble.FormatError{Diagram: diagram, Offset: i, Reason: `cold observable cannot have subscription offset "^"`}
	}
	if i := strings.IndexByte(diagram, '!'); i >= 0 {
		return nil, &marble.FormatError{Diagram: diagram, Offset: i, Reason: `cold observable cannot have unsubscription marker "!"`}
	}
	messages, err := x.codec().Parse(diagram, values, errorValue)
	if err != nil {
		return nil, err
	}
	return &ColdSource{scheduler: x.Scheduler, messages: messages}, nil
}

// CreateHotObservable returns a source that emits the diagram, relative to
// its `^` marker (if any), once armed by the next Flush. The diagram must
// not contain `!`.
func (x *TestScheduler) CreateHotObservable(diagram string, values Values, errorValue any) (*HotSource, error) {
	if i := strings.IndexByte(diagram, '!'); i >= 0 {
		return nil, &marble.FormatError{Diagram: diagram, Offset: i, Reason: `hot observable cannot have unsubscription marker "!"`}
	}
	messages, err := x.codec().Parse(diagram, values, errorValue)
	if err != nil {
		return nil, err
	}
	source := &HotSource{scheduler: x.Scheduler, messages: messages}
	x.hot = append(x.hot, source)
	return source, nil
}

// ExpectObservable records the timeline of source, subscribed and
// (optionally) unsubscribed per the subscription diagram, which may be
// empty, to subscribe immediately. Frames are relative to the current
// frame, which only differs from zero after a prior flush.
func (x *TestScheduler) ExpectObservable(source stream.Observable, subscriptionDiagram string) (*ObservableExpectation, error) {
	codec := x.codec()

	window, err := codec.ParseSubscriptions(subscriptionDiagram)
	if err != nil {
		return nil, err
	}
	subscribeFrame := window.Subscribed
	if subscribeFrame == marble.Unbounded {
		subscribeFrame = 0
	}

	origin := x.Now()
	actual := make([]marble.Message, 0)
	test := &flushTest{actual: func() any { return resolveTimeline(actual) }}
	x.tests = append(x.tests, test)

	var subscription *stream.Subscription
	record := func(n marble.Notification) {
		actual = append(actual, marble.Message{Frame: x.Now() - origin, Notification: n})
	}

	x.Schedule(func(*vtime.Action, any) error {
		subscription = source.Subscribe(stream.Observer{
			Next: func(value any) {
				if inner, ok := value.(stream.Observable); ok {
					value = x.materialize(inner)
				}
				record(marble.Next(value))
			},
			Error:    func(err any) { record(marble.Error(err)) },
			Complete: func() { record(marble.Complete()) },
		})
		return nil
	}, subscribeFrame, nil)

	if window.Unsubscribed != marble.Unbounded {
		x.Schedule(func(*vtime.Action, any) error {
			if subscription != nil {
				subscription.Unsubscribe()
			}
			return nil
		}, window.Unsubscribed, nil)
	}

	return &ObservableExpectation{test: test, codec: codec}, nil
}

// materialize records the timeline of an inner observable, relative to the
// frame it was emitted at.
func (x *TestScheduler) materialize(source stream.Observable) *innerTimeline {
	outer := x.Now()
	timeline := &innerTimeline{messages: make([]marble.Message, 0)}
	record := func(n marble.Notification) {
		timeline.messages = append(timeline.messages, marble.Message{Frame: x.Now() - outer, Notification: n})
	}
	source.Subscribe(stream.Observer{
		Next: func(value any) {
			if inner, ok := value.(stream.Observable); ok {
				value = x.materialize(inner)
			}
			record(marble.Next(value))
		},
		Error:    func(err any) { record(marble.Error(err)) },
		Complete: func() { record(marble.Complete()) },
	})
	return timeline
}

// resolveTimeline replaces inner timelines with their messages, as of now.
func resolveTimeline(messages []marble.Message) []marble.Message {
	out := make([]marble.Message, len(messages))
	for i, m := range messages {
		if inner, ok := m.Value.(*innerTimeline); ok {
			m.Value = resolveTimeline(inner.messages)
		}
		out[i] = m
	}
	return out
}

// ExpectSubscriptions compares the subscription log, as of the flush, with
// the diagrams passed to ToBe. Like ExpectObservable, frames are relative
// to the current frame.
func (x *TestScheduler) ExpectSubscriptions(logs SubscriptionLogger) *SubscriptionExpectation {
	origin := x.Now()
	test := &flushTest{actual: func() any { return rebase(logs.Subscriptions(), origin) }}
	x.tests = append(x.tests, test)
	return &SubscriptionExpectation{test: test, codec: x.codec()}
}

// rebase shifts logs to be relative to origin.
func rebase(logs []marble.SubscriptionLog, origin int64) []marble.SubscriptionLog {
	if origin == 0 {
		return logs
	}
	out := make([]marble.SubscriptionLog, len(logs))
	for i, log := range logs {
		if log.Subscribed != marble.Unbounded {
			log.Subscribed -= origin
		}
		if log.Unsubscribed != marble.Unbounded {
			log.Unsubscribed -= origin
		}
		out[i] = log
	}
	return out
}

// ToBe sets the expected timeline, parsed with the settings in effect when
// the expectation was created. Sources may be used as values, to compare
// higher-order timelines. It panics with a [*marble.FormatError], if the
// diagram is malformed.
func (x *ObservableExpectation) ToBe(diagram string, values Values, errorValue any) {
	expected, err := x.codec.ParseExpected(diagram, values, errorValue)
	if err != nil {
		panic(err)
	}
	x.test.expected = expected
	x.test.ready = true
}

// ToBe sets the expected subscription windows, one diagram per
// subscription. It panics with a [*marble.FormatError], if any diagram is
// malformed.
func (x *SubscriptionExpectation) ToBe(diagrams ...string) {
	expected := make([]marble.SubscriptionLog, 0, len(diagrams))
	for _, diagram := range diagrams {
		log, err := x.codec.ParseSubscriptions(diagram)
		if err != nil {
			panic(err)
		}
		expected = append(expected, log)
	}
	x.test.expected = expected
	x.test.ready = true
}

// Flush arms any new hot sources, drains the scheduler, then evaluates
// every completed expectation, in the order they were created. Evaluated
// expectations are removed, while incomplete ones are retained. The
// promise rejects with the drain failure, or with every comparator error,
// joined.
func (x *TestScheduler) Flush() *eventloop.ChainedPromise {
	for len(x.hot) != 0 {
		source := x.hot[0]
		x.hot = x.hot[1:]
		source.arm()
	}

	js := x.JS()
	p, resolve, reject := js.NewChainedPromise()
	x.Scheduler.Flush().Then(
		func(any) any {
			if err := x.evaluate(); err != nil {
				reject(err)
			} else {
				resolve(nil)
			}
			return nil
		},
		func(reason any) any {
			reject(reason)
			return nil
		},
	)
	return p
}

func (x *TestScheduler) evaluate() error {
	tests := x.tests
	x.tests = nil

	var (
		remaining []*flushTest
		errs      []error
	)
	for i, test := range tests {
		if !test.ready {
			remaining = append(remaining, test)
			continue
		}
		panicked, err := x.compareTest(test)
		if panicked {
			remaining = append(remaining, tests[i+1:]...)
			x.tests = append(remaining, x.tests...)
			return err
		}
		if err != nil {
			x.logger.Info().
				Err(err).
				Log(`expectation failed`)
			errs = append(errs, err)
		}
	}

	x.tests = append(remaining, x.tests...)
	return errors.Join(errs...)
}

func (x *TestScheduler) compareTest(test *flushTest) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked, err = true, eventloop.PanicError{Value: r}
		}
	}()
	return false, x.compare(test.actual(), test.expected)
}

func (x virtualScheduler) Now() int64 { return x.scheduler.Now() }

func (x virtualScheduler) Schedule(work func(), delay int64) *stream.Subscription {
	return stream.NewSubscription(x.scheduler.Schedule(func(*vtime.Action, any) error {
		work()
		return nil
	}, delay, nil).Unsubscribe)
}
