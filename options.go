package marbles

import (
	"errors"

	"github.com/joeycumines/go-marbles/marble"
	"github.com/joeycumines/go-marbles/stream"
	"github.com/joeycumines/go-marbles/vtime"
	"github.com/joeycumines/logiface"
)

// DefaultMaxFrames is the default frame ceiling of a TestScheduler.
const DefaultMaxFrames int64 = 750

// testSchedulerOptions holds configuration for a [TestScheduler].
type testSchedulerOptions struct {
	strategy  vtime.DrainStrategy
	logger    *logiface.Logger[logiface.Event]
	slot      *stream.Slot
	maxFrames int64
	factor    int64
}

// Option configures a [TestScheduler], see [New].
type Option interface {
	applyOption(*testSchedulerOptions) error
}

// testSchedulerOptionImpl implements [Option] via a closure.
type testSchedulerOptionImpl struct {
	fn func(*testSchedulerOptions) error
}

func (o *testSchedulerOptionImpl) applyOption(opts *testSchedulerOptions) error {
	return o.fn(opts)
}

// WithDrainStrategy configures how the scheduler yields to the event loop,
// see [vtime.WithDrainStrategy].
func WithDrainStrategy(strategy vtime.DrainStrategy) Option {
	return &testSchedulerOptionImpl{fn: func(opts *testSchedulerOptions) error {
		if strategy == nil {
			return vtime.ErrNilStrategy
		}
		opts.strategy = strategy
		return nil
	}}
}

// WithMaxFrames configures the frame ceiling, used outside of Run.
// Defaults to [DefaultMaxFrames].
func WithMaxFrames(maxFrames int64) Option {
	return &testSchedulerOptionImpl{fn: func(opts *testSchedulerOptions) error {
		if maxFrames < 0 {
			return errors.New(`marbles: max frames must not be negative`)
		}
		opts.maxFrames = maxFrames
		return nil
	}}
}

// WithFrameTimeFactor configures the number of frames per diagram
// character, used outside of Run. Defaults to
// [marble.DefaultFrameTimeFactor].
func WithFrameTimeFactor(factor int64) Option {
	return &testSchedulerOptionImpl{fn: func(opts *testSchedulerOptions) error {
		if factor <= 0 {
			return errors.New(`marbles: frame time factor must be positive`)
		}
		opts.factor = factor
		return nil
	}}
}

// WithSlot configures the scheduling slot that Run installs the scheduler
// into. Defaults to [stream.Async].
func WithSlot(slot *stream.Slot) Option {
	return &testSchedulerOptionImpl{fn: func(opts *testSchedulerOptions) error {
		if slot == nil {
			return errors.New(`marbles: slot must not be nil`)
		}
		opts.slot = slot
		return nil
	}}
}

// WithLogger configures a logger, shared with the underlying
// [vtime.Scheduler].
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &testSchedulerOptionImpl{fn: func(opts *testSchedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveOptions applies the given options to the defaults.
func resolveOptions(opts []Option) (*testSchedulerOptions, error) {
	cfg := &testSchedulerOptions{
		slot:      stream.Async,
		maxFrames: DefaultMaxFrames,
		factor:    marble.DefaultFrameTimeFactor,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
