package vtime

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// schedulerOptions holds configuration for a [Scheduler].
type schedulerOptions struct {
	strategy  DrainStrategy
	logger    *logiface.Logger[logiface.Event]
	maxFrames int64
}

// Option configures a [Scheduler], see [New].
type Option interface {
	applyOption(*schedulerOptions) error
}

// schedulerOptionImpl implements [Option] via a closure.
type schedulerOptionImpl struct {
	fn func(*schedulerOptions) error
}

func (o *schedulerOptionImpl) applyOption(opts *schedulerOptions) error {
	return o.fn(opts)
}

// WithDrainStrategy configures how the scheduler yields to the event loop,
// between actions. Defaults to [UsingSetImmediate].
func WithDrainStrategy(strategy DrainStrategy) Option {
	return &schedulerOptionImpl{fn: func(opts *schedulerOptions) error {
		if strategy == nil {
			return ErrNilStrategy
		}
		opts.strategy = strategy
		return nil
	}}
}

// WithMaxFrames configures the frame ceiling. Flush stops, leaving actions
// queued, once the next action targets a frame beyond it. Defaults to
// [Unbounded].
func WithMaxFrames(maxFrames int64) Option {
	return &schedulerOptionImpl{fn: func(opts *schedulerOptions) error {
		if maxFrames < 0 {
			return errors.New(`vtime: max frames must not be negative`)
		}
		opts.maxFrames = maxFrames
		return nil
	}}
}

// WithLogger configures a logger. Nil disables logging, which is the
// default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &schedulerOptionImpl{fn: func(opts *schedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveOptions applies the given options to the defaults.
func resolveOptions(opts []Option) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		maxFrames: Unbounded,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.strategy == nil {
		cfg.strategy = UsingSetImmediate()
	}
	return cfg, nil
}
