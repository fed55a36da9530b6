package marbles

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-marbles/marble"
	"github.com/joeycumines/go-marbles/stream"
	"github.com/joeycumines/go-marbles/vtime"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestScheduler_Run_whitespace(t *testing.T) {
	loop, js := startLoop(t)
	_, err := await(t, loop, func() *eventloop.ChainedPromise {
		return mustNew(t, js, nil).Run(func(h *RunHelpers) error {
			input := h.Cold(` -a - b -    c |       `, nil, nil)
			output := stream.Pipe(input, stream.ConcatMap(func(v any) stream.Observable {
				return stream.Pipe(stream.Of(v), stream.Delay(10, nil))
			}))
			h.ExpectObservable(output).ToBe(`     -- 9ms a 9ms b 9ms (c|) `, nil, nil)
			h.ExpectSubscriptions(input).ToBe(`  ^- - - - - !`)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestTestScheduler_Run_time(t *testing.T) {
	loop, js := startLoop(t)
	v, err := await(t, loop, func() *eventloop.ChainedPromise {
		x := mustNew(t, js, nil)
		var frames []int64
		return x.Run(func(h *RunHelpers) error {
			frames = append(frames, h.Time(`-----|`), h.Time(`  ---|  `))
			return nil
		}).Then(func(any) any {
			return append(frames, must[int64](t)(x.CreateTime(`-----|`)))
		}, nil)
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 3, 50}, v)
}

func TestTestScheduler_Run_merge(t *testing.T) {
	loop, js := startLoop(t)
	_, err := await(t, loop, func() *eventloop.ChainedPromise {
		return mustNew(t, js, nil).Run(func(h *RunHelpers) error {
			e1 := h.Cold(`-a-c-e|`, nil, nil)
			e2 := h.Cold(`--b-d-f|`, nil, nil)
			h.ExpectObservable(stream.Merge(e1, e2)).ToBe(`-abcdef|`, nil, nil)
			h.ExpectSubscriptions(e1).ToBe(`^-----!`)
			h.ExpectSubscriptions(e2).ToBe(`^------!`)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestTestScheduler_Run_mergeHotCold(t *testing.T) {
	loop, js := startLoop(t)
	_, err := await(t, loop, func() *eventloop.ChainedPromise {
		return mustNew(t, js, nil).Run(func(h *RunHelpers) error {
			e1 := h.Hot(` ^-b-d-f|`, nil, nil)
			e2 := h.Cold(`-a-c-e|`, nil, nil)
			h.ExpectObservable(stream.Merge(e1, e2)).ToBe(`-abcdef|`, nil, nil)
			h.ExpectSubscriptions(e1).ToBe(`^------!`)
			h.ExpectSubscriptions(e2).ToBe(`^-----!`)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestTestScheduler_Run_afterFlush(t *testing.T) {
	loop, js := startLoop(t)
	_, err := await(t, loop, func() *eventloop.ChainedPromise {
		x := mustNew(t, js, nil)
		return x.RunAsync(func(h *RunHelpers) *eventloop.ChainedPromise {
			h.ExpectObservable(h.Cold(`-----|`, nil, nil)).ToBe(`-----|`, nil, nil)
			return h.Flush().Then(func(any) any {
				if now := x.Now(); now != 5 {
					t.Errorf("unexpected frame: %d", now)
				}
				hot := h.Hot(`-a-|`, nil, nil)
				cold := h.Cold(`--b|`, nil, nil)
				h.ExpectObservable(stream.Merge(hot, cold), `^-!`).ToBe(`-a-`, nil, nil)
				h.ExpectSubscriptions(hot).ToBe(`^-!`)
				h.ExpectSubscriptions(cold).ToBe(`^-!`)
				return nil
			}, nil)
		})
	})
	require.NoError(t, err)
}

func TestTestScheduler_Run_debounce(t *testing.T) {
	loop, js := startLoop(t)
	_, err := await(t, loop, func() *eventloop.ChainedPromise {
		return mustNew(t, js, nil).Run(func(h *RunHelpers) error {
			input := h.Cold(`-a-b-c----------|`, nil, nil)
			output := stream.Pipe(input, stream.DebounceTime(5, nil))
			h.ExpectObservable(output).ToBe(`----- 5ms c-----|`, nil, nil)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestTestScheduler_Run_delayLiteral(t *testing.T) {
	loop, js := startLoop(t)
	_, err := await(t, loop, func() *eventloop.ChainedPromise {
		return mustNew(t, js, nil).Run(func(h *RunHelpers) error {
			output := stream.Pipe(h.Cold(`a|`, nil, nil), stream.Delay(10_000, nil))
			h.ExpectObservable(output).ToBe(`10s a|`, nil, nil)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestTestScheduler_Run_hot(t *testing.T) {
	loop, js := startLoop(t)
	_, err := await(t, loop, func() *eventloop.ChainedPromise {
		return mustNew(t, js, nil).Run(func(h *RunHelpers) error {
			source := h.Hot(`--a--^--b--c--|`, Values{`b`: 2, `c`: 3}, nil)
			output := stream.Pipe(source, stream.Map(func(v any) any { return v.(int) * 10 }))
			h.ExpectObservable(output, `^----!`).ToBe(`---b-`, Values{`b`: 20}, nil)
			h.ExpectSubscriptions(source).ToBe(`^----!`)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestTestScheduler_Run_explicitFlush(t *testing.T) {
	loop, js := startLoop(t)
	v, err := await(t, loop, func() *eventloop.ChainedPromise {
		x := mustNew(t, js, nil)
		var lengths []int
		return x.RunAsync(func(h *RunHelpers) *eventloop.ChainedPromise {
			h.ExpectObservable(h.Cold(`--a|`, nil, nil)).ToBe(`--a|`, nil, nil)
			lengths = append(lengths, x.Len())
			return h.Flush().Then(func(any) any {
				lengths = append(lengths, x.Len(), x.PendingExpectations())
				h.ExpectObservable(h.Cold(`-b|`, nil, nil)).ToBe(`-b|`, nil, nil)
				return `flushed`
			}, nil)
		}).Then(func(v any) any {
			return []any{v, lengths, x.Len()}
		}, nil)
	})
	require.NoError(t, err)
	assert.Equal(t, []any{`flushed`, []int{1, 0, 0}, 0}, v)
}

func TestTestScheduler_RunAsync_value(t *testing.T) {
	loop, js := startLoop(t)
	v, err := await(t, loop, func() *eventloop.ChainedPromise {
		return mustNew(t, js, nil).RunAsync(func(h *RunHelpers) *eventloop.ChainedPromise {
			return js.Resolve(`foo`)
		})
	})
	require.NoError(t, err)
	assert.Equal(t, `foo`, v)

	v, err = await(t, loop, func() *eventloop.ChainedPromise {
		return mustNew(t, js, nil).RunAsync(nil)
	})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTestScheduler_Run_state(t *testing.T) {
	loop, js := startLoop(t)
	slot := stream.NewSlot(nil)
	previous := stream.NewSlot(nil)
	slot.SetDelegate(previous)

	type state struct {
		factor    int64
		maxFrames int64
		runMode   bool
		delegate  stream.Scheduler
	}
	var (
		x      *TestScheduler
		during state
	)
	snapshot := func() state {
		return state{x.FrameTimeFactor(), x.MaxFrames(), x.RunMode(), slot.Delegate()}
	}

	for _, tc := range [...]struct {
		name  string
		fn    func(h *RunHelpers) error
		check func(t *testing.T, err error)
	}{
		{
			name: `success`,
			fn:   func(h *RunHelpers) error { return nil },
			check: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: `error`,
			fn:   func(h *RunHelpers) error { return errors.New(`some error`) },
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, `some error`)
			},
		},
		{
			name: `panic`,
			fn:   func(h *RunHelpers) error { panic(`some panic`) },
			check: func(t *testing.T, err error) {
				var panicErr eventloop.PanicError
				if assert.ErrorAs(t, err, &panicErr) {
					assert.Equal(t, `some panic`, panicErr.Value)
				}
			},
		},
		{
			name: `format error`,
			fn: func(h *RunHelpers) error {
				h.Cold(`-^-|`, nil, nil)
				return nil
			},
			check: func(t *testing.T, err error) {
				var fe *marble.FormatError
				assert.ErrorAs(t, err, &fe)
			},
		},
		{
			name: `mismatch`,
			fn: func(h *RunHelpers) error {
				h.ExpectObservable(h.Cold(`-a|`, nil, nil)).ToBe(`-b|`, nil, nil)
				return nil
			},
			check: func(t *testing.T, err error) {
				var mismatch *MismatchError
				assert.ErrorAs(t, err, &mismatch)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var before, after state
			_, err := await(t, loop, func() *eventloop.ChainedPromise {
				x = mustNew(t, js, nil, WithSlot(slot), WithMaxFrames(123))
				before = snapshot()
				return x.Run(func(h *RunHelpers) error {
					during = snapshot()
					return tc.fn(h)
				}).Finally(func() { after = snapshot() })
			})
			tc.check(t, err)

			assert.Equal(t, state{10, 123, false, previous}, before)
			assert.Equal(t, int64(1), during.factor)
			assert.Equal(t, vtime.Unbounded, during.maxFrames)
			assert.True(t, during.runMode)
			assert.NotEqual(t, previous, during.delegate)
			assert.Equal(t, before, after)
		})
	}
}

func TestTestScheduler_RunAsync_asyncFailureRestoresState(t *testing.T) {
	loop, js := startLoop(t)
	slot := stream.NewSlot(nil)
	previous := stream.NewSlot(nil)
	slot.SetDelegate(previous)
	late := errors.New(`late`)

	var (
		x             *TestScheduler
		during, after []any
	)
	snapshot := func() []any {
		return []any{x.FrameTimeFactor(), x.MaxFrames(), x.RunMode(), slot.Delegate()}
	}

	_, err := await(t, loop, func() *eventloop.ChainedPromise {
		x = mustNew(t, js, nil, WithSlot(slot), WithMaxFrames(123))
		return x.RunAsync(func(h *RunHelpers) *eventloop.ChainedPromise {
			h.ExpectObservable(h.Cold(`-a|`, nil, nil)).ToBe(`-a|`, nil, nil)
			return h.Flush().Then(func(any) any {
				during = snapshot()
				return js.Reject(late)
			}, nil)
		}).Finally(func() { after = snapshot() })
	})
	require.ErrorIs(t, err, late)

	require.Len(t, during, 4)
	assert.Equal(t, int64(1), during[0])
	assert.Equal(t, vtime.Unbounded, during[1])
	assert.Equal(t, true, during[2])
	assert.Equal(t, []any{int64(10), int64(123), false, stream.Scheduler(previous)}, after)
}

func TestTestScheduler_Run_pendingWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()

	loop, js := startLoop(t)
	_, err := await(t, loop, func() *eventloop.ChainedPromise {
		return mustNew(t, js, nil, WithLogger(logger)).Run(func(h *RunHelpers) error {
			h.ExpectObservable(h.Cold(`-a|`, nil, nil))
			return nil
		})
	})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.Contains(out, `"lvl":"warning"`), out)
	assert.True(t, strings.Contains(out, `"msg":"run finished with expectations that were never given ToBe"`), out)
	assert.True(t, strings.Contains(out, `"msg":"run started"`), out)
}
