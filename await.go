package marbles

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeycumines/go-eventloop"
)

// ErrRejected wraps rejection reasons that are not errors, see Await.
var ErrRejected = errors.New(`marbles: promise rejected`)

// Await submits fn to the loop, then blocks until the promise it returns
// (if any) settles, or ctx is done. A rejection is returned as an error,
// wrapping [ErrRejected] if the reason was not an error. The loop must be
// running, and Await must not be called from the loop goroutine.
func Await(ctx context.Context, loop *eventloop.Loop, fn func() *eventloop.ChainedPromise) (any, error) {
	type outcome struct {
		value    any
		rejected bool
	}
	settled := make(chan outcome, 1)

	if err := loop.Submit(func() {
		var p *eventloop.ChainedPromise
		func() {
			defer func() {
				if r := recover(); r != nil {
					settled <- outcome{value: eventloop.PanicError{Value: r}, rejected: true}
				}
			}()
			p = fn()
			if p == nil {
				settled <- outcome{}
			}
		}()
		if p == nil {
			return
		}
		p.Then(
			func(v any) any {
				settled <- outcome{value: v}
				return nil
			},
			func(r any) any {
				settled <- outcome{value: r, rejected: true}
				return nil
			},
		)
	}); err != nil {
		return nil, err
	}

	select {
	case o := <-settled:
		if !o.rejected {
			return o.value, nil
		}
		if err, ok := o.value.(error); ok {
			return nil, err
		}
		return nil, fmt.Errorf(`%w: %v`, ErrRejected, o.value)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
