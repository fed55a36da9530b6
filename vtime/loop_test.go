package vtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/joeycumines/go-eventloop"
)

// awaitOnLoop runs fn on a fresh, running, event loop, and waits for the
// promise it returns to settle. A rejection is returned as an error.
func awaitOnLoop(t *testing.T, fn func(js *eventloop.JS) *eventloop.ChainedPromise) (any, error) {
	t.Helper()

	loop, err := eventloop.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	js, err := eventloop.NewJS(loop)
	if err != nil {
		t.Fatalf("NewJS() failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = loop.Run(ctx)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	type outcome struct {
		value    any
		rejected bool
	}
	settled := make(chan outcome, 1)

	if err := loop.Submit(func() {
		fn(js).Then(
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
		t.Fatalf("Submit() failed: %v", err)
	}

	select {
	case o := <-settled:
		if !o.rejected {
			return o.value, nil
		}
		if err, ok := o.value.(error); ok {
			return nil, err
		}
		return nil, fmt.Errorf("rejected: %v", o.value)
	case <-ctx.Done():
		t.Fatal("timed out waiting for the promise to settle")
		return nil, nil
	}
}

// newScheduler is for use within awaitOnLoop.
func newScheduler(t *testing.T, js *eventloop.JS, opts ...Option) *Scheduler {
	s, err := New(js, opts...)
	if err != nil {
		t.Errorf("New() failed: %v", err)
		panic(err)
	}
	return s
}

func record(into *[]any) Work {
	return func(_ *Action, state any) error {
		*into = append(*into, state)
		return nil
	}
}
