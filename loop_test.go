package marbles

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/joeycumines/go-eventloop"
)

// startLoop runs a new loop, until the test ends.
func startLoop(t *testing.T) (*eventloop.Loop, *eventloop.JS) {
	t.Helper()

	loop, err := eventloop.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	js, err := eventloop.NewJS(loop)
	if err != nil {
		t.Fatalf("NewJS() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	return loop, js
}

func await(t *testing.T, loop *eventloop.Loop, fn func() *eventloop.ChainedPromise) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := Await(ctx, loop, fn)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal(`timed out waiting for the loop`)
	}
	return v, err
}

// mustNew is for use on the loop goroutine.
func mustNew(t *testing.T, js *eventloop.JS, compare Comparator, opts ...Option) *TestScheduler {
	x, err := New(js, compare, opts...)
	if err != nil {
		t.Errorf("New() failed: %v", err)
		panic(err)
	}
	return x
}

// must is for use on the loop goroutine.
func must[T any](t *testing.T) func(v T, err error) T {
	return func(v T, err error) T {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			panic(err)
		}
		return v
	}
}

type fakeReporter struct {
	errors []string
}

func (*fakeReporter) Helper() {}

func (r *fakeReporter) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}
