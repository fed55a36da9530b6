package marbles

import (
	"slices"

	"github.com/joeycumines/go-marbles/marble"
	"github.com/joeycumines/go-marbles/stream"
	"github.com/joeycumines/go-marbles/vtime"
)

// HotSource broadcasts its timeline to whichever subscribers are present
// at the time. It is armed by the first flush after it was created, and
// its frames are relative to the frame it was armed at, which is zero,
// unless it was created after a prior flush.
type HotSource struct {
	scheduler *vtime.Scheduler
	terminal  *marble.Notification
	messages  []marble.Message
	logs      []marble.SubscriptionLog
	observers []*stream.Subscriber
	armed     bool
}

var (
	_ stream.Observable   = (*HotSource)(nil)
	_ marble.Materializer = (*HotSource)(nil)
	_ SubscriptionLogger  = (*HotSource)(nil)
)

// Subscribe adds an observer, and logs the subscription. If the source has
// already terminated, the observer receives the terminal notification
// immediately.
func (x *HotSource) Subscribe(observer stream.Observer) *stream.Subscription {
	s := stream.NewSubscriber(observer)

	index := len(x.logs)
	x.logs = append(x.logs, marble.NewSubscriptionLog(x.scheduler.Now()))
	s.Add(func() { x.logs[index].Unsubscribed = x.scheduler.Now() })

	if x.terminal != nil {
		deliver(s, *x.terminal)
		return &s.Subscription
	}

	x.observers = append(x.observers, s)
	s.Add(func() {
		x.observers = slices.DeleteFunc(x.observers, func(o *stream.Subscriber) bool { return o == s })
	})

	return &s.Subscription
}

// Messages returns the timeline, relative to the frame it is armed at.
func (x *HotSource) Messages() []marble.Message { return slices.Clone(x.messages) }

// Subscriptions returns the subscription log, which is never nil.
func (x *HotSource) Subscriptions() []marble.SubscriptionLog {
	return append(make([]marble.SubscriptionLog, 0, len(x.logs)), x.logs...)
}

func (x *HotSource) arm() {
	if x.armed {
		return
	}
	x.armed = true
	for _, m := range x.messages {
		n := m.Notification
		x.scheduler.Schedule(func(*vtime.Action, any) error {
			x.dispatch(n)
			return nil
		}, m.Frame, nil)
	}
}

func (x *HotSource) dispatch(n marble.Notification) {
	if x.terminal != nil {
		return
	}
	if n.Terminal() {
		x.terminal = &n
	}
	for _, s := range slices.Clone(x.observers) {
		deliver(s, n)
	}
}
