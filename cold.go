package marbles

import (
	"slices"

	"github.com/joeycumines/go-marbles/marble"
	"github.com/joeycumines/go-marbles/stream"
	"github.com/joeycumines/go-marbles/vtime"
)

type (
	// SubscriptionLogger is implemented by sources that record their
	// subscription windows, i.e. [ColdSource] and [HotSource].
	SubscriptionLogger interface {
		Subscriptions() []marble.SubscriptionLog
	}

	// ColdSource replays its timeline, relative to the frame of each
	// subscription, independently for every subscriber.
	ColdSource struct {
		scheduler *vtime.Scheduler
		messages  []marble.Message
		logs      []marble.SubscriptionLog
	}
)

var (
	_ stream.Observable   = (*ColdSource)(nil)
	_ marble.Materializer = (*ColdSource)(nil)
	_ SubscriptionLogger  = (*ColdSource)(nil)
)

// Subscribe schedules every message, relative to the current frame, and
// logs the subscription. The log entry is closed when the subscription is,
// including after a terminal notification.
func (x *ColdSource) Subscribe(observer stream.Observer) *stream.Subscription {
	s := stream.NewSubscriber(observer)

	index := len(x.logs)
	x.logs = append(x.logs, marble.NewSubscriptionLog(x.scheduler.Now()))
	s.Add(func() { x.logs[index].Unsubscribed = x.scheduler.Now() })

	for _, m := range x.messages {
		n := m.Notification
		s.Add(x.scheduler.Schedule(func(*vtime.Action, any) error {
			deliver(s, n)
			return nil
		}, m.Frame, nil).Unsubscribe)
	}

	return &s.Subscription
}

// Messages returns the timeline, relative to subscription.
func (x *ColdSource) Messages() []marble.Message { return slices.Clone(x.messages) }

// Subscriptions returns the subscription log, which is never nil.
func (x *ColdSource) Subscriptions() []marble.SubscriptionLog {
	return append(make([]marble.SubscriptionLog, 0, len(x.logs)), x.logs...)
}

func deliver(s *stream.Subscriber, n marble.Notification) {
	switch n.Kind {
	case marble.KindNext:
		s.Next(n.Value)
	case marble.KindError:
		s.Error(n.Error)
	case marble.KindComplete:
		s.Complete()
	}
}
