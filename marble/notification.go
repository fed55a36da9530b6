package marble

import (
	"fmt"
	"math"
)

const (
	// DefaultFrameTimeFactor is the number of frames each `-` (or event)
	// occupies, unless otherwise configured.
	DefaultFrameTimeFactor int64 = 10

	// Unbounded is the frame value used to model "never", e.g. a
	// subscription that was never unsubscribed.
	Unbounded int64 = math.MaxInt64
)

// Kind enumerates the notification kinds.
type Kind int

const (
	// KindNext is a value notification, see [Next].
	KindNext Kind = iota
	// KindError is a terminal error notification, see [Error].
	KindError
	// KindComplete is a terminal completion notification, see [Complete].
	KindComplete
)

type (
	// Notification is a single observed event. For KindNext, Value is set,
	// for KindError, Error is set.
	Notification struct {
		Value any
		Error any
		Kind  Kind
	}

	// Message is a Notification observed at a given frame.
	Message struct {
		Notification
		Frame int64
	}

	// SubscriptionLog records one subscription window, in frames.
	// Unsubscribed is [Unbounded] if it was never unsubscribed.
	SubscriptionLog struct {
		Subscribed   int64
		Unsubscribed int64
	}

	// Materializer is implemented by sources that can expose their
	// notification timeline, allowing them to be used as expected values.
	Materializer interface {
		Messages() []Message
	}
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindComplete:
		return "complete"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Next returns a next notification.
func Next(value any) Notification { return Notification{Kind: KindNext, Value: value} }

// Error returns an error notification.
func Error(err any) Notification { return Notification{Kind: KindError, Error: err} }

// Complete returns a complete notification.
func Complete() Notification { return Notification{Kind: KindComplete} }

// Terminal reports whether the notification is an error or complete.
func (n Notification) Terminal() bool { return n.Kind == KindError || n.Kind == KindComplete }

func (n Notification) String() string {
	switch n.Kind {
	case KindNext:
		return fmt.Sprintf("next(%v)", n.Value)
	case KindError:
		return fmt.Sprintf("error(%v)", n.Error)
	default:
		return n.Kind.String()
	}
}

// NewSubscriptionLog returns a window that is still subscribed.
func NewSubscriptionLog(subscribed int64) SubscriptionLog {
	return SubscriptionLog{Subscribed: subscribed, Unsubscribed: Unbounded}
}
