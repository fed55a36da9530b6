package stream

type (
	// Observer receives notifications. Nil fields are ignored.
	Observer struct {
		Next     func(value any)
		Error    func(err any)
		Complete func()
	}

	// Observable is a source of notifications.
	Observable interface {
		Subscribe(observer Observer) *Subscription
	}

	// Operator transforms an Observable.
	Operator func(source Observable) Observable

	// Func implements Observable, by calling the producer for each
	// subscription. The returned teardown, if non-nil, runs on unsubscribe.
	Func func(subscriber *Subscriber) (teardown func())
)

// Subscription is a handle to a cancellable resource. The zero value is an
// open subscription.
type Subscription struct {
	teardowns []func()
	closed    bool
}

// Subscriber is the Subscription passed to producers, which guards the
// Observer contract, and is unsubscribed after a terminal notification.
type Subscriber struct {
	Subscription
	destination Observer
	stopped     bool
}

// NewSubscription returns an open subscription, with an optional teardown.
func NewSubscription(teardown func()) *Subscription {
	s := new(Subscription)
	s.Add(teardown)
	return s
}

// Add registers a teardown, which runs immediately if already closed.
func (s *Subscription) Add(teardown func()) {
	if teardown == nil {
		return
	}
	if s.closed {
		teardown()
		return
	}
	s.teardowns = append(s.teardowns, teardown)
}

// Unsubscribe closes the subscription, running teardowns in the order they
// were added. It is idempotent.
func (s *Subscription) Unsubscribe() {
	if s.closed {
		return
	}
	s.closed = true
	teardowns := s.teardowns
	s.teardowns = nil
	for _, fn := range teardowns {
		fn()
	}
}

// Closed reports whether Unsubscribe has been called.
func (s *Subscription) Closed() bool { return s.closed }

// NewSubscriber wraps an observer.
func NewSubscriber(destination Observer) *Subscriber {
	return &Subscriber{destination: destination}
}

func (s *Subscriber) Next(value any) {
	if s.stopped || s.closed {
		return
	}
	if s.destination.Next != nil {
		s.destination.Next(value)
	}
}

func (s *Subscriber) Error(err any) {
	if s.stopped || s.closed {
		return
	}
	s.stopped = true
	if s.destination.Error != nil {
		s.destination.Error(err)
	}
	s.Unsubscribe()
}

func (s *Subscriber) Complete() {
	if s.stopped || s.closed {
		return
	}
	s.stopped = true
	if s.destination.Complete != nil {
		s.destination.Complete()
	}
	s.Unsubscribe()
}

// Observer returns an Observer that forwards to the subscriber.
func (s *Subscriber) Observer() Observer {
	return Observer{Next: s.Next, Error: s.Error, Complete: s.Complete}
}

func (f Func) Subscribe(observer Observer) *Subscription {
	s := NewSubscriber(observer)
	s.Add(f(s))
	return &s.Subscription
}
