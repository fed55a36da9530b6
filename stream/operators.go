package stream

// Pipe applies operators to source, in order.
func Pipe(source Observable, operators ...Operator) Observable {
	for _, op := range operators {
		source = op(source)
	}
	return source
}

// Of emits each value, then completes, synchronously.
func Of(values ...any) Observable {
	return Func(func(s *Subscriber) func() {
		for _, v := range values {
			if s.Closed() {
				return nil
			}
			s.Next(v)
		}
		s.Complete()
		return nil
	})
}

// Merge subscribes to every source, forwarding all next notifications,
// and completes once all of them have completed.
func Merge(sources ...Observable) Observable {
	return Func(func(s *Subscriber) func() {
		active := len(sources)
		if active == 0 {
			s.Complete()
			return nil
		}
		for _, source := range sources {
			if s.Closed() {
				break
			}
			inner := source.Subscribe(Observer{
				Next:  s.Next,
				Error: s.Error,
				Complete: func() {
					active--
					if active == 0 {
						s.Complete()
					}
				},
			})
			s.Add(inner.Unsubscribe)
		}
		return nil
	})
}

// Map transforms each value.
func Map(project func(value any) any) Operator {
	return func(source Observable) Observable {
		return Func(func(s *Subscriber) func() {
			return source.Subscribe(Observer{
				Next:     func(v any) { s.Next(project(v)) },
				Error:    s.Error,
				Complete: s.Complete,
			}).Unsubscribe
		})
	}
}

// Delay shifts next and complete notifications later, by delay. Errors are
// forwarded immediately. A nil scheduler means [Async].
func Delay(delay int64, scheduler Scheduler) Operator {
	return func(source Observable) Observable {
		return Func(func(s *Subscriber) func() {
			scheduler := orAsync(scheduler)
			return source.Subscribe(Observer{
				Next: func(v any) {
					s.Add(scheduler.Schedule(func() { s.Next(v) }, delay).Unsubscribe)
				},
				Error: s.Error,
				Complete: func() {
					s.Add(scheduler.Schedule(s.Complete, delay).Unsubscribe)
				},
			}).Unsubscribe
		})
	}
}

// ConcatMap projects each value to an inner Observable, subscribing to
// them one at a time, in order. Values that arrive while an inner
// Observable is active are buffered.
func ConcatMap(project func(value any) Observable) Operator {
	return func(source Observable) Observable {
		return Func(func(s *Subscriber) func() {
			var (
				buffer []any
				active bool
				done   bool
				start  func(v any)
			)
			start = func(v any) {
				active = true
				inner := project(v).Subscribe(Observer{
					Next:  s.Next,
					Error: s.Error,
					Complete: func() {
						active = false
						if len(buffer) != 0 {
							v := buffer[0]
							buffer = buffer[1:]
							start(v)
						} else if done {
							s.Complete()
						}
					},
				})
				s.Add(inner.Unsubscribe)
			}
			return source.Subscribe(Observer{
				Next: func(v any) {
					if active {
						buffer = append(buffer, v)
					} else {
						start(v)
					}
				},
				Error: s.Error,
				Complete: func() {
					done = true
					if !active && len(buffer) == 0 {
						s.Complete()
					}
				},
			}).Unsubscribe
		})
	}
}

// DebounceTime emits the latest value, once no other value has arrived
// for the given duration. On complete, any pending value is emitted, prior
// to completing. A nil scheduler means [Async].
func DebounceTime(duration int64, scheduler Scheduler) Operator {
	return func(source Observable) Observable {
		return Func(func(s *Subscriber) func() {
			scheduler := orAsync(scheduler)
			var (
				pending *Subscription
				value   any
				has     bool
			)
			emit := func() {
				if has {
					v := value
					value, has = nil, false
					s.Next(v)
				}
			}
			cancel := func() {
				if pending != nil {
					pending.Unsubscribe()
					pending = nil
				}
			}
			s.Add(cancel)
			return source.Subscribe(Observer{
				Next: func(v any) {
					value, has = v, true
					cancel()
					pending = scheduler.Schedule(func() {
						pending = nil
						emit()
					}, duration)
				},
				Error: s.Error,
				Complete: func() {
					cancel()
					emit()
					s.Complete()
				},
			}).Unsubscribe
		})
	}
}
