// Package stream is a minimal push-based observable implementation, with
// time-based operators that run on an injectable [Scheduler].
//
// It models the contract that virtual-time tests rely on: observers receive
// zero or more next notifications, then at most one terminal notification,
// after which the subscription is torn down. None of the types are safe for
// concurrent use, except [Slot].
package stream
