// Package vtime implements a virtual-time scheduler, that runs on an
// [eventloop.Loop], via an [eventloop.JS] adapter.
//
// Actions are queued by target frame, and drained in (frame, insertion)
// order by [Scheduler.Flush]. Between each action, the flush yields to the
// event loop, using a [DrainStrategy], allowing real asynchronous work, such
// as promise continuations, to settle before virtual time advances.
//
// A Scheduler is not safe for concurrent use. All methods must be called
// from the event loop goroutine.
package vtime
