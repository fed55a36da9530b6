// Package marbles provides deterministic, virtual-time tests for stream
// pipelines running on an event loop, described with marble diagrams.
//
// A [TestScheduler] creates cold and hot sources from diagrams, records
// the timeline of the stream under test, and compares it against an
// expected diagram, once virtual time has been flushed. The [TestScheduler.Run]
// and [TestScheduler.RunAsync] helpers additionally install the scheduler
// as the delegate of a [stream.Slot], so code under test that uses the
// ambient scheduler runs in virtual time, and enable literal time spans,
// e.g. `- 10ms a|`, with one frame per character.
//
// Everything, other than [Await], must be used from the event loop
// goroutine.
//
// See also the [marble] package, for the diagram syntax.
package marbles
