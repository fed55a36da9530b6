// Package marble implements the marble diagram language, used to describe
// timelines of notifications, and subscription windows, as strings.
//
// A diagram is read left to right. Each `-` advances time by one step (the
// frame time factor), each other printable character emits a value at the
// current frame, `|` completes, and `#` errors. Events enclosed by `(` and
// `)` share the frame at which the group opened. A `^` marks frame zero,
// and literal time spans, e.g. `10ms`, `1.5s` or `2m`, advance time
// directly, if the [Codec] has TimeProgression enabled. Whitespace is
// ignored.
//
// Subscription diagrams use only `^` (subscribed), `!` (unsubscribed), `-`,
// groups, and literal time spans.
package marble
