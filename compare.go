package marbles

import (
	"fmt"
	"strings"

	"github.com/go-test/deep"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/joeycumines/go-marbles/marble"
)

type (
	// Comparator compares the actual and expected values of an
	// expectation, which are either both []marble.Message, or both
	// []marble.SubscriptionLog. A non-nil error indicates a mismatch. A
	// comparator may also panic, to abort the flush.
	Comparator func(actual, expected any) error

	// ErrorReporter is the subset of [testing.TB] used by Record.
	ErrorReporter interface {
		Helper()
		Errorf(format string, args ...any)
	}

	// MismatchError is returned by DeepEqual.
	MismatchError struct {
		Actual      any
		Expected    any
		Diff        string
		Differences []string
	}
)

func (e *MismatchError) Error() string {
	var b strings.Builder
	b.WriteString(`marbles: actual does not match expected`)
	for _, d := range e.Differences {
		b.WriteString("\n\t")
		b.WriteString(d)
	}
	if e.Diff != `` {
		b.WriteString("\n")
		b.WriteString(e.Diff)
	}
	return b.String()
}

// DeepEqual is the default Comparator, returning a [*MismatchError],
// including a unified diff of the timelines, if they differ.
func DeepEqual(actual, expected any) error {
	differences := deep.Equal(actual, expected)
	if differences == nil {
		return nil
	}
	a, b := describe(expected), describe(actual)
	return &MismatchError{
		Actual:      actual,
		Expected:    expected,
		Differences: differences,
		Diff: fmt.Sprint(gotextdiff.ToUnified(
			`expected`,
			`actual`,
			a,
			myers.ComputeEdits(span.URIFromPath(`expected`), a, b),
		)),
	}
}

// Record wraps a Comparator (DeepEqual, if nil), reporting mismatches to
// r, instead of failing the flush.
func Record(r ErrorReporter, compare Comparator) Comparator {
	if compare == nil {
		compare = DeepEqual
	}
	return func(actual, expected any) error {
		if err := compare(actual, expected); err != nil {
			r.Helper()
			r.Errorf("%v", err)
		}
		return nil
	}
}

// describe renders a value as a diagram, followed by one line per entry.
func describe(v any) string {
	codec := marble.Codec{FrameTimeFactor: 1, TimeProgression: true}
	var b strings.Builder
	switch v := v.(type) {
	case []marble.Message:
		fmt.Fprintf(&b, "%s\n", codec.Serialize(v, nil))
		for _, m := range v {
			fmt.Fprintf(&b, "%d %s\n", m.Frame, m.Notification)
		}
	case []marble.SubscriptionLog:
		for _, log := range v {
			fmt.Fprintf(&b, "%s\n", codec.SerializeSubscription(log))
		}
		for _, log := range v {
			fmt.Fprintf(&b, "%s %s\n", frameString(log.Subscribed), frameString(log.Unsubscribed))
		}
	default:
		fmt.Fprintf(&b, "%#v\n", v)
	}
	return b.String()
}

func frameString(frame int64) string {
	if frame == marble.Unbounded {
		return `∞`
	}
	return fmt.Sprint(frame)
}
