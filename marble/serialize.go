package marble

import (
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Serialize renders messages as a diagram, for diagnostics. Frames and
// kinds round-trip through [Codec.Parse], provided every gap between
// events is representable, which is always the case with TimeProgression
// enabled and a factor of one. Values are rendered as the key in values
// they are deeply equal to, as themselves if they are single character
// strings, or otherwise as `?`.
func (c Codec) Serialize(messages []Message, values map[string]any) string {
	messages = slices.Clone(messages)
	slices.SortStableFunc(messages, func(a, b Message) int {
		switch {
		case a.Frame < b.Frame:
			return -1
		case a.Frame > b.Frame:
			return 1
		default:
			return 0
		}
	})

	w := writer{
		factor:          c.factor(),
		timeProgression: c.TimeProgression,
		keys:            valueKeys(values),
		values:          values,
	}

	zeroPending := len(messages) != 0 && messages[0].Frame < 0
	if zeroPending {
		w.cursor = messages[0].Frame
	}

	for i := 0; i < len(messages); {
		j := i + 1
		for j < len(messages) && messages[j].Frame == messages[i].Frame {
			j++
		}
		group := messages[i:j]
		frame := group[0].Frame
		i = j

		if zeroPending && frame >= 0 {
			zeroPending = false
			w.advanceTo(0, '^')
			if frame == 0 {
				w.group(true, group)
				continue
			}
			w.b.WriteByte('^')
			w.cursor += w.factor
		}

		var first string
		if len(group) == 1 {
			first = w.token(group[0].Notification)
		} else {
			first = "("
		}
		w.advanceTo(frame, firstRune(first))
		if len(group) == 1 {
			w.b.WriteString(first)
			w.cursor += w.factor
		} else {
			w.group(false, group)
		}
	}

	if zeroPending {
		w.advanceTo(0, '^')
		w.b.WriteByte('^')
	}

	return strings.TrimSpace(w.b.String())
}

// SerializeSubscription renders a subscription window, for diagnostics.
// A window that was never subscribed renders as the empty string.
func (c Codec) SerializeSubscription(log SubscriptionLog) string {
	if log.Subscribed == Unbounded {
		return ""
	}
	w := writer{factor: c.factor(), timeProgression: c.TimeProgression}
	w.advanceTo(log.Subscribed, '^')
	switch {
	case log.Unsubscribed == log.Subscribed:
		w.b.WriteString("(^!)")
	case log.Unsubscribed == Unbounded:
		w.b.WriteByte('^')
	default:
		w.b.WriteByte('^')
		w.cursor += w.factor
		w.advanceTo(log.Unsubscribed, '!')
		w.b.WriteByte('!')
	}
	return strings.TrimSpace(w.b.String())
}

// SerializeSubscriptions applies [Codec.SerializeSubscription] to each log.
func (c Codec) SerializeSubscriptions(logs []SubscriptionLog) []string {
	out := make([]string, len(logs))
	for i, log := range logs {
		out[i] = c.SerializeSubscription(log)
	}
	return out
}

type writer struct {
	values          map[string]any
	b               strings.Builder
	keys            []string
	cursor          int64
	factor          int64
	timeProgression bool
}

// advanceTo pads from the cursor to frame, using dashes where they are
// exact, and time literals otherwise, if allowed. The next rune is the
// first rune that will be written, which must not be a digit directly
// following a literal.
func (w *writer) advanceTo(frame int64, next rune) {
	gap := frame - w.cursor
	if gap <= 0 {
		return
	}
	if !w.timeProgression || (gap <= 10*w.factor && gap%w.factor == 0) {
		w.b.WriteString(strings.Repeat("-", int(gap/w.factor)))
		w.cursor += gap / w.factor * w.factor
		return
	}
	dash := next >= '0' && next <= '9' && gap > w.factor
	if dash {
		gap -= w.factor
	}
	w.b.WriteByte(' ')
	w.b.WriteString(formatLiteral(gap))
	w.b.WriteByte(' ')
	w.cursor += gap
	if dash {
		w.b.WriteByte('-')
		w.cursor += w.factor
	}
}

func (w *writer) group(zero bool, group []Message) {
	w.b.WriteByte('(')
	n := int64(len(group)) + 2
	if zero {
		w.b.WriteByte('^')
		n++
	}
	for _, m := range group {
		w.b.WriteString(w.token(m.Notification))
	}
	w.b.WriteByte(')')
	w.cursor += n * w.factor
}

func (w *writer) token(n Notification) string {
	switch n.Kind {
	case KindComplete:
		return "|"
	case KindError:
		return "#"
	}
	for _, k := range w.keys {
		if reflect.DeepEqual(w.values[k], n.Value) {
			return k
		}
	}
	if s, ok := n.Value.(string); ok && utf8.RuneCountInString(s) == 1 && !isSyntax(firstRune(s)) {
		return s
	}
	return "?"
}

// valueKeys returns the single character keys, sorted, so rendering is
// deterministic.
func valueKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if utf8.RuneCountInString(k) == 1 && !isSyntax(firstRune(k)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func isSyntax(r rune) bool {
	switch r {
	case '-', '|', '#', '^', '!', '(', ')', ' ':
		return true
	}
	return r < ' '
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func formatLiteral(ms int64) string {
	switch {
	case ms%60000 == 0:
		return strconv.FormatInt(ms/60000, 10) + "m"
	case ms%1000 == 0:
		return strconv.FormatInt(ms/1000, 10) + "s"
	default:
		return strconv.FormatInt(ms, 10) + "ms"
	}
}
