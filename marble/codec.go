package marble

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Codec parses and serializes diagrams. The zero value is usable, and
// behaves as if FrameTimeFactor were [DefaultFrameTimeFactor].
type Codec struct {
	// FrameTimeFactor is the number of frames per character, if positive.
	FrameTimeFactor int64

	// TimeProgression enables literal time spans, e.g. `10ms`. They are
	// measured in frames, as if one frame were one millisecond, independent
	// of FrameTimeFactor.
	TimeProgression bool
}

var (
	timeLiteral     = regexp.MustCompile(`^(\d+(?:\.\d+)?)(ms|s|m)(?:\s|$)`)
	danglingDecimal = regexp.MustCompile(`^\d+\.(?:\D|$)`)
)

// maxLiteral bounds literal time spans, so sums of them stay well clear of
// Unbounded.
const maxLiteral = float64(math.MaxInt64 / 4)

func (c Codec) factor() int64 {
	if c.FrameTimeFactor > 0 {
		return c.FrameTimeFactor
	}
	return DefaultFrameTimeFactor
}

// Time returns the frame of the single `|` marker, in the diagram, after
// trimming surrounding whitespace. Exactly one `|` must be present.
func (c Codec) Time(diagram string) (int64, error) {
	trimmed := strings.TrimSpace(diagram)
	if n := strings.Count(trimmed, "|"); n != 1 {
		return 0, formatErrorf(diagram, -1, "time diagram must have exactly one completion marker \"|\", found %d", n)
	}
	return int64(utf8.RuneCountInString(trimmed[:strings.IndexByte(trimmed, '|')])) * c.factor(), nil
}

// Parse converts a value diagram into messages, in order. Characters are
// looked up in values, falling back to the character itself, as a string.
// The errorValue is used for `#`, and defaults to the string "error", if
// nil. The result is never nil, if err is nil.
func (c Codec) Parse(diagram string, values map[string]any, errorValue any) ([]Message, error) {
	return c.parse(diagram, values, errorValue, false)
}

// ParseExpected behaves like [Codec.Parse], except values implementing
// [Materializer] are replaced by their messages, allowing diagrams of
// higher-order sources to be compared.
func (c Codec) ParseExpected(diagram string, values map[string]any, errorValue any) ([]Message, error) {
	return c.parse(diagram, values, errorValue, true)
}

func (c Codec) parse(diagram string, values map[string]any, errorValue any, materialize bool) ([]Message, error) {
	if errorValue == nil {
		errorValue = "error"
	}

	var (
		factor     = c.factor()
		messages   = make([]Message, 0)
		frame      int64
		groupFrame int64
		zeroFrame  int64
		inGroup    bool
		zeroSeen   bool
		terminated bool
	)

	current := func() int64 {
		if inGroup {
			return groupFrame
		}
		return frame
	}

	for i := 0; i < len(diagram); {
		if n, frames, err := c.literal(diagram, i); err != nil {
			return nil, err
		} else if n > 0 {
			frame += frames
			i += n
			continue
		}

		r, size := utf8.DecodeRuneInString(diagram[i:])
		offset := i
		i += size

		switch {
		case unicode.IsSpace(r):
			continue
		case r == '-':
			frame += factor
			continue
		case r == ')':
			if !inGroup {
				return nil, formatErrorf(diagram, offset, "unbalanced group end")
			}
			inGroup = false
			frame += factor
			continue
		}

		if terminated {
			return nil, formatErrorf(diagram, offset, "unexpected %q after terminal notification", r)
		}

		switch {
		case r == '(':
			if inGroup {
				return nil, formatErrorf(diagram, offset, "nested groups are not supported")
			}
			inGroup = true
			groupFrame = frame
			frame += factor
			continue
		case r == '^':
			if zeroSeen {
				return nil, formatErrorf(diagram, offset, "only one subscription point \"^\" is allowed")
			}
			zeroSeen = true
			zeroFrame = current()
			frame += factor
			continue
		case r == '!':
			return nil, formatErrorf(diagram, offset, "unsubscription marker \"!\" is not allowed in a value diagram")
		case r == utf8.RuneError && size == 1, !unicode.IsPrint(r):
			return nil, formatErrorf(diagram, offset, "unexpected character %q", r)
		}

		var n Notification
		switch r {
		case '|':
			n = Complete()
			terminated = true
		case '#':
			n = Error(errorValue)
			terminated = true
		default:
			key := string(r)
			v, ok := values[key]
			if !ok {
				v = key
			}
			if m, ok := v.(Materializer); ok && materialize {
				v = m.Messages()
			}
			n = Next(v)
		}

		messages = append(messages, Message{Frame: current(), Notification: n})
		frame += factor
	}

	if inGroup {
		return nil, formatErrorf(diagram, -1, "unclosed group")
	}

	if zeroFrame != 0 {
		for i := range messages {
			messages[i].Frame -= zeroFrame
		}
	}

	return messages, nil
}

// ParseSubscriptions converts a subscription diagram into a window. An
// empty diagram means never subscribed, i.e. both frames are [Unbounded].
// A diagram without `^` but with `!` has an unbounded Subscribed frame,
// which callers may interpret as "from the start".
func (c Codec) ParseSubscriptions(diagram string) (SubscriptionLog, error) {
	var (
		factor       = c.factor()
		subscribed   = Unbounded
		unsubscribed = Unbounded
		frame        int64
		groupFrame   int64
		inGroup      bool
	)

	current := func() int64 {
		if inGroup {
			return groupFrame
		}
		return frame
	}

	for i := 0; i < len(diagram); {
		if n, frames, err := c.literal(diagram, i); err != nil {
			return SubscriptionLog{}, err
		} else if n > 0 {
			frame += frames
			i += n
			continue
		}

		r, size := utf8.DecodeRuneInString(diagram[i:])
		offset := i
		i += size

		switch {
		case unicode.IsSpace(r):
		case r == '-':
			frame += factor
		case r == '(':
			if inGroup {
				return SubscriptionLog{}, formatErrorf(diagram, offset, "nested groups are not supported")
			}
			inGroup = true
			groupFrame = frame
			frame += factor
		case r == ')':
			if !inGroup {
				return SubscriptionLog{}, formatErrorf(diagram, offset, "unbalanced group end")
			}
			inGroup = false
			frame += factor
		case r == '^':
			if subscribed != Unbounded {
				return SubscriptionLog{}, formatErrorf(diagram, offset, "only one subscription point \"^\" is allowed")
			}
			subscribed = current()
			frame += factor
		case r == '!':
			if unsubscribed != Unbounded {
				return SubscriptionLog{}, formatErrorf(diagram, offset, "only one unsubscription point \"!\" is allowed")
			}
			unsubscribed = current()
			frame += factor
		default:
			return SubscriptionLog{}, formatErrorf(diagram, offset, "only \"^\" and \"!\" markers are allowed in a subscription diagram, found %q", r)
		}
	}

	if inGroup {
		return SubscriptionLog{}, formatErrorf(diagram, -1, "unclosed group")
	}

	if subscribed != Unbounded && unsubscribed < subscribed {
		return SubscriptionLog{}, formatErrorf(diagram, -1, "unsubscription point precedes subscription point")
	}

	return SubscriptionLog{Subscribed: subscribed, Unsubscribed: unsubscribed}, nil
}

// literal detects a time span at offset i, which must begin a token, i.e.
// be at the start, or follow whitespace. It returns the number of bytes
// consumed (zero if none) and the span in frames.
func (c Codec) literal(diagram string, i int) (int, int64, error) {
	if diagram[i] < '0' || diagram[i] > '9' {
		return 0, 0, nil
	}
	if i > 0 {
		if r, _ := utf8.DecodeLastRuneInString(diagram[:i]); !unicode.IsSpace(r) {
			return 0, 0, nil
		}
	}

	rest := diagram[i:]

	m := timeLiteral.FindStringSubmatch(rest)
	if m == nil {
		if c.TimeProgression && danglingDecimal.MatchString(rest) {
			return 0, 0, formatErrorf(diagram, i, "malformed time literal")
		}
		return 0, 0, nil
	}

	if !c.TimeProgression {
		return 0, 0, formatErrorf(diagram, i, "time progression syntax %q is not allowed here", m[1]+m[2])
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, formatErrorf(diagram, i, "malformed time literal: %v", err)
	}
	switch m[2] {
	case "s":
		v *= 1000
	case "m":
		v *= 60 * 1000
	}
	if v > maxLiteral {
		return 0, 0, formatErrorf(diagram, i, "time literal out of range")
	}

	return len(m[1]) + len(m[2]), int64(math.Round(v)), nil
}
