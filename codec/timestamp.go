package codec

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Precision controls how sub-second digits of a timestamp are kept and rendered.
type Precision int

const (
	// PrecisionAny keeps the full value and renders the fraction only when it is non-zero.
	PrecisionAny Precision = iota
	// PrecisionMillisecond truncates to milliseconds and always renders three digits.
	PrecisionMillisecond
)

// ParsePrecision maps a catalog name ("", "any", "millisecond") to a Precision.
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "", "any":
		return PrecisionAny, nil
	case "millisecond":
		return PrecisionMillisecond, nil
	default:
		return PrecisionAny, errors.New("codec: unknown timestamp precision " + strconv.Quote(s))
	}
}

func (p Precision) String() string {
	if p == PrecisionMillisecond {
		return "millisecond"
	}
	return "any"
}

// ErrNotUTC is returned for timestamps that carry a zone other than Z.
var ErrNotUTC = errors.New("timestamp must use the 'Z' UTC designator")

// Timestamp converts between the wire form "YYYY-MM-DDTHH:MM:SS[.s+]Z" and time.Time.
type Timestamp struct {
	Precision Precision
}

// Decode parses s and normalizes the result to UTC at the codec precision.
// Numeric offsets, including "+00:00", are rejected.
func (c Timestamp) Decode(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, ErrNotUTC
	}
	return c.Normalize(t), nil
}

// Normalize converts t to UTC, strips the monotonic reading and applies the precision.
func (c Timestamp) Normalize(t time.Time) time.Time {
	t = t.UTC()
	if c.Precision == PrecisionMillisecond {
		t = t.Truncate(time.Millisecond)
	}
	return t
}

// Encode renders t in canonical form.
func (c Timestamp) Encode(t time.Time) string {
	t = c.Normalize(t)
	b := make([]byte, 0, 32)
	b = t.AppendFormat(b, "2006-01-02T15:04:05")
	switch c.Precision {
	case PrecisionMillisecond:
		ms := t.Nanosecond() / int(time.Millisecond)
		b = append(b, '.')
		b = appendPadded(b, ms, 3)
	default:
		if ns := t.Nanosecond(); ns != 0 {
			frac := string(appendPadded(nil, ns, 9))
			b = append(b, '.')
			b = append(b, strings.TrimRight(frac, "0")...)
		}
	}
	return string(append(b, 'Z'))
}

func appendPadded(b []byte, v, width int) []byte {
	s := strconv.Itoa(v)
	for i := len(s); i < width; i++ {
		b = append(b, '0')
	}
	return append(b, s...)
}
