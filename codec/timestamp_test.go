package codec

import (
	"testing"
	"time"
)

func TestTimestamp_Decode_Basic(t *testing.T) {
	c := Timestamp{}
	got, err := c.Decode("2017-01-01T00:00:01Z")
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if !got.Equal(time.Date(2017, 1, 1, 0, 0, 1, 0, time.UTC)) {
		t.Fatalf("unexpected time: %v", got)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
}

func TestTimestamp_Decode_RejectsOffset(t *testing.T) {
	if _, err := (Timestamp{}).Decode("2017-01-01T00:00:01+02:00"); err != ErrNotUTC {
		t.Fatalf("expected ErrNotUTC, got %v", err)
	}
	for _, in := range []string{"2017-01-01T00:00:01+00:00", "2017-01-01T00:00:01-00:00", "2017-01-01T00:00:01.5+00:00"} {
		if _, err := (Timestamp{}).Decode(in); err != ErrNotUTC {
			t.Fatalf("%s: expected ErrNotUTC, got %v", in, err)
		}
	}
}

func TestTimestamp_Decode_Malformed(t *testing.T) {
	for _, in := range []string{"", "2017-01-01", "yesterday", "2017-13-01T00:00:00Z"} {
		if _, err := (Timestamp{}).Decode(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestTimestamp_Encode_Any(t *testing.T) {
	c := Timestamp{Precision: PrecisionAny}
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(1970, 1, 1, 0, 0, 1, 0, time.UTC), "1970-01-01T00:00:01Z"},
		{time.Date(2017, 1, 1, 0, 0, 1, 500_000_000, time.UTC), "2017-01-01T00:00:01.5Z"},
		{time.Date(2017, 1, 1, 0, 0, 1, 123_000_000, time.UTC), "2017-01-01T00:00:01.123Z"},
		{time.Date(2017, 1, 1, 0, 0, 1, 123_456_000, time.UTC), "2017-01-01T00:00:01.123456Z"},
	}
	for _, tc := range cases {
		if got := c.Encode(tc.in); got != tc.want {
			t.Fatalf("encode %v: got %s want %s", tc.in, got, tc.want)
		}
	}
}

func TestTimestamp_Encode_Millisecond(t *testing.T) {
	c := Timestamp{Precision: PrecisionMillisecond}
	if got := c.Encode(time.Date(2017, 1, 1, 0, 0, 1, 0, time.UTC)); got != "2017-01-01T00:00:01.000Z" {
		t.Fatalf("unexpected: %s", got)
	}
	if got := c.Encode(time.Date(2017, 1, 1, 0, 0, 1, 123_999_999, time.UTC)); got != "2017-01-01T00:00:01.123Z" {
		t.Fatalf("expected truncation to milliseconds, got %s", got)
	}
}

func TestTimestamp_Encode_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	in := time.Date(2017, 1, 1, 1, 0, 1, 0, loc)
	if got := (Timestamp{}).Encode(in); got != "2017-01-01T00:00:01Z" {
		t.Fatalf("unexpected: %s", got)
	}
}

func TestTimestamp_Roundtrip(t *testing.T) {
	for _, p := range []Precision{PrecisionAny, PrecisionMillisecond} {
		c := Timestamp{Precision: p}
		in := "2017-01-01T00:00:01.250Z"
		if p == PrecisionAny {
			in = "2017-01-01T00:00:01.25Z"
		}
		got, err := c.Decode(in)
		if err != nil {
			t.Fatalf("decode err: %v", err)
		}
		if out := c.Encode(got); out != in {
			t.Fatalf("roundtrip mismatch (%s): %s != %s", p, out, in)
		}
	}
}

func TestParsePrecision(t *testing.T) {
	if p, err := ParsePrecision("millisecond"); err != nil || p != PrecisionMillisecond {
		t.Fatalf("unexpected: %v %v", p, err)
	}
	if p, err := ParsePrecision(""); err != nil || p != PrecisionAny {
		t.Fatalf("unexpected: %v %v", p, err)
	}
	if _, err := ParsePrecision("second"); err == nil {
		t.Fatalf("expected error for unknown precision")
	}
}
