package stix

import "context"

// ---- Convenience wrappers ----

// SafeParse parses data, returning (nil, false) on any error.
func SafeParse(ctx context.Context, data any, opts ...ParseOpt) (*Object, bool) {
	o, err := Parse(ctx, data, opts...)
	if err != nil {
		return nil, false
	}
	return o, true
}

// Is reports whether data parses into a valid record.
func Is(ctx context.Context, data any, opts ...ParseOpt) bool {
	_, ok := SafeParse(ctx, data, opts...)
	return ok
}

// Serialize encodes a record.
func Serialize(o *Object, opts ...EncodeOpt) ([]byte, error) {
	return o.Serialize(opts...)
}

// Equal reports whether two records are equal. Nil records are equal only to nil.
func Equal(a, b *Object) bool {
	return a.Equal(b)
}
