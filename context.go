package stix

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey int

const (
	_ctxKeyClock contextKey = iota
	_ctxKeyIDGen
	_ctxKeyScope
)

// WithClock returns a child context whose constructions read "now" from fn.
// All timestamp defaults of one construction share a single reading.
func WithClock(ctx context.Context, fn func() time.Time) context.Context {
	return context.WithValue(ctx, _ctxKeyClock, fn)
}

// WithIDGenerator returns a child context whose generated identifiers use fn
// instead of random (version 4) UUIDs.
func WithIDGenerator(ctx context.Context, fn func() uuid.UUID) context.Context {
	return context.WithValue(ctx, _ctxKeyIDGen, fn)
}

func clockFrom(ctx context.Context) func() time.Time {
	if fn, ok := ctx.Value(_ctxKeyClock).(func() time.Time); ok && fn != nil {
		return fn
	}
	return time.Now
}

func newUUID(ctx context.Context) uuid.UUID {
	if fn, ok := ctx.Value(_ctxKeyIDGen).(func() uuid.UUID); ok && fn != nil {
		return fn()
	}
	return uuid.New()
}

// scope is the construction state visible to validators and defaults.
type scope struct {
	kind        *Kind
	version     string
	allowCustom bool
	now         time.Time
	registry    *Registry
}

func withScope(ctx context.Context, s scope) context.Context {
	return context.WithValue(ctx, _ctxKeyScope, s)
}

func scopeFrom(ctx context.Context) scope {
	s, _ := ctx.Value(_ctxKeyScope).(scope)
	return s
}

// OwnerType reports the discriminator of the record under construction.
func OwnerType(ctx context.Context) string {
	if k := scopeFrom(ctx).kind; k != nil {
		return k.Type()
	}
	return ""
}

// SpecVersion reports the spec version of the record under construction.
func SpecVersion(ctx context.Context) string { return scopeFrom(ctx).version }

// AllowsCustom reports whether the record under construction accepts custom content.
func AllowsCustom(ctx context.Context) bool { return scopeFrom(ctx).allowCustom }

// Now reports the instant shared by the timestamp defaults of the record
// under construction, or the context clock outside a construction.
func Now(ctx context.Context) time.Time {
	if t := scopeFrom(ctx).now; !t.IsZero() {
		return t
	}
	return clockFrom(ctx)()
}

func registryFrom(ctx context.Context) *Registry {
	if r := scopeFrom(ctx).registry; r != nil {
		return r
	}
	return DefaultRegistry()
}
