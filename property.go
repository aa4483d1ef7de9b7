package stix

import (
	"context"

	js "github.com/reoring/stix/jsonschema"
)

// Fields maps property names to values, both as construction input and as
// the normalized content of a record.
type Fields map[string]any

// Property is the validation, default and encoding contract of one field.
// Values are immutable: the modifier methods return a changed copy, so one
// Property can be shared by many kinds and every instance of them.
type Property struct {
	kind     string
	required bool

	fixed    any
	hasFixed bool

	clean  func(ctx context.Context, v any) (any, error)
	def    func(ctx context.Context, prior Fields) (any, error)
	encode func(v any) any
	schema func(owner string) *js.Schema

	literalDefault    any
	hasLiteralDefault bool
}

// Kind names the value family of the property ("string", "timestamp", ...).
func (p Property) Kind() string {
	if p.kind == "" {
		return "any"
	}
	return p.kind
}

// IsRequired reports whether construction fails when the property has neither
// a supplied value nor a default.
func (p Property) IsRequired() bool { return p.required }

// HasDefault reports whether the property computes a value when none is supplied.
func (p Property) HasDefault() bool { return p.def != nil }

// FixedValue returns the literal the property must equal, if any.
func (p Property) FixedValue() (any, bool) { return p.fixed, p.hasFixed }

// Clean validates v and returns its normalized form.
func (p Property) Clean(ctx context.Context, v any) (any, error) {
	if p.hasFixed {
		if !valuesEqual(v, p.fixed) {
			return nil, Reasonf("must equal '%v'.", p.fixed)
		}
		return p.fixed, nil
	}
	if p.clean == nil {
		return cloneValue(v), nil
	}
	return p.clean(ctx, v)
}

// DefaultValue computes the default for the property. prior holds the values
// already assigned to earlier properties of the same record. A nil result
// means the property stays absent.
func (p Property) DefaultValue(ctx context.Context, prior Fields) (any, error) {
	if p.def == nil {
		return nil, nil
	}
	return p.def(ctx, prior)
}

// Encode converts a normalized value into its JSON-ready form.
func (p Property) Encode(v any) any {
	if p.encode == nil {
		return jsonReady(v)
	}
	return p.encode(v)
}

// Required marks the property as required.
func (p Property) Required() Property {
	p.required = true
	return p
}

// Optional marks the property as optional (the default).
func (p Property) Optional() Property {
	p.required = false
	return p
}

// Fixed restricts the property to v and makes v its default.
func (p Property) Fixed(v any) Property {
	p.fixed, p.hasFixed = v, true
	p.literalDefault, p.hasLiteralDefault = v, true
	p.def = func(context.Context, Fields) (any, error) { return v, nil }
	return p
}

// Default sets a literal default. It is cleaned like a supplied value when applied.
func (p Property) Default(v any) Property {
	base := p
	p.literalDefault, p.hasLiteralDefault = v, true
	p.def = func(ctx context.Context, _ Fields) (any, error) { return base.Clean(ctx, v) }
	return p
}

// DefaultFunc sets a default computed at construction time. The result is
// cleaned like a supplied value; nil leaves the property absent.
func (p Property) DefaultFunc(fn func(ctx context.Context) (any, error)) Property {
	base := p
	p.literalDefault, p.hasLiteralDefault = nil, false
	p.def = func(ctx context.Context, _ Fields) (any, error) {
		v, err := fn(ctx)
		if err != nil || v == nil {
			return nil, err
		}
		return base.Clean(ctx, v)
	}
	return p
}

// DefaultNow defaults the property to the construction instant.
func (p Property) DefaultNow() Property {
	return p.DefaultFunc(func(ctx context.Context) (any, error) { return Now(ctx), nil })
}

// DefaultFrom defaults the property to the value of an earlier property.
func (p Property) DefaultFrom(field string) Property {
	base := p
	p.literalDefault, p.hasLiteralDefault = nil, false
	p.def = func(ctx context.Context, prior Fields) (any, error) {
		v, ok := prior[field]
		if !ok {
			return nil, nil
		}
		return base.Clean(ctx, v)
	}
	return p
}

// JSONSchema projects the property; owner is the discriminator of the kind
// that holds it.
func (p Property) JSONSchema(owner string) *js.Schema {
	s := &js.Schema{}
	if p.schema != nil {
		if ps := p.schema(owner); ps != nil {
			s = ps
		}
	}
	if p.hasFixed {
		s.Const = p.fixed
	}
	if p.hasLiteralDefault {
		s.Default = p.literalDefault
	}
	return s
}
