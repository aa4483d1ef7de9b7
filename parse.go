package stix

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	eng "github.com/reoring/stix/internal/engine"
)

// Parse turns JSON text ([]byte, string), a decoded mapping or an existing
// record into a typed record, dispatching on the "type" property.
//
// The spec version comes from ParseOpt.Version, else the input's
// spec_version, else the spec_version of the first bundle member, else 2.0.
func Parse(ctx context.Context, data any, opts ...ParseOpt) (*Object, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opt := lastParseOpt(opts)
	ps := parseState{version: opt.Version, allowCustom: opt.AllowCustom, registry: opt.Registry}
	if ps.registry == nil {
		ps.registry = DefaultRegistry()
	}

	switch v := data.(type) {
	case *Object:
		return v, nil
	case *Bundle:
		return v.Object, nil
	case []byte:
		return ps.text(ctx, v, opt)
	case string:
		return ps.text(ctx, []byte(v), opt)
	case nil:
		return nil, &ParseError{Reason: "no input"}
	}
	m, ok := asFields(data)
	if !ok {
		return nil, &ParseError{Reason: fmt.Sprintf("cannot parse %T as a STIX object", data)}
	}
	return ps.mapping(ctx, m)
}

// ParseReader reads r to the end and parses its JSON content. A positive
// MaxBytes in the options caps the amount read.
func ParseReader(ctx context.Context, r io.Reader, opts ...ParseOpt) (*Object, error) {
	opt := lastParseOpt(opts)
	if opt.MaxBytes > 0 {
		r = io.LimitReader(r, opt.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Reason: err.Error(), Cause: err}
	}
	if opt.MaxBytes > 0 && int64(len(data)) > opt.MaxBytes {
		return nil, &ParseError{Reason: "max bytes exceeded"}
	}
	return Parse(ctx, data, opts...)
}

// ParseBundle parses data and requires the result to be a bundle.
func ParseBundle(ctx context.Context, data any, opts ...ParseOpt) (*Bundle, error) {
	o, err := Parse(ctx, data, opts...)
	if err != nil {
		return nil, err
	}
	return AsBundle(o)
}

// parseState is the part of the parse options that nested polymorphic
// properties inherit.
type parseState struct {
	version     string
	allowCustom bool
	registry    *Registry
}

func (ps parseState) text(ctx context.Context, data []byte, opt ParseOpt) (*Object, error) {
	log := ps.registry.logger()
	v, err := eng.Decode(data, eng.Options{
		OnDuplicate: toEngineDup(opt.Strictness.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		IssueSink: func(is eng.SimpleIssue) {
			log.Warn("json decode issue", zap.String("code", is.Code), zap.String("path", is.Path), zap.String("message", is.Message))
		},
	})
	if err != nil {
		return nil, toParseError(err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "top-level JSON value must be an object"}
	}
	return ps.mapping(ctx, Fields(m))
}

// mapping dispatches a decoded object to its kind.
func (ps parseState) mapping(ctx context.Context, m Fields) (*Object, error) {
	raw, ok := m["type"]
	if !ok {
		return nil, &ParseError{Reason: "Can't parse object with no 'type' property", Path: "/type"}
	}
	typ, ok := raw.(string)
	if !ok {
		return nil, &ParseError{Reason: "'type' property must be a string", Path: "/type"}
	}
	version := ps.version
	if version == "" {
		version = detectVersion(m)
	}

	k, ok := ps.registry.Lookup(version, typ)
	if !ok {
		if !ps.allowCustom {
			return nil, &UnknownTypeError{Type: typ, Version: version}
		}
		ps.registry.logger().Debug("unknown type kept as generic object", zap.String("type", typ), zap.String("version", version))
		return newGeneric(m), nil
	}

	sc := scopeFrom(ctx)
	sc.registry = ps.registry
	ctx = withScope(ctx, sc)
	return k.Construct(ctx, m, nil, ConstructOpt{AllowCustom: ps.allowCustom})
}

func detectVersion(m Fields) string {
	if v, ok := m["spec_version"].(string); ok && v != "" {
		return v
	}
	if objs, ok := m["objects"].([]any); ok && len(objs) > 0 {
		if first, ok := asFields(objs[0]); ok {
			if v, ok := first["spec_version"].(string); ok && v != "" {
				return v
			}
		}
	}
	return Version20
}

func toParseError(err error) error {
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return &ParseError{Reason: ie.Message, Path: ie.Path, Cause: err}
	}
	return &ParseError{Reason: err.Error(), Cause: err}
}
