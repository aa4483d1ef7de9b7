package stix

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Constraint is a cross-property rule checked after every property has been
// cleaned. Use InvalidProperty to blame a specific property.
type Constraint func(ctx context.Context, o *Object) error

// KindDef declares a record type.
type KindDef struct {
	// Name is the display name used in error messages, e.g. "Indicator".
	Name string
	// Type is the discriminator. Embedded kinds (kill chain phases, external
	// references) have none.
	Type       string
	Version    string
	Properties PropertySet
	// Contents names the property that receives positional construction values.
	Contents string
	// DropEmpty treats empty lists as absent.
	DropEmpty   bool
	Constraints []Constraint
}

// Kind is an immutable record type definition. One Kind serves every record
// of its type and version.
type Kind struct {
	name        string
	typ         string
	version     string
	props       PropertySet
	contents    string
	dropEmpty   bool
	constraints []Constraint
}

// NewKind validates def and returns the kind it describes.
func NewKind(def KindDef) (*Kind, error) {
	if def.Name == "" {
		def.Name = displayName(def.Type)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("stix: kind needs a name or a type")
	}
	if def.Contents != "" && !def.Properties.Has(def.Contents) {
		return nil, fmt.Errorf("stix: %s: contents property %q is not declared", def.Name, def.Contents)
	}
	if def.Type != "" && !def.Properties.Has("type") {
		return nil, fmt.Errorf("stix: %s: kinds with a discriminator must declare a type property", def.Name)
	}
	return &Kind{
		name:        def.Name,
		typ:         def.Type,
		version:     def.Version,
		props:       def.Properties,
		contents:    def.Contents,
		dropEmpty:   def.DropEmpty,
		constraints: append([]Constraint(nil), def.Constraints...),
	}, nil
}

// MustNewKind is like NewKind but panics on error.
func MustNewKind(def KindDef) *Kind {
	k, err := NewKind(def)
	if err != nil {
		panic(err)
	}
	return k
}

func (k *Kind) Name() string            { return k.name }
func (k *Kind) Type() string            { return k.typ }
func (k *Kind) Version() string         { return k.version }
func (k *Kind) Properties() PropertySet { return k.props }
func (k *Kind) Contents() string        { return k.contents }
func (k *Kind) IsEmbedded() bool        { return k.typ == "" }
func (k *Kind) String() string          { return k.name }
func (k *Kind) versionable() bool       { return k.props.Has("created") && k.props.Has("modified") }

// New constructs a record from named fields.
func (k *Kind) New(ctx context.Context, fields Fields, opts ...ConstructOpt) (*Object, error) {
	return k.Construct(ctx, fields, nil, opts...)
}

// Construct validates fields, folds positional values into the contents
// property, applies defaults and returns the frozen record.
//
// Failures are reported in this order: unexpected properties, missing
// required properties, then the first invalid value in declared order.
func (k *Kind) Construct(ctx context.Context, fields Fields, positional []any, opts ...ConstructOpt) (*Object, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opt := lastConstructOpt(opts)
	raw, err := k.merge(fields, positional)
	if err != nil {
		return nil, err
	}

	parent := scopeFrom(ctx)
	sc := scope{kind: k, version: k.version, allowCustom: opt.AllowCustom, now: parent.now, registry: parent.registry}
	if sc.now.IsZero() {
		sc.now = clockFrom(ctx)()
	}
	ctx = withScope(ctx, sc)

	for name, v := range raw {
		if v == nil || (k.dropEmpty && isEmptyList(v)) {
			delete(raw, name)
		}
	}

	extra := k.collectUnknown(raw)
	if len(extra) > 0 {
		if !opt.AllowCustom {
			return nil, &ExtraPropertiesError{Type: k.name, Properties: extra}
		}
		for _, name := range extra {
			if !customName.MatchString(name) {
				return nil, &InvalidValueError{Type: k.name, Property: name, Reason: "custom property names must be 3 to 250 characters of lowercase letters, digits or underscores."}
			}
		}
	}

	if missing := k.collectMissing(raw); len(missing) > 0 {
		return nil, &MissingPropertiesError{Type: k.name, Properties: missing}
	}

	out, pm, err := k.collectKnown(ctx, raw)
	if err != nil {
		return nil, err
	}
	custom := len(extra) > 0
	for _, v := range out {
		if carriesCustom(v) {
			custom = true
			break
		}
	}
	for _, name := range extra {
		out[name] = cloneValue(raw[name])
		pm[name] = PresenceSeen | PresenceCustom
	}

	o := &Object{kind: k, fields: out, presence: pm, custom: custom}
	for _, c := range k.constraints {
		if err := c(ctx, o); err != nil {
			return nil, attribute(k.name, "", err)
		}
	}
	return o, nil
}

var customName = regexp.MustCompile(`^[a-z0-9_]{3,250}$`)

// displayName derives "AttackPattern" from "attack-pattern".
func displayName(typ string) string {
	var b strings.Builder
	for _, part := range strings.Split(typ, "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// merge copies fields and folds positional values into the contents property.
// A leading slice is flattened; positional values precede named contents.
func (k *Kind) merge(fields Fields, positional []any) (Fields, error) {
	raw := make(Fields, len(fields)+1)
	for name, v := range fields {
		raw[name] = v
	}
	if len(positional) == 0 {
		return raw, nil
	}
	if k.contents == "" {
		return nil, fmt.Errorf("stix: %s does not accept positional values", k.name)
	}
	var items []any
	if len(positional) > 0 && isSequence(positional[0]) {
		items = append(items, asSlice(positional[0])...)
		positional = positional[1:]
	}
	items = append(items, positional...)
	if existing, ok := raw[k.contents]; ok && existing != nil {
		items = append(items, asSlice(existing)...)
	}
	raw[k.contents] = items
	return raw, nil
}

func (k *Kind) collectUnknown(raw Fields) []string {
	var extra []string
	for name := range raw {
		if !k.props.Has(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return extra
}

func (k *Kind) collectMissing(raw Fields) []string {
	var missing []string
	for _, name := range k.props.names {
		p := k.props.props[name]
		if !p.required || p.HasDefault() {
			continue
		}
		if _, ok := raw[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// collectKnown cleans supplied values and applies defaults in declared order.
func (k *Kind) collectKnown(ctx context.Context, raw Fields) (Fields, PresenceMap, error) {
	out := make(Fields, len(raw)+4)
	pm := make(PresenceMap, len(raw)+4)
	for _, name := range k.props.names {
		p := k.props.props[name]
		if v, ok := raw[name]; ok {
			cv, err := p.Clean(ctx, v)
			if err != nil {
				return nil, nil, attribute(k.name, name, err)
			}
			out[name] = cv
			pm[name] = PresenceSeen
			continue
		}
		dv, err := p.DefaultValue(ctx, out)
		if err != nil {
			return nil, nil, attribute(k.name, name, err)
		}
		if dv == nil {
			continue
		}
		out[name] = dv
		pm[name] = PresenceDefaultApplied
	}
	return out, pm, nil
}
