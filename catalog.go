package stix

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"math"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/reoring/stix/codec"
	"github.com/reoring/stix/pattern"
)

//go:embed catalog/*.yaml
var builtinCatalogFS embed.FS

// Catalog is a set of record types declared in YAML for one spec version.
type Catalog struct {
	Version  string
	Kinds    []*Kind          // top-level kinds in declaration order
	Embedded map[string]*Kind // embedded kinds by catalog id
	groups   map[string][]namedProperty
}

type namedProperty struct {
	name string
	prop Property
}

type catalogDoc struct {
	Version  string               `yaml:"version"`
	Groups   map[string][]propDef `yaml:"groups"`
	Embedded []kindDoc            `yaml:"embedded"`
	Objects  []kindDoc            `yaml:"objects"`
}

type kindDoc struct {
	ID          string    `yaml:"id"`
	Type        string    `yaml:"type"`
	Name        string    `yaml:"name"`
	Required    []string  `yaml:"required"`
	Constraints []string  `yaml:"constraints"`
	Properties  []propDef `yaml:"properties"`
}

type propDef struct {
	Include     string   `yaml:"include"`
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	Required    bool     `yaml:"required"`
	Precision   string   `yaml:"precision"`
	Types       []string `yaml:"types"`
	Values      []string `yaml:"values"`
	Of          *propDef `yaml:"of"`
	Embedded    string   `yaml:"embedded"`
	Validator   string   `yaml:"validator"`
	Fixed       any      `yaml:"fixed"`
	Default     any      `yaml:"default"`
	DefaultNow  bool     `yaml:"default_now"`
	DefaultFrom string   `yaml:"default_from"`
	Coerce      bool     `yaml:"coerce"`
	Min         *int64   `yaml:"min"`
	Max         *int64   `yaml:"max"`
}

// patternValidators are the grammar validators a "pattern" property can name.
var patternValidators = map[string]func(string) error{
	"stix": pattern.Validate,
}

// constraints are the cross-property rules a catalog kind can name.
var constraints = map[string]Constraint{
	"stix_pattern":                    stixPatternConstraint,
	"valid_until_after_valid_from":    orderedTimes("valid_from", "valid_until", true),
	"last_seen_not_before_first_seen": orderedTimes("first_seen", "last_seen", false),
	"modified_not_before_created":     orderedTimes("created", "modified", false),
}

// LoadCatalog parses a YAML catalog. Unknown keys and duplicate keys are errors.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc catalogDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("stix: catalog: %w", err)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("stix: catalog: missing version")
	}
	c := &Catalog{Version: doc.Version, Embedded: map[string]*Kind{}, groups: map[string][]namedProperty{}}

	// Embedded kinds come first so groups and objects can refer to them.
	for _, kd := range doc.Embedded {
		if kd.ID == "" {
			return nil, fmt.Errorf("stix: catalog %s: embedded kind without id", doc.Version)
		}
		k, err := c.kind(kd, "")
		if err != nil {
			return nil, err
		}
		c.Embedded[kd.ID] = k
	}
	for name, defs := range doc.Groups {
		var props []namedProperty
		for _, d := range defs {
			if d.Include != "" {
				return nil, fmt.Errorf("stix: catalog %s: group %s: groups cannot include groups", doc.Version, name)
			}
			if d.Name == "" {
				return nil, fmt.Errorf("stix: catalog %s: group %s: property without name", doc.Version, name)
			}
			p, err := c.property(d, "")
			if err != nil {
				return nil, fmt.Errorf("stix: catalog %s: group %s: %w", doc.Version, name, err)
			}
			props = append(props, namedProperty{name: d.Name, prop: p})
		}
		c.groups[name] = props
	}

	for _, kd := range doc.Objects {
		if kd.Type == "" {
			return nil, fmt.Errorf("stix: catalog %s: object without type", doc.Version)
		}
		k, err := c.kind(kd, kd.Type)
		if err != nil {
			return nil, err
		}
		c.Kinds = append(c.Kinds, k)
	}
	return c, nil
}

// Register adds every top-level kind of the catalog to r.
func (c *Catalog) Register(r *Registry) error {
	for _, k := range c.Kinds {
		if err := r.Register(k); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) kind(kd kindDoc, typ string) (*Kind, error) {
	label := kd.Type
	if label == "" {
		label = kd.ID
	}
	b := Properties()
	for _, d := range kd.Properties {
		if d.Include != "" {
			group, ok := c.groups[d.Include]
			if !ok {
				return nil, fmt.Errorf("stix: catalog %s: %s: unknown group %q", c.Version, label, d.Include)
			}
			for _, np := range group {
				b.Add(np.name, bindOwner(np.prop, typ))
			}
			continue
		}
		if d.Name == "" {
			return nil, fmt.Errorf("stix: catalog %s: %s: property without name", c.Version, label)
		}
		p, err := c.property(d, typ)
		if err != nil {
			return nil, fmt.Errorf("stix: catalog %s: %s.%s: %w", c.Version, label, d.Name, err)
		}
		b.Add(d.Name, p)
	}
	ps, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("stix: catalog %s: %s: %w", c.Version, label, err)
	}
	for _, name := range kd.Required {
		p, ok := ps.props[name]
		if !ok {
			return nil, fmt.Errorf("stix: catalog %s: %s: required property %q is not declared", c.Version, label, name)
		}
		ps.props[name] = p.Required()
	}

	var cs []Constraint
	for _, name := range kd.Constraints {
		fn, ok := constraints[name]
		if !ok {
			return nil, fmt.Errorf("stix: catalog %s: %s: unknown constraint %q", c.Version, label, name)
		}
		cs = append(cs, fn)
	}
	if ps.Has("created") && ps.Has("modified") {
		cs = append(cs, constraints["modified_not_before_created"])
	}
	return NewKind(KindDef{Name: kd.Name, Type: typ, Version: c.Version, Properties: ps, DropEmpty: true, Constraints: cs})
}

func (c *Catalog) property(d propDef, owner string) (Property, error) {
	var p Property
	switch d.Kind {
	case "string":
		p = String()
	case "integer":
		lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
		if d.Min != nil {
			lo = *d.Min
		}
		if d.Max != nil {
			hi = *d.Max
		}
		p = IntegerBetween(lo, hi)
	case "float":
		p = Float()
	case "boolean":
		p = Boolean()
		if d.Coerce {
			p = CoercedBoolean()
		}
	case "timestamp":
		prec, err := codec.ParsePrecision(d.Precision)
		if err != nil {
			return Property{}, err
		}
		p = Timestamp(prec)
	case "type":
		p = Type(owner)
	case "id":
		p = ID()
	case "reference":
		p = Reference(d.Types...)
	case "enum":
		if len(d.Values) == 0 {
			return Property{}, fmt.Errorf("enum without values")
		}
		p = Enum(d.Values...)
	case "hashes":
		p = Hashes()
	case "dictionary":
		p = Dictionary()
	case "embedded":
		k, ok := c.Embedded[d.Embedded]
		if !ok {
			return Property{}, fmt.Errorf("unknown embedded kind %q", d.Embedded)
		}
		p = Embedded(k)
	case "object":
		p = ObjectRef()
	case "pattern":
		fn, ok := patternValidators[d.Validator]
		if !ok {
			return Property{}, fmt.Errorf("unknown pattern validator %q", d.Validator)
		}
		p = Pattern(fn)
	case "list":
		if d.Of == nil {
			return Property{}, fmt.Errorf("list without element kind")
		}
		inner, err := c.property(*d.Of, owner)
		if err != nil {
			return Property{}, err
		}
		p = List(inner)
	default:
		return Property{}, fmt.Errorf("unknown property kind %q", d.Kind)
	}

	switch {
	case d.Fixed != nil:
		p = p.Fixed(d.Fixed)
	case d.DefaultNow:
		p = p.DefaultNow()
	case d.DefaultFrom != "":
		p = p.DefaultFrom(d.DefaultFrom)
	case d.Default != nil:
		p = p.Default(d.Default)
	}
	if d.Required {
		p = p.Required()
	}
	return p, nil
}

// bindOwner gives a shared discriminator property the owner's fixed value.
func bindOwner(p Property, typ string) Property {
	if p.kind != "type" {
		return p
	}
	q := Type(typ)
	q.required = p.required
	return q
}

func stixPatternConstraint(_ context.Context, o *Object) error {
	if o.GetString("pattern_type") != "stix" {
		return nil
	}
	if err := pattern.Validate(o.GetString("pattern")); err != nil {
		return &InvalidValueError{Property: "pattern", Reason: err.Error(), Cause: err}
	}
	return nil
}

// orderedTimes requires later to be after (strict) or not before earlier when
// both are present.
func orderedTimes(earlier, later string, strict bool) Constraint {
	return func(_ context.Context, o *Object) error {
		a, b := o.GetTime(earlier), o.GetTime(later)
		if a.IsZero() || b.IsZero() {
			return nil
		}
		if strict && !b.After(a) {
			return InvalidProperty(later, "%s must be greater than %s.", later, earlier)
		}
		if b.Before(a) {
			return InvalidProperty(later, "%s must be later than or equal to %s.", later, earlier)
		}
		return nil
	}
}

var (
	builtinOnce     sync.Once
	builtinCatalogs map[string]*Catalog
	builtinErr      error
)

func loadBuiltinCatalogs() (map[string]*Catalog, error) {
	builtinOnce.Do(func() {
		out := map[string]*Catalog{}
		for _, file := range []string{"catalog/v20.yaml", "catalog/v21.yaml"} {
			data, err := builtinCatalogFS.ReadFile(file)
			if err != nil {
				builtinErr = err
				return
			}
			c, err := LoadCatalog(data)
			if err != nil {
				builtinErr = fmt.Errorf("%s: %w", file, err)
				return
			}
			out[c.Version] = c
		}
		builtinCatalogs = out
	})
	return builtinCatalogs, builtinErr
}

// BuiltinCatalog returns the embedded catalog for version.
func BuiltinCatalog(version string) (*Catalog, error) {
	cats, err := loadBuiltinCatalogs()
	if err != nil {
		return nil, err
	}
	c, ok := cats[version]
	if !ok {
		return nil, fmt.Errorf("stix: no built-in catalog for version %q", version)
	}
	return c, nil
}

// builtinGroups returns the properties surrounding the body of a domain object.
func builtinGroups(version string) (head, tail []namedProperty, err error) {
	c, err := BuiltinCatalog(version)
	if err != nil {
		return nil, nil, err
	}
	return c.groups["sdo_head"], c.groups["sdo_tail"], nil
}

func registerBuiltins(r *Registry) error {
	cats, err := loadBuiltinCatalogs()
	if err != nil {
		return err
	}
	for _, v := range []string{Version20, Version21} {
		if err := cats[v].Register(r); err != nil {
			return err
		}
		if err := r.Register(bundleKind(v)); err != nil {
			return err
		}
	}
	return nil
}
