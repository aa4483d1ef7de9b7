package stix

import "fmt"

// PropertySet is the ordered schema of one kind. Order is the canonical
// serialization order. A built set is never modified.
type PropertySet struct {
	names []string
	props map[string]Property
}

type propertySetBuilder struct {
	names []string
	props map[string]Property
	err   error
}

type propertyStep struct {
	b    *propertySetBuilder
	name string
}

// Properties creates an empty property set builder.
func Properties() *propertySetBuilder {
	return &propertySetBuilder{props: map[string]Property{}}
}

// Add appends a property. Adding a name twice fails at Build.
func (b *propertySetBuilder) Add(name string, p Property) *propertyStep {
	if _, dup := b.props[name]; dup && b.err == nil {
		b.err = fmt.Errorf("stix: property %q declared twice", name)
	}
	if name == "" && b.err == nil {
		b.err = fmt.Errorf("stix: empty property name")
	}
	if _, dup := b.props[name]; !dup {
		b.names = append(b.names, name)
	}
	b.props[name] = p
	return &propertyStep{b: b, name: name}
}

// Required marks the property just added as required.
func (s *propertyStep) Required() *propertySetBuilder {
	s.b.props[s.name] = s.b.props[s.name].Required()
	return s.b
}

// Optional leaves the property just added optional.
func (s *propertyStep) Optional() *propertySetBuilder { return s.b }

func (s *propertyStep) Add(name string, p Property) *propertyStep { return s.b.Add(name, p) }
func (s *propertyStep) Build() (PropertySet, error)              { return s.b.Build() }
func (s *propertyStep) MustBuild() PropertySet                   { return s.b.MustBuild() }

// Build returns the finished set.
func (b *propertySetBuilder) Build() (PropertySet, error) {
	if b.err != nil {
		return PropertySet{}, b.err
	}
	props := make(map[string]Property, len(b.props))
	for k, v := range b.props {
		props[k] = v
	}
	return PropertySet{names: append([]string(nil), b.names...), props: props}, nil
}

// MustBuild is like Build but panics on error.
func (b *propertySetBuilder) MustBuild() PropertySet {
	ps, err := b.Build()
	if err != nil {
		panic(err)
	}
	return ps
}

// Names returns the property names in declared order.
func (ps PropertySet) Names() []string { return append([]string(nil), ps.names...) }

// Get returns the descriptor for name.
func (ps PropertySet) Get(name string) (Property, bool) {
	p, ok := ps.props[name]
	return p, ok
}

// Has reports whether name is declared.
func (ps PropertySet) Has(name string) bool {
	_, ok := ps.props[name]
	return ok
}

// Len returns the number of declared properties.
func (ps PropertySet) Len() int { return len(ps.names) }

// Required returns the names of required properties in declared order.
func (ps PropertySet) Required() []string {
	var out []string
	for _, n := range ps.names {
		if ps.props[n].required {
			out = append(out, n)
		}
	}
	return out
}
