package stix

import (
	"context"
	"fmt"
)

// bundleKind defines the container record of version. 2.0 bundles carry a
// fixed spec_version; 2.1 bundles leave it to their members.
func bundleKind(version string) *Kind {
	b := Properties()
	b.Add("type", Type("bundle"))
	b.Add("id", ID())
	if version == Version20 {
		b.Add("spec_version", String().Fixed(Version20)).Required()
	}
	b.Add("objects", List(ObjectRef()))
	return MustNewKind(KindDef{
		Name:       "Bundle",
		Type:       "bundle",
		Version:    version,
		Properties: b.MustBuild(),
		Contents:   "objects",
		DropEmpty:  true,
	})
}

// Bundle is a record holding an ordered, possibly heterogeneous list of
// other records.
type Bundle struct {
	*Object
}

// NewBundle builds a bundle of version from members. Members may be records,
// mappings (parsed by their type) or one leading slice of either.
func NewBundle(ctx context.Context, version string, members ...any) (*Bundle, error) {
	return NewBundleWith(ctx, version, nil, members)
}

// NewBundleWith is NewBundle with extra named fields and options. Members
// given positionally precede those in fields["objects"].
func NewBundleWith(ctx context.Context, version string, fields Fields, members []any, opts ...ConstructOpt) (*Bundle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	k, ok := registryFrom(ctx).Lookup(version, "bundle")
	if !ok {
		return nil, &UnknownTypeError{Type: "bundle", Version: version}
	}
	o, err := k.Construct(ctx, fields, members, opts...)
	if err != nil {
		return nil, err
	}
	return &Bundle{Object: o}, nil
}

// AsBundle views a parsed bundle record as a Bundle.
func AsBundle(o *Object) (*Bundle, error) {
	if o == nil || o.Type() != "bundle" {
		return nil, fmt.Errorf("stix: not a bundle")
	}
	return &Bundle{Object: o}, nil
}

// Objects returns the members in order.
func (b *Bundle) Objects() []*Object {
	items := b.GetList("objects")
	out := make([]*Object, 0, len(items))
	for _, it := range items {
		if o, ok := it.(*Object); ok {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of members.
func (b *Bundle) Len() int { return len(b.GetList("objects")) }

// GetObj returns every member whose id equals id. It fails with a
// KeyNotFoundError whose Empty field tells an empty bundle from a miss.
func (b *Bundle) GetObj(id string) ([]*Object, error) {
	if !b.Has("objects") {
		return nil, &KeyNotFoundError{ID: id, Empty: true}
	}
	var found []*Object
	for _, o := range b.Objects() {
		if o.ID() == id {
			found = append(found, o)
		}
	}
	if len(found) == 0 {
		return nil, &KeyNotFoundError{ID: id}
	}
	return found, nil
}
