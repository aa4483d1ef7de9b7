package stix

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Object is a constructed record. It is never modified after construction;
// NewVersion and Revoke return new records.
//
// Records of unknown types parsed in permissive mode are generic: they have no
// Kind and keep their fields verbatim.
type Object struct {
	kind     *Kind
	fields   Fields
	presence PresenceMap
	custom   bool
}

func newGeneric(fields Fields) *Object {
	pm := make(PresenceMap, len(fields))
	out := make(Fields, len(fields))
	for name, v := range fields {
		out[name] = cloneValue(v)
		pm[name] = PresenceSeen | PresenceCustom
	}
	return &Object{fields: out, presence: pm, custom: true}
}

// Kind returns the record type, or nil for generic records.
func (o *Object) Kind() *Kind { return o.kind }

// IsGeneric reports whether the record was built without a property set.
func (o *Object) IsGeneric() bool { return o.kind == nil }

// HasCustom reports whether the record, or a record nested in it, carries
// properties outside its property set. Generic records always do.
func (o *Object) HasCustom() bool { return o.custom }

// TypeName returns the display name, e.g. "Indicator".
func (o *Object) TypeName() string {
	if o.kind != nil {
		return o.kind.name
	}
	return displayName(o.Type())
}

// Get returns the value of a property. Lists and maps are returned as copies.
func (o *Object) Get(name string) (any, bool) {
	v, ok := o.fields[name]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Has reports whether the property has a value.
func (o *Object) Has(name string) bool {
	_, ok := o.fields[name]
	return ok
}

// Presence reports how the property got its value.
func (o *Object) Presence(name string) Presence { return o.presence[name] }

// PresenceMap returns a copy of the presence flags of every property.
func (o *Object) PresenceMap() PresenceMap { return o.presence.clone() }

func (o *Object) Type() string        { return o.GetString("type") }
func (o *Object) ID() string          { return o.GetString("id") }
func (o *Object) Created() time.Time  { return o.GetTime("created") }
func (o *Object) Modified() time.Time { return o.GetTime("modified") }

// SpecVersion returns the version of the record's kind, or the spec_version
// property of a generic record.
func (o *Object) SpecVersion() string {
	if o.kind != nil {
		return o.kind.version
	}
	return o.GetString("spec_version")
}

// GetString returns a string property, or "" when absent or not a string.
func (o *Object) GetString(name string) string {
	s, _ := o.fields[name].(string)
	return s
}

// GetTime returns a timestamp property, or the zero time.
func (o *Object) GetTime(name string) time.Time {
	t, _ := o.fields[name].(time.Time)
	return t
}

// GetBool returns a boolean property, or false.
func (o *Object) GetBool(name string) bool {
	b, _ := o.fields[name].(bool)
	return b
}

// GetList returns a copy of a list property, or nil.
func (o *Object) GetList(name string) []any {
	v, ok := o.fields[name]
	if !ok || !isSequence(v) {
		return nil
	}
	return append([]any(nil), asSlice(v)...)
}

// GetObject returns a nested record property, or nil.
func (o *Object) GetObject(name string) *Object {
	n, _ := o.fields[name].(*Object)
	return n
}

// Fields returns a copy of the normalized field map.
func (o *Object) Fields() Fields {
	out := make(Fields, len(o.fields))
	for k, v := range o.fields {
		out[k] = cloneValue(v)
	}
	return out
}

// Names returns the property names with values: declared properties in
// declared order, then custom properties sorted by name.
func (o *Object) Names() []string {
	names := make([]string, 0, len(o.fields))
	if o.kind != nil {
		for _, n := range o.kind.props.names {
			if _, ok := o.fields[n]; ok {
				names = append(names, n)
			}
		}
	} else {
		for _, n := range []string{"type", "id"} {
			if _, ok := o.fields[n]; ok {
				names = append(names, n)
			}
		}
	}
	var rest []string
	for n := range o.fields {
		if o.kind != nil && o.kind.props.Has(n) {
			continue
		}
		if o.kind == nil && (n == "type" || n == "id") {
			continue
		}
		rest = append(rest, n)
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Set always fails: records are immutable.
func (o *Object) Set(name string, _ any) error {
	return &ImmutableError{Type: o.TypeName(), Property: name}
}

// Equal reports whether both records have the same type and the same
// normalized fields. Timestamps compare by instant.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.Type() != other.Type() || len(o.fields) != len(other.fields) {
		return false
	}
	for k, v := range o.fields {
		w, ok := other.fields[k]
		if !ok || !valuesEqual(v, w) {
			return false
		}
	}
	return true
}

// Repr renders the record as Name(field=value, ...) in serialization order
// with values in their JSON form.
func (o *Object) Repr() string {
	var b strings.Builder
	b.WriteString(o.TypeName())
	b.WriteByte('(')
	for i, n := range o.encodedNames(EncodeOpt{}) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n)
		b.WriteByte('=')
		raw, err := json.MarshalNoEscape(o.encodeValue(n))
		if err != nil {
			b.WriteString("<" + err.Error() + ">")
			continue
		}
		b.Write(raw)
	}
	b.WriteByte(')')
	return b.String()
}

// cloneValue deep-copies lists and mappings so a record shares no memory with
// its caller. Typed slices and string-keyed maps come back as []any and
// map[string]any.
func cloneValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, time.Time, *Object:
		return v
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case Fields:
		out := make(Fields, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []byte:
		return append([]byte(nil), x...)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := asSlice(v)
		out := make([]any, len(items))
		for i, e := range items {
			out[i] = cloneValue(e)
		}
		return out
	case reflect.Map:
		m, ok := asFields(v)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = cloneValue(e)
		}
		return out
	}
	return v
}

// carriesCustom reports whether a cleaned value holds a nested record with
// custom content.
func carriesCustom(v any) bool {
	switch x := v.(type) {
	case *Object:
		return x.custom
	case []any:
		for _, e := range x {
			if carriesCustom(e) {
				return true
			}
		}
	case map[string]any:
		for _, e := range x {
			if carriesCustom(e) {
				return true
			}
		}
	}
	return false
}
