package stix

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// encodedNames selects the properties that appear in output. Optional
// properties materialized only by a default are dropped unless requested;
// required ones and those whose default is a generated identity (type, id,
// created, modified) are always kept.
func (o *Object) encodedNames(opt EncodeOpt) []string {
	names := o.Names()
	if opt.IncludeOptionalDefaults || o.kind == nil {
		return names
	}
	out := names[:0:0]
	for _, n := range names {
		if o.defaultOnly(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// defaultOnly reports whether n holds an optional default that is left out of
// output by default, such as revoked=false.
func (o *Object) defaultOnly(n string) bool {
	p := o.presence[n]
	if p&PresenceDefaultApplied == 0 || p&PresenceSeen != 0 {
		return false
	}
	prop, ok := o.kind.props.Get(n)
	if !ok || prop.required {
		return false
	}
	return prop.hasLiteralDefault && !prop.hasFixed
}

func (o *Object) encodeValue(n string) any {
	v := o.fields[n]
	if o.kind != nil {
		if p, ok := o.kind.props.Get(n); ok {
			return p.Encode(v)
		}
	}
	return jsonReady(v)
}

// MarshalJSON emits the record in canonical property order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return o.marshal(EncodeOpt{})
}

func (o *Object) marshal(opt EncodeOpt) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range o.encodedNames(opt) {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.MarshalNoEscape(n)
		if err != nil {
			return nil, err
		}
		val, err := json.MarshalNoEscape(o.encodeValue(n))
		if err != nil {
			return nil, fmt.Errorf("stix: encode %s.%s: %w", o.TypeName(), n, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Serialize encodes the record. The last option wins.
func (o *Object) Serialize(opts ...EncodeOpt) ([]byte, error) {
	opt := lastEncodeOpt(opts)
	b, err := o.marshal(opt)
	if err != nil || opt.Indent == "" {
		return b, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", opt.Indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// String returns the record as JSON indented with four spaces.
func (o *Object) String() string {
	b, err := o.Serialize(EncodeOpt{Indent: "    "})
	if err != nil {
		return fmt.Sprintf("%s(<%v>)", o.TypeName(), err)
	}
	return string(b)
}
