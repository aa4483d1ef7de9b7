package stix

import (
	"sort"

	"github.com/goccy/go-json"

	js "github.com/reoring/stix/jsonschema"
)

// JSONSchema projects the kind into a JSON Schema object that lists the
// required properties and rejects custom ones. Lists of kinds that drop empty
// lists need at least one item.
func (k *Kind) JSONSchema() *js.Schema {
	s := &js.Schema{
		Title:                k.name,
		Type:                 "object",
		Properties:           make(map[string]*js.Schema, k.props.Len()),
		AdditionalProperties: false,
	}
	for _, name := range k.props.names {
		p := k.props.props[name]
		ps := p.JSONSchema(k.typ)
		if k.dropEmpty && ps.Type == "array" {
			ps.MinItems = js.Int(1)
		}
		s.Properties[name] = ps
		if p.required {
			s.Required = append(s.Required, name)
		}
	}
	sort.Strings(s.Required)
	return s
}

// ExportJSONSchema returns the JSON Schema document of k.
func ExportJSONSchema(k *Kind) ([]byte, error) {
	s := k.JSONSchema()
	s.SchemaURI = js.Draft
	if k.typ != "" {
		s.Description = "STIX " + k.version + " " + k.typ
	}
	return json.MarshalIndent(s, "", "  ")
}
