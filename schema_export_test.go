package stix_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	stix "github.com/reoring/stix"
	js "github.com/reoring/stix/jsonschema"
)

const uuidRE = "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}"

func gadgetKind(t *testing.T) *stix.Kind {
	t.Helper()
	k, err := stix.NewKind(stix.KindDef{
		Type:    "x-gadget",
		Version: stix.Version21,
		Properties: stix.Properties().
			Add("type", stix.Type("x-gadget")).
			Add("id", stix.ID()).
			Add("count", stix.IntegerBetween(0, 10)).Required().
			Add("tags", stix.List(stix.Enum("a", "b"))).
			Add("on", stix.Boolean().Default(false)).
			Add("owner", stix.Reference("identity")).
			MustBuild(),
	})
	if err != nil {
		t.Fatalf("kind: %v", err)
	}
	return k
}

func TestKind_JSONSchema(t *testing.T) {
	want := &js.Schema{
		Title: "XGadget",
		Type:  "object",
		Properties: map[string]*js.Schema{
			"type":  {Type: "string", Const: "x-gadget", Default: "x-gadget"},
			"id":    {Type: "string", Pattern: "^x-gadget--" + uuidRE + "$"},
			"count": {Type: "integer", Minimum: js.Float(0), Maximum: js.Float(10)},
			"tags":  {Type: "array", Items: &js.Schema{Type: "string", Enum: []any{"a", "b"}}},
			"on":    {Type: "boolean", Default: false},
			"owner": {Type: "string", Pattern: "^(identity)--" + uuidRE + "$"},
		},
		Required:             []string{"count"},
		AdditionalProperties: false,
	}
	if diff := cmp.Diff(want, gadgetKind(t).JSONSchema()); diff != "" {
		t.Fatalf("schema (-want +got):\n%s", diff)
	}
}

func TestExportJSONSchema(t *testing.T) {
	data, err := stix.ExportJSONSchema(gadgetKind(t))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("exported schema is not JSON: %v\n%s", err, data)
	}
	if doc["$schema"] != js.Draft || doc["description"] != "STIX 2.1 x-gadget" || doc["additionalProperties"] != false {
		t.Fatalf("unexpected header: %s", data)
	}

	data, err = stix.ExportJSONSchema(stix.MustKind(stix.Version20, "indicator"))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var ind struct {
		Required   []string                   `json:"required"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &ind); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff([]string{"labels", "pattern"}, ind.Required); diff != "" {
		t.Fatalf("required (-want +got):\n%s", diff)
	}
	if _, ok := ind.Properties["kill_chain_phases"]; !ok {
		t.Fatalf("missing kill_chain_phases in %s", data)
	}
}

func TestKind_JSONSchema_ListsAndCoercion(t *testing.T) {
	labels := stix.MustKind(stix.Version20, "indicator").JSONSchema().Properties["labels"]
	if diff := cmp.Diff(&js.Schema{Type: "array", Items: &js.Schema{Type: "string"}, MinItems: js.Int(1)}, labels); diff != "" {
		t.Fatalf("labels (-want +got):\n%s", diff)
	}
	if tags := gadgetKind(t).JSONSchema().Properties["tags"]; tags.MinItems != nil {
		t.Fatalf("kinds that keep empty lists accept them: %+v", tags)
	}

	want := &js.Schema{OneOf: []*js.Schema{
		{Type: "boolean"},
		{Type: "string", Pattern: "^([Tt][Rr][Uu][Ee]|[Ff][Aa][Ll][Ss][Ee])$"},
	}}
	if diff := cmp.Diff(want, stix.CoercedBoolean().JSONSchema("")); diff != "" {
		t.Fatalf("coerced boolean (-want +got):\n%s", diff)
	}
}
