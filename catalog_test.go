package stix_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	stix "github.com/reoring/stix"
)

const smallCatalog = `
version: "9.9"
groups:
  head:
    - {name: type, kind: type}
    - {name: id, kind: id}
    - {name: created, kind: timestamp, precision: millisecond, default_now: true}
    - {name: modified, kind: timestamp, precision: millisecond, default_from: created}
embedded:
  - id: leg
    name: Leg
    properties:
      - {name: side, kind: enum, values: [left, right], required: true}
objects:
  - type: x-robot
    required: [model]
    properties:
      - include: head
      - {name: model, kind: string}
      - {name: legs, kind: list, of: {kind: embedded, embedded: leg}}
      - {name: armed, kind: boolean, coerce: true, default: false}
      - {name: tags, kind: list, of: {kind: string}}
`

func TestLoadCatalog(t *testing.T) {
	c, err := stix.LoadCatalog([]byte(smallCatalog))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Version != "9.9" || len(c.Kinds) != 1 || c.Embedded["leg"] == nil {
		t.Fatalf("unexpected catalog: %+v", c)
	}
	r := stix.NewRegistry()
	if err := c.Register(r); err != nil {
		t.Fatalf("register: %v", err)
	}

	o, err := stix.Parse(testCtx(), `{"type": "x-robot", "model": "T-800", "armed": "TRUE", "legs": [{"side": "left"}], "tags": []}`,
		stix.ParseOpt{Registry: r, Version: "9.9"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !o.GetBool("armed") || o.Has("tags") {
		t.Fatalf("unexpected record: %s", o)
	}
	if diff := cmp.Diff([]string{"type", "id", "created", "modified", "model", "legs", "armed"}, o.Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}

	_, err = stix.Parse(testCtx(), `{"type": "x-robot", "model": "T-800", "legs": [{"side": "up"}]}`, stix.ParseOpt{Registry: r, Version: "9.9"})
	if err == nil || !strings.Contains(err.Error(), "value 'up' is not valid for this enumeration.") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCatalog_GroupUsesEmbeddedKind(t *testing.T) {
	doc := `
version: "9.8"
groups:
  common:
    - {name: type, kind: type}
    - {name: id, kind: id}
    - {name: refs, kind: list, of: {kind: embedded, embedded: ref}}
embedded:
  - id: ref
    name: Ref
    properties:
      - {name: source_name, kind: string, required: true}
objects:
  - type: x-note
    properties:
      - include: common
`
	c, err := stix.LoadCatalog([]byte(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err = c.Kinds[0].New(testCtx(), stix.Fields{"refs": []any{map[string]any{}}})
	if err == nil || !strings.Contains(err.Error(), "No values for required properties for Ref: (source_name).") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want string
	}{
		"unknown key": {
			doc:  "version: \"9\"\nbogus: 1\n",
			want: "field bogus not found",
		},
		"missing version": {
			doc:  "objects: []\n",
			want: "missing version",
		},
		"unknown group": {
			doc:  "version: \"9\"\nobjects:\n  - type: x-a\n    properties:\n      - include: nope\n",
			want: `unknown group "nope"`,
		},
		"unknown kind": {
			doc:  "version: \"9\"\nobjects:\n  - type: x-a\n    properties:\n      - {name: type, kind: type}\n      - {name: a, kind: blob}\n",
			want: `unknown property kind "blob"`,
		},
		"undeclared required": {
			doc:  "version: \"9\"\nobjects:\n  - type: x-a\n    required: [b]\n    properties:\n      - {name: type, kind: type}\n",
			want: `required property "b" is not declared`,
		},
		"unknown constraint": {
			doc:  "version: \"9\"\nobjects:\n  - type: x-a\n    constraints: [always]\n    properties:\n      - {name: type, kind: type}\n",
			want: `unknown constraint "always"`,
		},
		"enum without values": {
			doc:  "version: \"9\"\nobjects:\n  - type: x-a\n    properties:\n      - {name: type, kind: type}\n      - {name: e, kind: enum}\n",
			want: "enum without values",
		},
		"missing type property": {
			doc:  "version: \"9\"\nobjects:\n  - type: x-a\n    properties:\n      - {name: a, kind: string}\n",
			want: "must declare a type property",
		},
		"duplicate property": {
			doc:  "version: \"9\"\nobjects:\n  - type: x-a\n    properties:\n      - {name: type, kind: type}\n      - {name: type, kind: string}\n",
			want: "declared twice",
		},
		"unknown embedded": {
			doc:  "version: \"9\"\nobjects:\n  - type: x-a\n    properties:\n      - {name: type, kind: type}\n      - {name: e, kind: embedded, embedded: nope}\n",
			want: `unknown embedded kind "nope"`,
		},
		"bad precision": {
			doc:  "version: \"9\"\nobjects:\n  - type: x-a\n    properties:\n      - {name: type, kind: type}\n      - {name: t, kind: timestamp, precision: second}\n",
			want: "unknown timestamp precision",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := stix.LoadCatalog([]byte(tc.doc))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.want)
			}
		})
	}
}

func TestBuiltinCatalogs(t *testing.T) {
	for _, v := range []string{stix.Version20, stix.Version21} {
		c, err := stix.BuiltinCatalog(v)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if len(c.Kinds) == 0 {
			t.Fatalf("%s: no kinds", v)
		}
		if c.Embedded["external-reference"] == nil {
			t.Fatalf("%s: external-reference not loaded", v)
		}
		for _, k := range c.Kinds {
			names := k.Properties().Names()
			if names[0] != "type" {
				t.Fatalf("%s %s: type must come first, got %v", v, k.Type(), names)
			}
			if !k.Properties().Has("id") || !k.Properties().Has("created") {
				t.Fatalf("%s %s: missing common properties", v, k.Type())
			}
			if v == stix.Version21 && names[1] != "spec_version" {
				t.Fatalf("%s %s: spec_version must follow type, got %v", v, k.Type(), names)
			}
			id, _ := k.Properties().Get("id")
			if id.IsRequired() || !id.HasDefault() {
				t.Fatalf("%s %s: id must be generated by default", v, k.Type())
			}
		}
	}
	if _, err := stix.BuiltinCatalog("3.0"); err == nil {
		t.Fatalf("expected error for unknown version")
	}
}
