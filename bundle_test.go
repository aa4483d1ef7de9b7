package stix_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	stix "github.com/reoring/stix"
)

func v21Indicator(id string) stix.Fields {
	return stix.Fields{
		"type":         "indicator",
		"spec_version": "2.1",
		"id":           id,
		"created":      "2017-01-01T12:34:56.000Z",
		"modified":     "2017-01-01T12:34:56.000Z",
		"pattern":      md5Pattern,
		"pattern_type": "stix",
		"valid_from":   "2017-01-01T12:34:56Z",
	}
}

func TestBundle_V20(t *testing.T) {
	ctx := testCtx()
	ind := newIndicator(t, ctx, indicatorFields())
	b, err := stix.NewBundle(ctx, stix.Version20, ind)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	out, err := b.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	prefix := `{"type":"bundle","id":"bundle--00000000-0000-4000-8000-000000000001","spec_version":"2.0","objects":[{"type":"indicator",`
	if !strings.HasPrefix(string(out), prefix) {
		t.Fatalf("unexpected output: %s", out)
	}

	_, err = stix.NewBundleWith(ctx, stix.Version20, stix.Fields{"spec_version": "2.1"}, nil)
	if err == nil || err.Error() != "Invalid value for Bundle 'spec_version': must equal '2.0'." {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBundle_PositionalMembers(t *testing.T) {
	ctx := testCtx()
	a, err := stix.New(ctx, stix.Version21, "indicator", v21Indicator("indicator--00000000-0000-4000-8000-00000000000a"))
	if err != nil {
		t.Fatalf("indicator: %v", err)
	}
	c, err := stix.New(ctx, stix.Version21, "indicator", v21Indicator("indicator--00000000-0000-4000-8000-00000000000c"))
	if err != nil {
		t.Fatalf("indicator: %v", err)
	}

	// A leading list is flattened, then the other positional values, then
	// the named objects.
	b, err := stix.NewBundleWith(ctx, stix.Version21,
		stix.Fields{"objects": []any{v21Indicator("indicator--00000000-0000-4000-8000-00000000000d")}},
		[]any{[]*stix.Object{a}, c},
	)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	var ids []string
	for _, o := range b.Objects() {
		ids = append(ids, o.ID())
	}
	want := []string{
		"indicator--00000000-0000-4000-8000-00000000000a",
		"indicator--00000000-0000-4000-8000-00000000000c",
		"indicator--00000000-0000-4000-8000-00000000000d",
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("member order (-want +got):\n%s", diff)
	}
	if b.Len() != 3 || b.Has("spec_version") {
		t.Fatalf("len %d, spec_version present %v", b.Len(), b.Has("spec_version"))
	}
}

func TestBundle_GetObj(t *testing.T) {
	ctx := testCtx()
	empty, err := stix.NewBundle(ctx, stix.Version21)
	if err != nil {
		t.Fatalf("empty bundle: %v", err)
	}
	_, err = empty.GetObj(indicatorID)
	if !errors.Is(err, stix.ErrEmptyBundle) || errors.Is(err, stix.ErrObjectNotFound) {
		t.Fatalf("expected empty bundle error, got %v", err)
	}
	if err.Error() != "There are no objects in this empty bundle" {
		t.Fatalf("message: %s", err)
	}

	alsoEmpty, err := stix.NewBundle(ctx, stix.Version21, []any{})
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if _, err := alsoEmpty.GetObj(indicatorID); !errors.Is(err, stix.ErrEmptyBundle) {
		t.Fatalf("an empty member list is an empty bundle: %v", err)
	}

	first := v21Indicator(indicatorID)
	second := v21Indicator(indicatorID)
	second["modified"] = "2018-01-01T00:00:00.000Z"
	b, err := stix.NewBundle(ctx, stix.Version21, first, second)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	found, err := b.GetObj(indicatorID)
	if err != nil || len(found) != 2 {
		t.Fatalf("expected both versions, got %d %v", len(found), err)
	}

	_, err = b.GetObj(malwareID)
	var kn *stix.KeyNotFoundError
	if !errors.As(err, &kn) || kn.Empty || !errors.Is(err, stix.ErrObjectNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if want := "'" + malwareID + "' does not match the id property of any of the bundle's objects"; err.Error() != want {
		t.Fatalf("message: %s", err)
	}
}

func TestBundle_RejectsNestedBundle(t *testing.T) {
	ctx := testCtx()
	inner, err := stix.NewBundle(ctx, stix.Version21)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	_, err = stix.NewBundle(ctx, stix.Version21, inner)
	if err == nil || err.Error() != "Invalid value for Bundle 'objects': This property may not contain a Bundle object" {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = stix.NewBundle(ctx, stix.Version21, inner.Object)
	if err == nil || !strings.Contains(err.Error(), "may not contain a Bundle object") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBundle_AllowCustomIsThreaded(t *testing.T) {
	custom := v21Indicator(indicatorID)
	custom["x_score"] = 7
	generic := stix.Fields{"type": "x-thing", "id": "x-thing--00000000-0000-4000-8000-000000000009"}

	_, err := stix.NewBundle(testCtx(), stix.Version21, custom)
	var ep *stix.ExtraPropertiesError
	if !errors.As(err, &ep) {
		t.Fatalf("expected member ExtraPropertiesError, got %v", err)
	}
	_, err = stix.NewBundle(testCtx(), stix.Version21, generic)
	var ut *stix.UnknownTypeError
	if !errors.As(err, &ut) {
		t.Fatalf("expected member UnknownTypeError, got %v", err)
	}

	b, err := stix.NewBundleWith(testCtx(), stix.Version21, nil, []any{custom, generic}, stix.ConstructOpt{AllowCustom: true})
	if err != nil {
		t.Fatalf("permissive bundle: %v", err)
	}
	objs := b.Objects()
	if len(objs) != 2 || !objs[0].HasCustom() || !objs[1].IsGeneric() {
		t.Fatalf("unexpected members: %v", objs)
	}

	// A record with custom content cannot join a strict bundle.
	_, err = stix.NewBundle(testCtx(), stix.Version21, objs[0])
	if err == nil || !strings.Contains(err.Error(), "allow_custom is not enabled") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseBundle(t *testing.T) {
	in := `{
		"type": "bundle",
		"id": "bundle--00000000-0000-4000-8000-0000000000ff",
		"spec_version": "2.0",
		"objects": [` + expectedIndicator + `]
	}`
	b, err := stix.ParseBundle(testCtx(), in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	objs := b.Objects()
	if len(objs) != 1 || objs[0].TypeName() != "Indicator" || objs[0].SpecVersion() != stix.Version20 {
		t.Fatalf("unexpected members: %v", objs)
	}

	if _, err := stix.ParseBundle(testCtx(), expectedIndicator); err == nil {
		t.Fatalf("an indicator is not a bundle")
	}
}

func TestParseBundle_DetectsVersionFromMembers(t *testing.T) {
	in := `{"type": "bundle", "id": "bundle--00000000-0000-4000-8000-0000000000ff", "objects": [
		{"type": "malware", "spec_version": "2.1", "id": "` + malwareID + `", "created": "2017-01-01T12:34:56.000Z",
		 "modified": "2017-01-01T12:34:56.000Z", "name": "Cryptolocker", "is_family": false}
	]}`
	b, err := stix.ParseBundle(testCtx(), in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b.SpecVersion() != stix.Version21 || b.Objects()[0].SpecVersion() != stix.Version21 {
		t.Fatalf("expected a 2.1 bundle")
	}
}
