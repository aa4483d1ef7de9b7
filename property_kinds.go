package stix

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reoring/stix/codec"
	js "github.com/reoring/stix/jsonschema"
)

// String accepts string values.
func String() Property {
	return Property{
		kind: "string",
		clean: func(_ context.Context, v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, Reasonf("must be a string.")
			}
			return s, nil
		},
		schema: func(string) *js.Schema { return &js.Schema{Type: "string"} },
	}
}

// Integer accepts integral numbers, including integral floats and JSON numbers.
func Integer() Property {
	return IntegerBetween(math.MinInt64, math.MaxInt64)
}

// IntegerBetween accepts integral numbers within [min, max].
func IntegerBetween(min, max int64) Property {
	return Property{
		kind: "integer",
		clean: func(_ context.Context, v any) (any, error) {
			if _, ok := v.(bool); ok {
				return nil, Reasonf("must be an integer.")
			}
			n, ok := toInt64(v)
			if !ok {
				return nil, Reasonf("must be an integer.")
			}
			if n < min {
				return nil, Reasonf("minimum value is %d. received %d", min, n)
			}
			if n > max {
				return nil, Reasonf("maximum value is %d. received %d", max, n)
			}
			return n, nil
		},
		schema: func(string) *js.Schema {
			s := &js.Schema{Type: "integer"}
			if min != math.MinInt64 {
				s.Minimum = js.Float(float64(min))
			}
			if max != math.MaxInt64 {
				s.Maximum = js.Float(float64(max))
			}
			return s
		},
	}
}

// Float accepts any number.
func Float() Property {
	return Property{
		kind: "float",
		clean: func(_ context.Context, v any) (any, error) {
			if _, ok := v.(bool); ok {
				return nil, Reasonf("must be a float.")
			}
			f, ok := toFloat64(v)
			if !ok {
				return nil, Reasonf("must be a float.")
			}
			return f, nil
		},
		schema: func(string) *js.Schema { return &js.Schema{Type: "number"} },
	}
}

// Boolean accepts true and false.
func Boolean() Property {
	return boolean(false)
}

// CoercedBoolean also accepts the strings "true" and "false" in any case.
func CoercedBoolean() Property {
	return boolean(true)
}

func boolean(coerce bool) Property {
	return Property{
		kind: "boolean",
		clean: func(_ context.Context, v any) (any, error) {
			switch b := v.(type) {
			case bool:
				return b, nil
			case string:
				if coerce {
					switch strings.ToLower(b) {
					case "true":
						return true, nil
					case "false":
						return false, nil
					}
				}
			}
			return nil, Reasonf("must be a boolean value.")
		},
		schema: func(string) *js.Schema {
			if !coerce {
				return &js.Schema{Type: "boolean"}
			}
			return &js.Schema{OneOf: []*js.Schema{
				{Type: "boolean"},
				{Type: "string", Pattern: "^([Tt][Rr][Uu][Ee]|[Ff][Aa][Ll][Ss][Ee])$"},
			}}
		},
	}
}

// Timestamp accepts time.Time values and wire-form strings, normalized to UTC
// at the given precision.
func Timestamp(precision codec.Precision) Property {
	c := codec.Timestamp{Precision: precision}
	return Property{
		kind: "timestamp",
		clean: func(_ context.Context, v any) (any, error) {
			switch t := v.(type) {
			case time.Time:
				return c.Normalize(t), nil
			case *time.Time:
				if t != nil {
					return c.Normalize(*t), nil
				}
			case string:
				tt, err := c.Decode(t)
				if err != nil {
					return nil, &reasonError{reason: "must be a valid STIX timestamp (YYYY-MM-DDTHH:MM:SS[.s+]Z).", cause: err}
				}
				return tt, nil
			}
			return nil, Reasonf("must be a valid STIX timestamp (YYYY-MM-DDTHH:MM:SS[.s+]Z).")
		},
		encode: func(v any) any {
			if t, ok := v.(time.Time); ok {
				return c.Encode(t)
			}
			return v
		},
		schema: func(string) *js.Schema { return &js.Schema{Type: "string", Format: "date-time"} },
	}
}

// Type fixes the discriminator property to typ.
func Type(typ string) Property {
	p := String()
	p.kind = "type"
	return p.Fixed(typ)
}

// ID validates "<type>--<uuid>" identifiers against the discriminator of the
// owning record and generates a random one by default.
func ID() Property {
	return Property{
		kind: "identifier",
		clean: func(ctx context.Context, v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, Reasonf("must be a string.")
			}
			prefix := OwnerType(ctx) + "--"
			if !strings.HasPrefix(s, prefix) {
				return nil, Reasonf("must start with '%s'.", prefix)
			}
			if !validUUID(s[len(prefix):]) {
				return nil, Reasonf("must have a valid UUID after '%s'.", prefix)
			}
			return s, nil
		},
		def: func(ctx context.Context, _ Fields) (any, error) {
			return OwnerType(ctx) + "--" + newUUID(ctx).String(), nil
		},
		schema: func(owner string) *js.Schema {
			return &js.Schema{Type: "string", Pattern: "^" + regexp.QuoteMeta(owner) + "--" + uuidPattern + "$"}
		},
	}
}

const uuidPattern = "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}"

func validUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Reference accepts identifiers of other records. When types are given the
// referenced record must have one of them.
func Reference(types ...string) Property {
	allowed := append([]string(nil), types...)
	return Property{
		kind: "reference",
		clean: func(_ context.Context, v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, Reasonf("must be a string.")
			}
			i := strings.Index(s, "--")
			if i <= 0 || !validUUID(s[i+2:]) {
				return nil, Reasonf("must match <object-type>--<guid>.")
			}
			if len(allowed) > 0 && !contains(allowed, s[:i]) {
				if len(allowed) == 1 {
					return nil, Reasonf("must start with '%s--'.", allowed[0])
				}
				quoted := make([]string, len(allowed))
				for k, t := range allowed {
					quoted[k] = "'" + t + "--'"
				}
				return nil, Reasonf("must start with one of %s.", strings.Join(quoted, ", "))
			}
			return s, nil
		},
		schema: func(string) *js.Schema {
			prefix := "[a-z0-9-]+"
			if len(allowed) > 0 {
				quoted := make([]string, len(allowed))
				for k, t := range allowed {
					quoted[k] = regexp.QuoteMeta(t)
				}
				prefix = "(" + strings.Join(quoted, "|") + ")"
			}
			return &js.Schema{Type: "string", Pattern: "^" + prefix + "--" + uuidPattern + "$"}
		},
	}
}

// Enum accepts only the listed strings.
func Enum(values ...string) Property {
	allowed := append([]string(nil), values...)
	return Property{
		kind: "enum",
		clean: func(_ context.Context, v any) (any, error) {
			s, ok := v.(string)
			if !ok || !contains(allowed, s) {
				return nil, Reasonf("value '%v' is not valid for this enumeration.", v)
			}
			return s, nil
		},
		schema: func(string) *js.Schema {
			e := make([]any, len(allowed))
			for i, a := range allowed {
				e[i] = a
			}
			return &js.Schema{Type: "string", Enum: e}
		},
	}
}

var hashLengths = map[string]int{
	"MD5":      32,
	"SHA-1":    40,
	"SHA-256":  64,
	"SHA-512":  128,
	"SHA3-256": 64,
	"SHA3-512": 128,
}

var hexDigits = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// Hashes accepts a non-empty map from hash algorithm to digest. Digests of
// well-known algorithms must be hex strings of the matching length.
func Hashes() Property {
	return Property{
		kind: "hashes",
		clean: func(_ context.Context, v any) (any, error) {
			m, ok := asFields(v)
			if !ok {
				return nil, Reasonf("must be a dictionary.")
			}
			if len(m) == 0 {
				return nil, Reasonf("must not be empty.")
			}
			out := make(map[string]any, len(m))
			for alg, d := range m {
				s, ok := d.(string)
				if !ok {
					return nil, Reasonf("hash value for '%s' must be a string.", alg)
				}
				if n, known := hashLengths[strings.ToUpper(alg)]; known && (len(s) != n || !hexDigits.MatchString(s)) {
					return nil, Reasonf("'%s' is not a valid %s hash.", s, strings.ToUpper(alg))
				}
				out[alg] = s
			}
			return out, nil
		},
		schema: func(string) *js.Schema {
			return &js.Schema{Type: "object", AdditionalProperties: &js.Schema{Type: "string"}}
		},
	}
}

var dictKey = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Dictionary accepts a map whose keys are at most 250 ASCII letters, digits,
// underscores or hyphens. Values are deep-copied but otherwise kept verbatim.
func Dictionary() Property {
	return Property{
		kind: "dictionary",
		clean: func(_ context.Context, v any) (any, error) {
			m, ok := asFields(v)
			if !ok {
				return nil, Reasonf("must be a dictionary.")
			}
			out := make(map[string]any, len(m))
			for k, x := range m {
				if len(k) > 250 {
					return nil, Reasonf("Invalid dictionary key %s: (longer than 250 characters).", k)
				}
				if !dictKey.MatchString(k) {
					return nil, Reasonf("Invalid dictionary key %s: (contains characters other than letters, digits, underscore or hyphen).", k)
				}
				out[k] = cloneValue(x)
			}
			return out, nil
		},
		schema: func(string) *js.Schema { return &js.Schema{Type: "object"} },
	}
}

// Embedded accepts a nested record of kind k, either built or as a mapping.
// Nested records carry no discriminator of their own.
func Embedded(k *Kind) Property {
	return Property{
		kind: "embedded",
		clean: func(ctx context.Context, v any) (any, error) {
			if o, ok := v.(*Object); ok {
				if o.Kind() != k {
					return nil, Reasonf("must be a %s.", k.Name())
				}
				if o.HasCustom() && !AllowsCustom(ctx) {
					return nil, Reasonf("contains custom properties but allow_custom is not enabled.")
				}
				return o, nil
			}
			m, ok := asFields(v)
			if !ok {
				return nil, Reasonf("must be a %s or a mapping.", k.Name())
			}
			return k.Construct(ctx, m, nil, ConstructOpt{AllowCustom: AllowsCustom(ctx)})
		},
		schema: func(string) *js.Schema { return k.JSONSchema() },
	}
}

// ObjectRef accepts any top-level record except a bundle. Mappings are
// dispatched through the parser using the version and allow-custom setting of
// the enclosing construction.
func ObjectRef() Property {
	return Property{
		kind: "object",
		clean: func(ctx context.Context, v any) (any, error) {
			allow := AllowsCustom(ctx)
			switch o := v.(type) {
			case *Bundle:
				return nil, Reasonf("This property may not contain a Bundle object")
			case *Object:
				if o.Type() == "bundle" {
					return nil, Reasonf("This property may not contain a Bundle object")
				}
				if o.HasCustom() && !allow {
					return nil, Reasonf("contains custom content but allow_custom is not enabled.")
				}
				return o, nil
			}
			m, ok := asFields(v)
			if !ok {
				return nil, Reasonf("This property may only contain a dictionary or object")
			}
			if t, _ := m["type"].(string); t == "bundle" {
				return nil, Reasonf("This property may not contain a Bundle object")
			}
			ps := parseState{version: SpecVersion(ctx), allowCustom: allow, registry: registryFrom(ctx)}
			return ps.mapping(ctx, m)
		},
		schema: func(string) *js.Schema {
			return &js.Schema{Type: "object", Required: []string{"type"}}
		},
	}
}

// Pattern accepts strings that pass validate. Its error text becomes the
// failure reason verbatim.
func Pattern(validate func(string) error) Property {
	return Property{
		kind: "pattern",
		clean: func(_ context.Context, v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, Reasonf("must be a string.")
			}
			if validate != nil {
				if err := validate(s); err != nil {
					return nil, &reasonError{reason: err.Error(), cause: err}
				}
			}
			return s, nil
		},
		schema: func(string) *js.Schema { return &js.Schema{Type: "string"} },
	}
}

// ElementError locates a failure inside a list property.
type ElementError struct {
	Index int
	Err   error
}

func (e *ElementError) Error() string { return fmt.Sprintf("item %d: %v", e.Index, e.Err) }
func (e *ElementError) Unwrap() error { return e.Err }

// List accepts a scalar or a sequence and cleans each element with inner.
func List(inner Property) Property {
	return Property{
		kind: "list",
		clean: func(ctx context.Context, v any) (any, error) {
			items := asSlice(v)
			out := make([]any, 0, len(items))
			for i, it := range items {
				cv, err := inner.Clean(ctx, it)
				if err != nil {
					return nil, &reasonError{reason: err.Error(), cause: &ElementError{Index: i, Err: err}}
				}
				out = append(out, cv)
			}
			return out, nil
		},
		encode: func(v any) any {
			items := asSlice(v)
			out := make([]any, len(items))
			for i, it := range items {
				out[i] = inner.Encode(it)
			}
			return out
		},
		schema: func(owner string) *js.Schema {
			return &js.Schema{Type: "array", Items: inner.JSONSchema(owner)}
		},
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
