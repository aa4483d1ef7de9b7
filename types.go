package stix

// Spec versions with built-in catalogs.
const (
	Version20 = "2.0"
	Version21 = "2.1"
)

// Severity expresses the severity level for decoding issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// Strictness configures enforcement applied while decoding JSON text.
type Strictness struct {
	OnDuplicateKey Severity // Ignore, Warn (logged) or Error (ParseError).
}

// ParseOpt bundles parsing options. When several are passed the last one wins.
type ParseOpt struct {
	// Version selects the catalog; empty means detect from the input.
	Version string
	// AllowCustom accepts unknown properties and wraps unknown types as
	// generic records. It is threaded into nested polymorphic properties.
	AllowCustom bool
	Strictness  Strictness
	// MaxDepth limits JSON nesting; 0 disables the check.
	MaxDepth int
	// MaxBytes caps the input read by ParseReader; 0 disables the check.
	MaxBytes int64
	// Registry overrides the process-wide registry.
	Registry *Registry
}

// ConstructOpt configures Kind.Construct. When several are passed the last one wins.
type ConstructOpt struct {
	// AllowCustom suppresses the extra-properties check for this record and
	// for records built by its polymorphic properties.
	AllowCustom bool
}

// EncodeOpt configures serialization.
type EncodeOpt struct {
	// IncludeOptionalDefaults also emits optional properties whose value came
	// from a default (for example revoked=false).
	IncludeOptionalDefaults bool
	// Indent pretty-prints with the given indent string.
	Indent string
}

func lastParseOpt(opts []ParseOpt) ParseOpt {
	if len(opts) == 0 {
		return ParseOpt{}
	}
	return opts[len(opts)-1]
}

func lastConstructOpt(opts []ConstructOpt) ConstructOpt {
	if len(opts) == 0 {
		return ConstructOpt{}
	}
	return opts[len(opts)-1]
}

func lastEncodeOpt(opts []EncodeOpt) EncodeOpt {
	if len(opts) == 0 {
		return EncodeOpt{}
	}
	return opts[len(opts)-1]
}
