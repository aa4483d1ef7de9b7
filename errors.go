package stix

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes (exported consts for IDE completion and stable matching).
const (
	CodeMissingProperties      = "missing_properties"
	CodeExtraProperties        = "extra_properties"
	CodeInvalidValue           = "invalid_value"
	CodeImmutable              = "immutable"
	CodeUnknownType            = "unknown_type"
	CodeParseError             = "parse_error"
	CodeKeyNotFound            = "key_not_found"
	CodeDuplicateRegistration  = "duplicate_registration"
	CodeUnmodifiableProperties = "unmodifiable_properties"
	CodeRevoked                = "revoked"
	CodeTypeNotVersionable     = "type_not_versionable"
)

// Sentinels matched through errors.Is by KeyNotFoundError.
var (
	ErrEmptyBundle    = errors.New("stix: bundle has no objects")
	ErrObjectNotFound = errors.New("stix: no bundle object matches id")
)

// MissingPropertiesError reports required properties absent at construction.
type MissingPropertiesError struct {
	Type       string // record type display name, e.g. "Indicator"
	Properties []string
}

func (e *MissingPropertiesError) Error() string {
	return fmt.Sprintf("No values for required properties for %s: (%s).", e.Type, strings.Join(e.Properties, ", "))
}

func (e *MissingPropertiesError) Code() string { return CodeMissingProperties }

// ExtraPropertiesError reports properties outside the property set in strict mode.
type ExtraPropertiesError struct {
	Type       string
	Properties []string
}

func (e *ExtraPropertiesError) Error() string {
	return fmt.Sprintf("Unexpected properties for %s: (%s).", e.Type, strings.Join(e.Properties, ", "))
}

func (e *ExtraPropertiesError) Code() string { return CodeExtraProperties }

// InvalidValueError reports a property value rejected by its validator.
// Reason carries the validator's message verbatim.
type InvalidValueError struct {
	Type     string
	Property string
	Reason   string
	Cause    error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("Invalid value for %s '%s': %s", e.Type, e.Property, e.Reason)
}

func (e *InvalidValueError) Code() string  { return CodeInvalidValue }
func (e *InvalidValueError) Unwrap() error { return e.Cause }

// ImmutableError reports an attempt to assign to a constructed record.
type ImmutableError struct {
	Type     string
	Property string
}

func (e *ImmutableError) Error() string {
	return fmt.Sprintf("Cannot modify '%s' property in '%s' after creation.", e.Property, e.Type)
}

func (e *ImmutableError) Code() string { return CodeImmutable }

// UnknownTypeError reports a discriminator with no registered kind.
type UnknownTypeError struct {
	Type    string
	Version string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("Can't parse unknown object type '%s' for STIX %s! For custom types, use allow_custom mode or register the type.", e.Type, e.Version)
}

func (e *UnknownTypeError) Code() string { return CodeUnknownType }

// ParseError reports input that is not JSON or cannot be treated as a record.
type ParseError struct {
	Reason string
	Path   string // JSON Pointer when known
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Path != "" && e.Path != "/" {
		return fmt.Sprintf("Invalid JSON input at %s: %s", e.Path, e.Reason)
	}
	return "Invalid JSON input: " + e.Reason
}

func (e *ParseError) Code() string  { return CodeParseError }
func (e *ParseError) Unwrap() error { return e.Cause }

// KeyNotFoundError reports a failed container lookup. Empty distinguishes a
// container without members from one whose members did not match.
type KeyNotFoundError struct {
	ID    string
	Empty bool
}

func (e *KeyNotFoundError) Error() string {
	if e.Empty {
		return "There are no objects in this empty bundle"
	}
	return fmt.Sprintf("'%s' does not match the id property of any of the bundle's objects", e.ID)
}

func (e *KeyNotFoundError) Code() string { return CodeKeyNotFound }

func (e *KeyNotFoundError) Is(target error) bool {
	switch target {
	case ErrEmptyBundle:
		return e.Empty
	case ErrObjectNotFound:
		return !e.Empty
	}
	return false
}

// DuplicateRegistrationError reports a second kind for an existing (version, type) key.
type DuplicateRegistrationError struct {
	Type    string
	Version string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("object type '%s' is already registered for STIX %s", e.Type, e.Version)
}

func (e *DuplicateRegistrationError) Code() string { return CodeDuplicateRegistration }

// UnmodifiablePropertiesError reports changes to identity properties in NewVersion.
type UnmodifiablePropertiesError struct {
	Properties []string
}

func (e *UnmodifiablePropertiesError) Error() string {
	return fmt.Sprintf("These properties cannot be changed when making a new version: %s.", strings.Join(e.Properties, ", "))
}

func (e *UnmodifiablePropertiesError) Code() string { return CodeUnmodifiableProperties }

// RevokedError reports a versioning operation on a revoked record.
type RevokedError struct {
	Op string
}

func (e *RevokedError) Error() string {
	return fmt.Sprintf("Cannot %s an object that has been revoked.", e.Op)
}

func (e *RevokedError) Code() string { return CodeRevoked }

// TypeNotVersionableError reports NewVersion on a kind lacking created/modified.
type TypeNotVersionableError struct {
	Type string
}

func (e *TypeNotVersionableError) Error() string {
	return fmt.Sprintf("Object type '%s' is not versionable.", e.Type)
}

func (e *TypeNotVersionableError) Code() string { return CodeTypeNotVersionable }

type coder interface{ Code() string }

// ErrorCode returns the code of the outermost STIX error in err's chain, or
// "" when there is none.
func ErrorCode(err error) string {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// reasonError is a validator failure before it is attributed to a record type
// and property.
type reasonError struct {
	reason string
	cause  error
}

func (e *reasonError) Error() string { return e.reason }
func (e *reasonError) Unwrap() error { return e.cause }

// Reasonf builds a validator failure. Construction attributes it to the record
// type and property as an InvalidValueError with the formatted text as reason.
func Reasonf(format string, args ...any) error {
	return &reasonError{reason: fmt.Sprintf(format, args...)}
}

// InvalidProperty is returned by kind constraints to blame a specific property.
func InvalidProperty(property, format string, args ...any) error {
	return &InvalidValueError{Property: property, Reason: fmt.Sprintf(format, args...)}
}

// attribute converts a validator or constraint failure into an InvalidValueError
// for typeName, keeping the original as Cause.
func attribute(typeName, property string, err error) error {
	var iv *InvalidValueError
	if errors.As(err, &iv) && iv.Type == "" {
		p := iv.Property
		if p == "" {
			p = property
		}
		return &InvalidValueError{Type: typeName, Property: p, Reason: iv.Reason, Cause: iv.Cause}
	}
	if re, ok := err.(*reasonError); ok {
		return &InvalidValueError{Type: typeName, Property: property, Reason: re.reason, Cause: re.cause}
	}
	return &InvalidValueError{Type: typeName, Property: property, Reason: err.Error(), Cause: err}
}
