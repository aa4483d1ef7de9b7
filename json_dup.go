package stix

import (
	eng "github.com/reoring/stix/internal/engine"
)

// DuplicateKey is one repeated key found in JSON text.
type DuplicateKey struct {
	Path string // JSON Pointer of the object holding the key
	Key  string
}

// DetectDuplicateKeys scans JSON text and reports every repeated object key.
// Malformed input yields a ParseError.
func DetectDuplicateKeys(data []byte) ([]DuplicateKey, error) {
	var out []DuplicateKey
	_, err := eng.Decode(data, eng.Options{
		OnDuplicate: eng.DupWarn,
		IssueSink: func(is eng.SimpleIssue) {
			out = append(out, DuplicateKey{Path: is.Path, Key: is.Key})
		},
	})
	if err != nil {
		return nil, toParseError(err)
	}
	return out, nil
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Error:
		return eng.DupError
	case Warn:
		return eng.DupWarn
	default:
		return eng.DupIgnore
	}
}
