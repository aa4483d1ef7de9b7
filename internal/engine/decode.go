package engine

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"
)

// DuplicateStrictness controls duplicate key handling while decoding.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// Options configures Decode.
type Options struct {
	OnDuplicate DuplicateStrictness
	// MaxDepth limits container nesting; 0 disables the check.
	MaxDepth int
	// IssueSink receives warnings (duplicate keys under DupWarn).
	IssueSink func(SimpleIssue)
}

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
	Key     string // offending key for duplicate_key issues
}

// IssueError is returned when decoding stops on an enforced rule or malformed input.
type IssueError struct {
	SimpleIssue
	Cause error
}

func (e IssueError) Error() string {
	if e.Path == "" || e.Path == "/" {
		return e.Message
	}
	return e.Message + " at " + e.Path
}

func (e IssueError) Unwrap() error { return e.Cause }

// Decode builds a JSON value tree (map[string]any, []any, json.Number, string,
// bool, nil) from data using go-json, enforcing the duplicate key and depth
// options along the way. Trailing content after the first value is rejected.
func Decode(data []byte, opt Options) (any, error) {
	dec := j.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	d := &decoder{dec: dec, opt: opt}
	tok, err := d.token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, d.fail("/", "unexpected end of JSON input", err)
		}
		return nil, err
	}
	v, err := d.value(tok, "", 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, d.fail("/", "unexpected data after top-level value", err)
	}
	return v, nil
}

type decoder struct {
	dec *j.Decoder
	opt Options
}

func (d *decoder) fail(path, msg string, cause error) error {
	if path == "" {
		path = "/"
	}
	return IssueError{SimpleIssue: SimpleIssue{Code: "parse_error", Path: path, Message: msg}, Cause: cause}
}

func (d *decoder) token() (j.Token, error) {
	tok, err := d.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, d.fail("/", err.Error(), err)
	}
	return tok, nil
}

func (d *decoder) value(tok j.Token, path string, depth int) (any, error) {
	switch v := tok.(type) {
	case j.Delim:
		if d.opt.MaxDepth > 0 && depth+1 > d.opt.MaxDepth {
			return nil, IssueError{SimpleIssue: SimpleIssue{Code: "too_deep", Path: orRoot(path), Message: "max depth " + strconv.Itoa(d.opt.MaxDepth) + " exceeded"}}
		}
		switch v {
		case '{':
			return d.object(path, depth+1)
		case '[':
			return d.array(path, depth+1)
		}
		return nil, d.fail(path, "unexpected delimiter "+string(rune(v)), nil)
	case j.Number:
		return v, nil
	case float64:
		return j.Number(strconv.FormatFloat(v, 'g', -1, 64)), nil
	case string, bool, nil:
		return v, nil
	}
	return nil, d.fail(path, "unexpected token", nil)
}

func (d *decoder) object(path string, depth int) (any, error) {
	m := make(map[string]any)
	for {
		tok, err := d.token()
		if err != nil {
			return nil, d.eof(path, err)
		}
		if delim, ok := tok.(j.Delim); ok && delim == '}' {
			return m, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, d.fail(path, "expected object key", nil)
		}
		child := path + "/" + escapePointer(key)
		if _, dup := m[key]; dup {
			issue := SimpleIssue{Code: "duplicate_key", Path: orRoot(path), Message: "key '" + key + "' duplicated", Key: key}
			switch d.opt.OnDuplicate {
			case DupError:
				return nil, IssueError{SimpleIssue: issue}
			case DupWarn:
				if d.opt.IssueSink != nil {
					d.opt.IssueSink(issue)
				}
			}
		}
		vt, err := d.token()
		if err != nil {
			return nil, d.eof(child, err)
		}
		v, err := d.value(vt, child, depth)
		if err != nil {
			return nil, err
		}
		m[key] = v
	}
}

func (d *decoder) array(path string, depth int) (any, error) {
	out := []any{}
	for i := 0; ; i++ {
		tok, err := d.token()
		if err != nil {
			return nil, d.eof(path, err)
		}
		if delim, ok := tok.(j.Delim); ok && delim == ']' {
			return out, nil
		}
		v, err := d.value(tok, path+"/"+strconv.Itoa(i), depth)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (d *decoder) eof(path string, err error) error {
	if errors.Is(err, io.EOF) {
		return d.fail(path, "unexpected end of JSON input", io.ErrUnexpectedEOF)
	}
	return err
}

func orRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// escapePointer escapes a key for use as a JSON Pointer segment.
func escapePointer(s string) string {
	if !strings.ContainsAny(s, "~/") {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}
