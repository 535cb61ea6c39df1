// Package manifest loads JSON configuration documents (package.json,
// tsconfig.json, .prettierrc.json) and checks fields inside them.
//
// Paths are sequences of literal keys. Keys are never split or globbed,
// so "@/*", "test:unit" and "*.{ts,tsx}" address exactly those keys.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseError reports a document that exists but is not valid JSON.
type ParseError struct {
	Path string // relative to the project root
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Document is a parsed JSON document.
type Document struct {
	Path string // relative to the project root
	Root any
}

// Load reads and parses root/path. A missing file is returned as an
// os.ErrNotExist error; malformed JSON as *ParseError.
func Load(root, path string) (*Document, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes data as a single JSON value. Numbers decode as float64.
func Parse(path string, data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if dec.More() {
		return nil, &ParseError{Path: path, Err: errors.New("unexpected data after top-level value")}
	}
	return &Document{Path: path, Root: v}, nil
}

// Lookup walks path from the document root. Array elements are addressed
// by decimal index.
func (d *Document) Lookup(path []string) (any, bool) {
	cur := d.Root
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// FormatPath renders a path for messages, e.g. compilerOptions.paths["@/*"].
func FormatPath(path []string) string {
	var b strings.Builder
	for i, key := range path {
		if isIdent(key) {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(key)
			continue
		}
		fmt.Fprintf(&b, "[%q]", key)
	}
	return b.String()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
