package manifest

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// JSON type names accepted by Field.Type.
const (
	TypeString = "string"
	TypeNumber = "number"
	TypeBool   = "bool"
	TypeArray  = "array"
	TypeObject = "object"
	TypeNull   = "null"
)

// Field is one expectation about a document value. The path must always
// be present; a field with no other constraint checks only that. A JSON
// null is asserted with Type "null", since a nil Equals means unset.
type Field struct {
	Path     []string
	AnyOf    [][]string // used when Path is empty: at least one must be present
	Equals   any        // nil leaves the value unconstrained
	Contains any        // substring of a string, or element of an array
	Type     string
}

// String describes the field for reports.
func (f Field) String() string {
	if len(f.Path) == 0 {
		alts := make([]string, len(f.AnyOf))
		for i, p := range f.AnyOf {
			alts[i] = FormatPath(p)
		}
		return "one of " + strings.Join(alts, ", ")
	}
	return FormatPath(f.Path)
}

// Check returns the first field of fields that does not hold, or nil.
func Check(doc *Document, fields []Field) error {
	for _, f := range fields {
		if err := f.Check(doc); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies f against doc. Equality is strict: true does not equal
// "true" and 90 does not equal "90".
func (f Field) Check(doc *Document) error {
	if len(f.Path) == 0 {
		for _, p := range f.AnyOf {
			if _, ok := doc.Lookup(p); ok {
				return nil
			}
		}
		return fmt.Errorf("%s: expected %s to be present", doc.Path, f)
	}

	v, ok := doc.Lookup(f.Path)
	if !ok {
		return fmt.Errorf("%s: expected %s to be present", doc.Path, f)
	}
	if f.Type != "" && TypeOf(v) != f.Type {
		return fmt.Errorf("%s: expected %s to be a %s, got %s", doc.Path, f, f.Type, describe(v))
	}
	if f.Equals != nil {
		want := Normalize(f.Equals)
		if !reflect.DeepEqual(want, v) {
			return fmt.Errorf("%s: expected %s to equal %s, got %s", doc.Path, f, describe(want), describe(v))
		}
	}
	if f.Contains != nil {
		if err := contains(v, Normalize(f.Contains)); err != nil {
			return fmt.Errorf("%s: %s %w", doc.Path, f, err)
		}
	}
	return nil
}

func contains(v, want any) error {
	switch got := v.(type) {
	case string:
		s, ok := want.(string)
		if !ok {
			return fmt.Errorf("is a string, cannot contain %s", describe(want))
		}
		if !strings.Contains(got, s) {
			return fmt.Errorf("does not contain %q, got %q", s, got)
		}
		return nil
	case []any:
		for _, el := range got {
			if reflect.DeepEqual(el, want) {
				return nil
			}
		}
		return fmt.Errorf("has no element %s, got %s", describe(want), describe(v))
	default:
		return fmt.Errorf("is a %s, cannot contain %s", TypeOf(v), describe(want))
	}
}

// TypeOf returns the JSON type name of a decoded value.
func TypeOf(v any) string {
	switch v.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case float64:
		return TypeNumber
	case bool:
		return TypeBool
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Normalize converts values decoded from YAML or TOML config into the
// shapes encoding/json produces, so they compare with reflect.DeepEqual.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = Normalize(el)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, el := range x {
			out[k] = Normalize(el)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, el := range x {
			out[fmt.Sprint(k)] = Normalize(el)
		}
		return out
	default:
		return v
	}
}

func describe(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v (%s)", v, TypeOf(v))
	}
	return fmt.Sprintf("%s (%s)", data, TypeOf(v))
}
