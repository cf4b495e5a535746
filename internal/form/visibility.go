package form

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Operator compares a form value in a VisibilityRule.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
	OpEmpty    Operator = "empty"
	OpNotEmpty Operator = "not_empty"
)

// VisibilityRule is a declarative visibility condition on another field's
// value. It is the data form of a Predicate and is what catalogs declare.
type VisibilityRule struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
	Values   []any    `json:"values,omitempty"`
}

func (r *VisibilityRule) check() error {
	if r.Field == "" {
		return fmt.Errorf("visibility rule has no field")
	}
	switch r.Operator {
	case OpEq, OpNeq, OpIn, OpNotIn, OpEmpty, OpNotEmpty:
		return nil
	}
	return fmt.Errorf("unknown visibility operator %q", r.Operator)
}

// Holds reports whether the rule is satisfied by values.
func (r *VisibilityRule) Holds(values FormState) bool {
	v := values[r.Field]
	switch r.Operator {
	case OpEq:
		return equalValues(v, r.Value)
	case OpNeq:
		return !equalValues(v, r.Value)
	case OpIn:
		return containsValue(r.Values, v)
	case OpNotIn:
		return !containsValue(r.Values, v)
	case OpEmpty:
		return isEmpty(v)
	case OpNotEmpty:
		return !isEmpty(v)
	}
	return false
}

func containsValue(set []any, v any) bool {
	for _, candidate := range set {
		if equalValues(v, candidate) {
			return true
		}
	}
	return false
}

// equalValues compares numbers by value regardless of their Go type, since
// values arrive from JSON, YAML and CUE decoding with different widths.
func equalValues(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// isEmpty treats nil, the empty string and empty collections as empty. A
// false switch or a zero number is a value.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
