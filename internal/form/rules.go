package form

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// RuleKind names a validation constraint.
type RuleKind string

const (
	RuleRequired  RuleKind = "required"
	RulePattern   RuleKind = "pattern"
	RuleMin       RuleKind = "min"
	RuleMax       RuleKind = "max"
	RuleMinLength RuleKind = "minLength"
	RuleMaxLength RuleKind = "maxLength"
	RuleMinItems  RuleKind = "minItems"
	RuleMaxItems  RuleKind = "maxItems"
)

// Rule is one validation constraint on a field value.
type Rule struct {
	Kind    RuleKind `json:"kind"`
	Pattern string   `json:"pattern,omitempty"`
	Limit   float64  `json:"limit,omitempty"`
	Message string   `json:"message,omitempty"`
}

func Required(msg string) Rule { return Rule{Kind: RuleRequired, Message: msg} }
func Pattern(p, msg string) Rule { return Rule{Kind: RulePattern, Pattern: p, Message: msg} }
func Min(n float64, msg string) Rule { return Rule{Kind: RuleMin, Limit: n, Message: msg} }
func Max(n float64, msg string) Rule { return Rule{Kind: RuleMax, Limit: n, Message: msg} }
func MinLength(n int, msg string) Rule { return Rule{Kind: RuleMinLength, Limit: float64(n), Message: msg} }
func MaxLength(n int, msg string) Rule { return Rule{Kind: RuleMaxLength, Limit: float64(n), Message: msg} }
func MinItems(n int, msg string) Rule { return Rule{Kind: RuleMinItems, Limit: float64(n), Message: msg} }
func MaxItems(n int, msg string) Rule { return Rule{Kind: RuleMaxItems, Limit: float64(n), Message: msg} }

var patterns sync.Map

func compilePattern(p string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(p); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}
	patterns.Store(p, re)
	return re, nil
}

func (r Rule) check() error {
	switch r.Kind {
	case RuleRequired, RuleMin, RuleMax, RuleMinLength, RuleMaxLength, RuleMinItems, RuleMaxItems:
		return nil
	case RulePattern:
		if _, err := compilePattern(r.Pattern); err != nil {
			return fmt.Errorf("bad pattern %q: %w", r.Pattern, err)
		}
		return nil
	}
	return fmt.Errorf("unknown rule %q", r.Kind)
}

// ValidationError is a rule failure on one field.
type ValidationError struct {
	Field   string   `json:"field"`
	Rule    RuleKind `json:"rule"`
	Message string   `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every rule failure of a submit.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ByField returns the first message per field.
func (es ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(es))
	for _, e := range es {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

// failure returns a failure message or "" if v passes. Empty values only
// fail the required rule, except that an empty list still counts its items.
func (r Rule) failure(v any, label string, requiredMsg string) string {
	if r.Kind == RuleRequired {
		if isEmpty(v) {
			return r.messageOr(requiredMsg)
		}
		return ""
	}
	if isEmpty(v) && !(r.Kind == RuleMinItems && v != nil) {
		return ""
	}

	switch r.Kind {
	case RulePattern:
		re, err := compilePattern(r.Pattern)
		if err != nil || !re.MatchString(fmt.Sprint(v)) {
			return r.messageOr(fmt.Sprintf("%s has an invalid format", label))
		}
	case RuleMin:
		if n, ok := asFloat(v); ok && n < r.Limit {
			return r.messageOr(fmt.Sprintf("%s must be at least %v", label, r.Limit))
		}
	case RuleMax:
		if n, ok := asFloat(v); ok && n > r.Limit {
			return r.messageOr(fmt.Sprintf("%s must be at most %v", label, r.Limit))
		}
	case RuleMinLength:
		if s, ok := v.(string); ok && float64(utf8.RuneCountInString(s)) < r.Limit {
			return r.messageOr(fmt.Sprintf("%s must be at least %v characters", label, r.Limit))
		}
	case RuleMaxLength:
		if s, ok := v.(string); ok && float64(utf8.RuneCountInString(s)) > r.Limit {
			return r.messageOr(fmt.Sprintf("%s must be at most %v characters", label, r.Limit))
		}
	case RuleMinItems:
		if n, ok := itemCount(v); ok && float64(n) < r.Limit {
			return r.messageOr(fmt.Sprintf("%s needs at least %v items", label, r.Limit))
		}
	case RuleMaxItems:
		if n, ok := itemCount(v); ok && float64(n) > r.Limit {
			return r.messageOr(fmt.Sprintf("%s allows at most %v items", label, r.Limit))
		}
	}
	return ""
}

func (r Rule) messageOr(def string) string {
	if r.Message != "" {
		return r.Message
	}
	return def
}

func itemCount(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}
