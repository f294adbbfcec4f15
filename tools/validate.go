package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ValidateArguments checks raw call arguments against a declaration: the
// payload must be a JSON object, every required property present and non-null,
// and every declared property that is present must have the declared type.
// Undeclared properties are ignored. Empty arguments count as {}.
func ValidateArguments(decl Declaration, args json.RawMessage) error {
	raw := strings.TrimSpace(string(args))
	if raw == "" {
		raw = "{}"
	}
	if !gjson.Valid(raw) {
		return &ValidationError{Tool: decl.Name, Reason: "arguments are not valid JSON"}
	}
	obj := gjson.Parse(raw)
	if !obj.IsObject() {
		return &ValidationError{Tool: decl.Name, Reason: "arguments must be a JSON object"}
	}

	fields := make(map[string]gjson.Result)
	obj.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value
		return true
	})

	for _, name := range decl.Parameters.Required {
		v, ok := fields[name]
		if !ok || v.Type == gjson.Null {
			return &ValidationError{Tool: decl.Name, Field: name, Reason: "required field is missing"}
		}
	}
	for _, p := range decl.Parameters.Properties {
		v, ok := fields[p.Name]
		if !ok || v.Type == gjson.Null {
			continue
		}
		if !typeMatches(p.Type, v) {
			return &ValidationError{Tool: decl.Name, Field: p.Name, Reason: fmt.Sprintf("expected %s, got %s", p.Type, describe(v))}
		}
	}
	return nil
}

func typeMatches(want string, v gjson.Result) bool {
	switch want {
	case "string":
		return v.Type == gjson.String
	case "integer":
		_, ok := integral(v)
		return ok
	case "number":
		return v.Type == gjson.Number
	case "boolean":
		return v.Type == gjson.True || v.Type == gjson.False
	case "array":
		return v.IsArray()
	case "object":
		return v.IsObject()
	default:
		return true
	}
}

// maxExactInteger bounds integers written in float notation; beyond it a
// float64 no longer holds every integer.
const maxExactInteger = 1 << 53

// integral reports whether v is a JSON number with an integer value. Float
// notation such as 2.0 or 2e0 counts when the value is whole.
func integral(v gjson.Result) (int64, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	if !strings.ContainsAny(v.Raw, ".eE") {
		return v.Int(), true
	}
	f := v.Float()
	if f != math.Trunc(f) || math.Abs(f) > maxExactInteger {
		return 0, false
	}
	return int64(f), true
}

// normalizeIntegers rewrites integer properties given in float notation as
// integer literals so they decode into Go ints. Anything else is returned
// unchanged for Bind to judge.
func normalizeIntegers(s Schema, args json.RawMessage) json.RawMessage {
	raw := string(args)
	if !gjson.Valid(raw) {
		return args
	}
	for _, p := range s.Properties {
		if p.Type != "integer" {
			continue
		}
		v := gjson.Get(raw, p.Name)
		if !v.Exists() || !strings.ContainsAny(v.Raw, ".eE") {
			continue
		}
		n, ok := integral(v)
		if !ok {
			continue
		}
		if out, err := sjson.SetRaw(raw, p.Name, strconv.FormatInt(n, 10)); err == nil {
			raw = out
		}
	}
	return json.RawMessage(raw)
}

func describe(v gjson.Result) string {
	switch {
	case v.IsArray():
		return "array"
	case v.IsObject():
		return "object"
	case v.Type == gjson.Number:
		return "number"
	case v.Type == gjson.String:
		return "string"
	case v.Type == gjson.True, v.Type == gjson.False:
		return "boolean"
	}
	return v.Type.String()
}
