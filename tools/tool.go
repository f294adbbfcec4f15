package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/petasbytes/shop-agent/internal/jsonutil"
)

// Tool is one capability the model may invoke by name.
type Tool interface {
	Declaration() Declaration
	// Invoke runs the tool. Domain failures are part of the returned value;
	// a non-nil error means the call itself could not be carried out.
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// Declaration is the model-facing description of a tool.
type Declaration struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Schema describes a flat JSON object of primitive-typed properties.
type Schema struct {
	Properties []Property
	Required   []string
}

type Property struct {
	Name        string
	Type        string // string, integer, number, boolean, array, object
	Description string
}

// Property returns the named property, if declared.
func (s Schema) Property(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// JSON renders s as a JSON Schema object. Properties keep declaration order
// when encoded.
func (s Schema) JSON() map[string]any {
	props := orderedmap.New[string, any]()
	for _, p := range s.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props.Set(p.Name, prop)
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// MarshalJSON encodes the schema in JSON Schema form.
func (s Schema) MarshalJSON() ([]byte, error) {
	return jsonutil.Marshal(s.JSON())
}

// GenerateSchema derives a Schema from the exported, json-tagged fields of T.
// Fields without omitempty are required; descriptions come from the
// jsonschema_description tag.
func GenerateSchema[T any]() Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	js := reflector.Reflect(v)

	out := Schema{Required: js.Required}
	if js.Properties == nil {
		return out
	}
	for pair := js.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out.Properties = append(out.Properties, Property{
			Name:        pair.Key,
			Type:        pair.Value.Type,
			Description: pair.Value.Description,
		})
	}
	return out
}
