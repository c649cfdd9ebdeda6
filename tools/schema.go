package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a JSON Schema for a tool's argument struct, returned in
// the map form protocol.Tool.Parameters expects. Struct fields drive the
// schema: json tags name properties, jsonschema tags add descriptions and
// required markers.
func SchemaFor(v any) map[string]any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}

	schema := reflector.Reflect(v)
	schema.Version = ""

	data, err := schema.MarshalJSON()
	if err != nil {
		return map[string]any{"type": "object"}
	}

	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(params, "$schema")
	return params
}
