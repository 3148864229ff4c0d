package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// generateSchema reflects a parameter struct's json/jsonschema tags into
// the map[string]interface{} shape tool.Tool.Schema() returns, so each
// builtin tool's schema is derived from its parameter type rather than
// hand-duplicated as a literal.
//
// Supported tags (same convention as encoding/json plus jsonschema's
// extensions):
//   - json:"name"                      - parameter name
//   - json:",omitempty"                - optional parameter
//   - jsonschema:"required"            - explicitly mark as required
//   - jsonschema:"description=..."     - parameter description
func generateSchema[T any]() map[string]interface{} {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("builtin: reflect schema for %T: %v", *new(T), err))
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		panic(fmt.Sprintf("builtin: decode schema for %T: %v", *new(T), err))
	}

	delete(raw, "$schema")
	delete(raw, "$id")

	if raw["type"] != "object" {
		return raw
	}
	result := map[string]interface{}{
		"type":       "object",
		"properties": raw["properties"],
	}
	if required, ok := raw["required"]; ok {
		result["required"] = required
	}
	if addProps, ok := raw["additionalProperties"]; ok {
		result["additionalProperties"] = addProps
	}
	return result
}
