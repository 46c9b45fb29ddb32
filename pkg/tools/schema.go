package tools

import "github.com/invopop/jsonschema"

// GenerateSchema generates the JSON schema for a tool's input parameters.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
