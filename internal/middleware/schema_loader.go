package middleware

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	contextutils "ocrtranslate/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v2"
)

// SchemaLoader compiles the component schemas of an OpenAPI document and maps
// documented endpoints to the schema of each response.
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
	paths   map[string]interface{}
}

// NewSchemaLoader creates a new schema loader
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{
		schemas: make(map[string]*gojsonschema.Schema),
		paths:   make(map[string]interface{}),
	}
}

// LoadSchemas parses an OpenAPI YAML document and compiles every component schema
func (sl *SchemaLoader) LoadSchemas(data []byte) error {
	var spec map[string]interface{}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return contextutils.WrapError(err, "failed to parse OpenAPI document as YAML")
	}

	components, ok := asStringMap(spec["components"])
	if !ok {
		return contextutils.ErrorWithContextf("no components section found in OpenAPI document")
	}
	schemas, ok := asStringMap(components["schemas"])
	if !ok {
		return contextutils.ErrorWithContextf("no schemas section found in OpenAPI document")
	}

	jsonCompatibleSchemas := make(map[string]interface{}, len(schemas))
	for name, schemaData := range schemas {
		converted, err := convertToJSONCompatible(schemaData)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to convert schema %s", name)
		}
		jsonCompatibleSchemas[name] = converted
	}

	for name := range jsonCompatibleSchemas {
		// The whole components tree is embedded so $ref between schemas resolves
		completeSchemaDoc := map[string]interface{}{
			"$schema": "http://json-schema.org/draft-07/schema#",
			"components": map[string]interface{}{
				"schemas": jsonCompatibleSchemas,
			},
			"$ref": "#/components/schemas/" + name,
		}

		schemaBytes, err := json.Marshal(completeSchemaDoc)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to marshal schema %s", name)
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to load schema %s", name)
		}
		sl.schemas[name] = schema
	}

	if paths, ok := asStringMap(spec["paths"]); ok {
		sl.paths = paths
	}

	return nil
}

// asStringMap accepts both map shapes yaml.v2 produces
func asStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		return convertInterfaceMapToStringMap(m), true
	default:
		return nil, false
	}
}

// convertInterfaceMapToStringMap converts a map[interface{}]interface{} to map[string]interface{}.
// Unquoted status codes decode as ints and are keyed by their decimal form.
func convertInterfaceMapToStringMap(m map[interface{}]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[fmt.Sprint(k)] = v
	}
	return result
}

// convertToJSONCompatible converts YAML maps to JSON maps and rewrites OpenAPI
// `nullable: true` into a JSON schema union with null.
func convertToJSONCompatible(data interface{}) (interface{}, error) {
	switch v := data.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{})
		hasNullable := false

		for k, val := range v {
			keyStr, ok := k.(string)
			if !ok {
				return nil, contextutils.ErrorWithContextf("key is not a string: %v", k)
			}

			if keyStr == "nullable" {
				if nullable, ok := val.(bool); ok && nullable {
					hasNullable = true
					continue
				}
			}

			convertedVal, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[keyStr] = convertedVal
		}

		if hasNullable {
			if ref, hasRef := result["$ref"].(string); hasRef {
				result["oneOf"] = []interface{}{
					map[string]interface{}{"$ref": ref},
					map[string]interface{}{"enum": []interface{}{nil}},
				}
				delete(result, "$ref")
			} else if typeVal, hasType := result["type"].(string); hasType {
				result["type"] = []interface{}{typeVal, "null"}
			}
		}

		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			convertedVal, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[i] = convertedVal
		}
		return result, nil
	default:
		return data, nil
	}
}

// ValidateData validates data against a schema
func (sl *SchemaLoader) ValidateData(data interface{}, schemaName string) error {
	schema, exists := sl.schemas[schemaName]
	if !exists {
		return contextutils.ErrorWithContextf("schema %s not found", schemaName)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal data")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return contextutils.WrapError(err, "validation error")
	}

	if !result.Valid() {
		validationErrors := make([]string, 0, len(result.Errors()))
		for _, validationErr := range result.Errors() {
			validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", validationErr.Field(), validationErr.Description()))
		}
		return contextutils.ErrorWithContextf("schema validation failed: %s", strings.Join(validationErrors, "; "))
	}

	return nil
}

// operation returns the documented operation for a request path and method
func (sl *SchemaLoader) operation(path, method string) (map[string]interface{}, bool) {
	pathInfo, exists := sl.paths[path]
	if !exists {
		for documented, info := range sl.paths {
			if sl.pathMatchesPattern(path, documented) {
				pathInfo, exists = info, true
				break
			}
		}
	}
	if !exists {
		return nil, false
	}

	pathMap, ok := asStringMap(pathInfo)
	if !ok {
		return nil, false
	}
	return asStringMap(pathMap[strings.ToLower(method)])
}

// IsEndpointDocumented checks if an endpoint is documented in the OpenAPI document
func (sl *SchemaLoader) IsEndpointDocumented(path, method string) bool {
	_, ok := sl.operation(path, method)
	return ok
}

// pathMatchesPattern checks if a request path matches a documented path pattern
func (sl *SchemaLoader) pathMatchesPattern(requestPath, documentedPath string) bool {
	requestSegments := strings.Split(requestPath, "/")
	documentedSegments := strings.Split(documentedPath, "/")

	if len(requestSegments) != len(documentedSegments) {
		return false
	}

	for i, segment := range documentedSegments {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			continue
		}
		if segment != requestSegments[i] {
			return false
		}
	}

	return true
}

// DetermineSchemaFromPath returns the name of the JSON schema documented for the given
// path, method and response status, or "" when the response is not described.
func (sl *SchemaLoader) DetermineSchemaFromPath(path, method string, status int) string {
	op, ok := sl.operation(path, method)
	if !ok {
		return ""
	}

	responses, ok := asStringMap(op["responses"])
	if !ok {
		return ""
	}
	response, ok := asStringMap(responses[strconv.Itoa(status)])
	if !ok {
		return ""
	}
	content, ok := asStringMap(response["content"])
	if !ok {
		return ""
	}
	jsonContent, ok := asStringMap(content["application/json"])
	if !ok {
		return ""
	}
	schema, ok := asStringMap(jsonContent["schema"])
	if !ok {
		return ""
	}

	ref, _ := schema["$ref"].(string)
	if !strings.HasPrefix(ref, "#/components/schemas/") {
		return ""
	}
	return strings.TrimPrefix(ref, "#/components/schemas/")
}
