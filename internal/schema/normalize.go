// SPDX-License-Identifier: AGPL-3.0-only

// Package schema normalizes tool parameter schemas for model providers.
// Tool servers emit JSON-Schema documents that use vendor extensions and
// draft keywords the model APIs reject; each provider dialect keeps only
// the subset its API accepts.
package schema

// Dialect selects the schema subset a model provider accepts.
type Dialect int

const (
	// DialectOpenAI passes schemas mostly untouched but pads empty object
	// schemas, which some OpenAI-compatible backends reject.
	DialectOpenAI Dialect = iota
	// DialectGemini strips unsupported keywords and requires an object
	// top level.
	DialectGemini
	// DialectAnthropic behaves like OpenAI minus the padding.
	DialectAnthropic
)

// allowedKeys are the only schema keywords the Gemini function-calling API
// accepts at every nesting level.
var allowedKeys = map[string]bool{
	"type":        true,
	"properties":  true,
	"required":    true,
	"description": true,
	"items":       true,
	"enum":        true,
}

// paddingProperty is injected into empty object schemas for backends that
// reject a tool with no parameters.
const paddingProperty = "random_string"

// Normalize returns a schema acceptable to the given dialect. The input is
// never mutated and the function is idempotent: Normalize(Normalize(s)) is
// deeply equal to Normalize(s). A nil schema yields a minimal empty object
// schema.
func Normalize(schema map[string]interface{}, dialect Dialect) map[string]interface{} {
	switch dialect {
	case DialectGemini:
		return normalizeGemini(schema)
	case DialectOpenAI:
		return padEmptyObject(ensureObject(schema))
	default:
		return ensureObject(schema)
	}
}

func ensureObject(schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		}
	}
	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		out[k] = deepCopy(v)
	}
	if _, ok := out["type"]; !ok {
		if _, hasProps := out["properties"]; hasProps {
			out["type"] = "object"
		}
	}
	return out
}

// padEmptyObject works around providers that refuse an object schema with
// zero properties by adding one inert string property.
func padEmptyObject(schema map[string]interface{}) map[string]interface{} {
	props, ok := schema["properties"].(map[string]interface{})
	if ok && len(props) > 0 {
		return schema
	}
	if schema["type"] != "object" && schema["type"] != nil {
		return schema
	}
	schema["type"] = "object"
	schema["properties"] = map[string]interface{}{
		paddingProperty: map[string]interface{}{
			"type":        "string",
			"description": "Unused placeholder parameter",
		},
	}
	return schema
}

// normalizeGemini sanitizes a schema to the Gemini keyword subset and
// guarantees an object top level, wrapping scalar or array schemas under a
// single "value" property.
func normalizeGemini(schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		}
	}
	cleaned := sanitize(schema)
	if cleaned["type"] == "object" {
		if _, ok := cleaned["properties"]; !ok {
			cleaned["properties"] = map[string]interface{}{}
		}
		return cleaned
	}
	// A non-object top level is not accepted for function parameters;
	// wrap it so callers pass {"value": ...}.
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"value": cleaned,
		},
	}
}

// sanitize recursively filters a schema node to the allowed keyword set.
// The required list is re-filtered against the surviving properties, and a
// node that declares properties without a type is inferred to be an object.
func sanitize(node map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(node))

	for key, value := range node {
		if !allowedKeys[key] {
			continue
		}
		switch key {
		case "properties":
			props, ok := value.(map[string]interface{})
			if !ok {
				continue
			}
			cleanProps := make(map[string]interface{}, len(props))
			for name, sub := range props {
				if subMap, ok := sub.(map[string]interface{}); ok {
					cleanProps[name] = sanitize(subMap)
				}
			}
			out["properties"] = cleanProps
		case "items":
			if items, ok := value.(map[string]interface{}); ok {
				out["items"] = sanitize(items)
			}
		case "required":
			// deferred until properties are known
		default:
			out[key] = deepCopy(value)
		}
	}

	if required, ok := node["required"].([]interface{}); ok {
		props, _ := out["properties"].(map[string]interface{})
		kept := make([]interface{}, 0, len(required))
		for _, entry := range required {
			name, ok := entry.(string)
			if !ok {
				continue
			}
			if _, exists := props[name]; exists {
				kept = append(kept, name)
			}
		}
		if len(kept) > 0 {
			out["required"] = kept
		}
	}

	if _, ok := out["type"]; !ok {
		if _, hasProps := out["properties"]; hasProps {
			out["type"] = "object"
		}
	}
	return out
}

func deepCopy(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, sub := range v {
			out[k] = deepCopy(sub)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, sub := range v {
			out[i] = deepCopy(sub)
		}
		return out
	default:
		return v
	}
}
