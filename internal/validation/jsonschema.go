package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/txlens/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchemaJSON is the JSON Schema for incoming transaction documents:
// the flat operation list plus optional diagnostic trace lines.
// Embedded as a constant to avoid filesystem dependencies.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://txlens.dev/schemas/document.json",
  "type": "object",
  "required": ["operations"],
  "properties": {
    "tx_hash": { "type": "string" },
    "operations": {
      "type": "array",
      "items": { "$ref": "#/$defs/operation" }
    },
    "trace": {
      "type": "array",
      "items": { "type": "string" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "operation": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": {
          "type": "string",
          "minLength": 1
        },
        "type": {
          "type": "string",
          "minLength": 1
        },
        "position": { "$ref": "#/$defs/position" },
        "source_account": { "type": "string" },
        "from": { "type": "string" },
        "to": { "type": "string" },
        "destination": { "type": "string" },
        "account": { "type": "string" },
        "assets": {
          "type": "array",
          "items": { "$ref": "#/$defs/asset" }
        },
        "raw": {}
      },
      "additionalProperties": false
    },
    "position": {
      "type": "object",
      "properties": {
        "x": { "type": "number" },
        "y": { "type": "number" }
      },
      "additionalProperties": false
    },
    "asset": {
      "type": "object",
      "required": ["code"],
      "properties": {
        "code": { "type": "string", "minLength": 1 },
        "issuer": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// Document is a validated transaction document.
type Document struct {
	TxHash     string             `json:"tx_hash,omitempty"`
	Operations []schema.Operation `json:"operations"`
	Trace      []string           `json:"trace,omitempty"`
}

// DocumentValidator validates incoming transaction documents against the
// embedded JSON Schema (Draft 2020-12). Safe for concurrent use.
type DocumentValidator struct {
	compiled *jsonschema.Schema
}

// NewDocumentValidator compiles the embedded document schema.
func NewDocumentValidator() (*DocumentValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal document schema: %w", err)
	}
	if err := c.AddResource("https://txlens.dev/schemas/document.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add document schema resource: %w", err)
	}

	compiled, err := c.Compile("https://txlens.dev/schemas/document.json")
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}

	return &DocumentValidator{compiled: compiled}, nil
}

// Validate checks raw JSON against the document schema and decodes it.
// Structural checks JSON Schema cannot express (duplicate operation IDs)
// run after schema validation.
func (v *DocumentValidator) Validate(data []byte) (*Document, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "document is not valid JSON").WithCause(err)
	}

	if err := v.compiled.Validate(doc); err != nil {
		return nil, toTxlensError(err)
	}

	var parsed Document
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "failed to decode document").WithCause(err)
	}

	seen := make(map[string]struct{}, len(parsed.Operations))
	for _, op := range parsed.Operations {
		if _, exists := seen[op.ID]; exists {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "duplicate operation id %q", op.ID)
		}
		seen[op.ID] = struct{}{}
	}

	return &parsed, nil
}

// toTxlensError converts a jsonschema.ValidationError into a TxlensError
// with per-field violation messages.
func toTxlensError(err error) *schema.TxlensError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
