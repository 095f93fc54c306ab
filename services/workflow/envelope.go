package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// EnvelopeSchema is the JSON schema of the {nodes: [...]} envelope.
const EnvelopeSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["nodes"],
	"properties": {
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "tool", "function"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"tool": {"type": "string", "minLength": 1},
					"function": {"type": "string", "minLength": 1},
					"params": {
						"type": ["object", "null"],
						"additionalProperties": {"type": ["string", "number", "boolean", "null"]}
					},
					"next": {"type": ["string", "null"]}
				}
			}
		}
	}
}`

var envelopeSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(EnvelopeSchema))
})

// EncodeEnvelope serialises nodes into the {nodes: [...]} envelope.
func EncodeEnvelope(nodes []Node) (json.RawMessage, error) {
	if nodes == nil {
		nodes = []Node{}
	}
	data, err := json.Marshal(Envelope{Nodes: nodes})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope reads a stored envelope. An empty blob or JSON null is an empty list.
// Only the JSON shape is checked; use ParseEnvelope for untrusted input.
func DecodeEnvelope(data []byte) ([]Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return env.Nodes, nil
}

// ParseEnvelope decodes untrusted input: the document must match EnvelopeSchema and
// the resulting list must pass Validate.
func ParseEnvelope(data []byte) ([]Node, error) {
	if err := CheckSchema(data); err != nil {
		return nil, err
	}

	nodes, err := DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// CheckSchema validates a raw document against EnvelopeSchema.
func CheckSchema(data []byte) error {
	schema, err := envelopeSchema()
	if err != nil {
		return fmt.Errorf("load envelope schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidEnvelope, strings.Join(errs, "; "))
	}
	return nil
}
