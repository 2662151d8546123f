package http

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// paymentRequiredSchema is the structural contract of a 402 challenge, V1 or V2
const paymentRequiredSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["x402Version", "accepts"],
  "properties": {
    "x402Version": {"type": "integer", "enum": [1, 2]},
    "error": {"type": "string"},
    "resource": {"type": "object"},
    "extensions": {"type": "object"},
    "accepts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["scheme", "network"],
        "properties": {
          "scheme": {"type": "string", "minLength": 1},
          "network": {"type": "string", "minLength": 1},
          "asset": {"type": "string"},
          "payTo": {"type": "string"},
          "amount": {"type": "string"},
          "maxAmountRequired": {"type": "string"},
          "maxTimeoutSeconds": {"type": "integer", "minimum": 0},
          "extra": {"type": ["object", "null"]}
        }
      }
    }
  }
}`

var paymentRequiredSchemaLoader = gojsonschema.NewStringLoader(paymentRequiredSchema)

func validatePaymentRequired(document []byte) error {
	result, err := gojsonschema.Validate(paymentRequiredSchemaLoader, gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
	}
	return fmt.Errorf("%s", strings.Join(problems, "; "))
}
