package verify

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// intentSchema is the minimal shape a payment-intent object must satisfy
// before the pipeline will look at it. Anything stricter belongs to the
// provider; this only guards against obviously broken payloads.
const intentSchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"amount": {"type": "integer", "minimum": 0},
		"currency": {"type": "string"},
		"metadata": {"type": "object"}
	}
}`

var intentSchemaLoader = gojsonschema.NewStringLoader(intentSchema)

func validateIntentPayload(raw []byte) error {
	result, err := gojsonschema.Validate(intentSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid payment intent payload: %s", errs[0].String())
		}
		return fmt.Errorf("invalid payment intent payload")
	}
	return nil
}
