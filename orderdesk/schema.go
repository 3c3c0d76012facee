package orderdesk

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// itemsSchema describes the order-data field sent by kiosks
const itemsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["product", "price"],
    "properties": {
      "product": {"type": "string", "minLength": 1},
      "price": {"type": "number", "exclusiveMinimum": 0}
    }
  }
}`

var itemsSchemaLoader = gojsonschema.NewStringLoader(itemsSchema)

// ValidationError lists every schema violation of an order
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order data: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidOrder
}

// ParseItems validates order-data against the schema and decodes it
func ParseItems(orderData string) ([]Item, error) {
	result, err := gojsonschema.Validate(itemsSchemaLoader, gojsonschema.NewStringLoader(orderData))
	if err != nil {
		return nil, &ValidationError{Errors: []string{fmt.Sprintf("schema validation failed: %v", err)}}
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
		}
		return nil, &ValidationError{Errors: errs}
	}

	var items []Item
	if err := json.Unmarshal([]byte(orderData), &items); err != nil {
		return nil, &ValidationError{Errors: []string{err.Error()}}
	}
	return items, nil
}
