package itinerary

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func contractSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Schema returns the embedded itinerary.v1 JSON schema.
func Schema() []byte {
	return schemaJSON
}

// Parse decodes a raw itinerary.v1 document and applies the full contract:
// schema check, Validate, then Degrade.
func Parse(raw []byte) (*Itinerary, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode itinerary: %w", err)
	}
	return FromMap(doc)
}

// FromMap is Parse for an already decoded document.
func FromMap(doc map[string]any) (*Itinerary, error) {
	s, err := contractSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load itinerary schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to check itinerary schema: %w", err)
	}
	if !result.Valid() {
		errs := make([]error, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			errs = append(errs, &ValidationError{
				Key:    re.Field(),
				Reason: re.Description(),
				Value:  re.Value(),
			})
		}
		return nil, &AggregateError{Errors: errs}
	}

	var it Itinerary
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &it,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create itinerary decoder: %w", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to map itinerary: %w", err)
	}

	it.SortDays()
	it.Normalize()
	if err := Validate(&it); err != nil {
		return nil, err
	}
	Degrade(&it)
	return &it, nil
}
