// Package strategy exposes the JSON schemas of the built-in strategy configurations.
package strategy

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-sizing/internal/strategy"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
)

// ToJSONSchema converts a struct to a JSON schema
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}

// ConfigSchema returns the JSON schema of the settings of the strategy id.
func ConfigSchema(id string) (string, error) {
	switch strategy.ID(id) {
	case strategy.IDPile:
		return ToJSONSchema(strategy.DefaultPileConfig())
	case strategy.IDMca:
		return ToJSONSchema(strategy.DefaultMcaConfig())
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedStrategy, "strategy %s not found", id)
	}
}
