package strategy

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
)

// Config selects a strategy variant and carries its tuning constants.
type Config struct {
	Type ID                         `yaml:"type" json:"type" jsonschema:"title=Strategy Type,description=Strategy variant to run" validate:"required"`
	Pile optional.Option[PileConfig] `yaml:"pile" json:"pile" jsonschema:"title=Pile,description=Power law strategy settings"`
	Mca  optional.Option[McaConfig]  `yaml:"mca" json:"mca" jsonschema:"title=MCA,description=Cost averaging strategy settings"`
}

// DefaultPileConfig returns the pile settings used when none are configured.
func DefaultPileConfig() PileConfig {
	return PileConfig{Ratio: 0.5, Accum: 0}
}

// DefaultMcaConfig returns the cost averaging settings used when none are configured.
func DefaultMcaConfig() McaConfig {
	return McaConfig{
		BuyStrength:   0.5,
		SellStrength:  0.5,
		InitBet:       10,
		MinAboveEnter: 1,
		UseSentiment:  true,
	}
}

// UnmarshalYAML implements custom unmarshaling for Config.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type config struct {
		Type ID          `yaml:"type"`
		Pile *PileConfig `yaml:"pile"`
		Mca  *McaConfig  `yaml:"mca"`
	}

	var raw config
	if err := unmarshal(&raw); err != nil {
		return err
	}

	c.Type = raw.Type
	c.Pile = optional.None[PileConfig]()
	c.Mca = optional.None[McaConfig]()

	if raw.Pile != nil {
		c.Pile = optional.Some(*raw.Pile)
	}

	if raw.Mca != nil {
		c.Mca = optional.Some(*raw.Mca)
	}

	return nil
}

// PileOrDefault returns the configured pile settings or the defaults.
func (c Config) PileOrDefault() PileConfig {
	if c.Pile.IsSome() {
		return c.Pile.Unwrap()
	}

	return DefaultPileConfig()
}

// McaOrDefault returns the configured cost averaging settings or the defaults.
func (c Config) McaOrDefault() McaConfig {
	if c.Mca.IsSome() {
		return c.Mca.Unwrap()
	}

	return DefaultMcaConfig()
}

// Validate checks the settings of the selected built-in variant.
// Unknown variants are rejected by the Registry.
func (c Config) Validate() error {
	validate := validator.New()

	switch c.Type {
	case IDPile:
		cfg := c.PileOrDefault()
		if err := validate.Struct(&cfg); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid pile config", err)
		}
	case IDMca:
		cfg := c.McaOrDefault()
		if err := validate.Struct(&cfg); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid mca config", err)
		}
	case "":
		return errors.New(errors.ErrCodeMissingParameter, "strategy type is required")
	}

	return nil
}

// GenerateSchema generates a JSON schema for Config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{ //nolint:exhaustruct
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch {
			case strings.Contains(t.String(), "optional.Option[") && strings.Contains(t.String(), "PileConfig"):
				return optionSchema(&PileConfig{}) //nolint:exhaustruct
			case strings.Contains(t.String(), "optional.Option[") && strings.Contains(t.String(), "McaConfig"):
				return optionSchema(&McaConfig{}) //nolint:exhaustruct
			case t == reflect.TypeOf(ID("")):
				return &jsonschema.Schema{ //nolint:exhaustruct
					Type: "string",
					Enum: AllIDs,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "strategy-config"
	schema.Description = "Configuration schema for position sizing strategies"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func optionSchema(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{ //nolint:exhaustruct
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(v)
	schema.Version = ""

	return schema
}
