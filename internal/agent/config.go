package agent

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sizing/internal/storage"
	"github.com/rxtech-lab/argo-sizing/internal/strategy"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the configuration of one bot.
type Config struct {
	BotID    string           `yaml:"bot_id" json:"bot_id" jsonschema:"title=Bot ID,description=Unique key of the bot state" validate:"required"`
	Strategy strategy.Config  `yaml:"strategy" json:"strategy" jsonschema:"title=Strategy,description=Strategy selection and settings"`
	Market   types.MarketInfo `yaml:"market" json:"market" jsonschema:"title=Market,description=Trading rules of the market"`
	Store    storage.Config   `yaml:"store" json:"store" jsonschema:"title=Store,description=State store backend"`
	LogLevel string           `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,description=Minimum log level,enum=debug,enum=info,enum=warn,enum=error" validate:"omitempty,oneof=debug info warn error"`
	// JournalDir receives the fills Parquet file when set.
	JournalDir optional.Option[string] `yaml:"journal_dir" json:"journal_dir" jsonschema:"title=Journal Directory,description=Directory receiving the fills journal"`
}

// UnmarshalYAML implements custom unmarshaling for Config.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type config struct {
		BotID      string           `yaml:"bot_id"`
		Strategy   strategy.Config  `yaml:"strategy"`
		Market     types.MarketInfo `yaml:"market"`
		Store      storage.Config   `yaml:"store"`
		LogLevel   string           `yaml:"log_level"`
		JournalDir *string          `yaml:"journal_dir"`
	}

	raw := config{
		LogLevel: "info",
		Store:    storage.Config{Driver: storage.DriverMemory}, //nolint:exhaustruct
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	c.BotID = raw.BotID
	c.Strategy = raw.Strategy
	c.Market = raw.Market
	c.Store = raw.Store
	c.LogLevel = raw.LogLevel
	c.JournalDir = optional.None[string]()

	if raw.JournalDir != nil && *raw.JournalDir != "" {
		c.JournalDir = optional.Some(*raw.JournalDir)
	}

	return nil
}

// ParseConfig parses and validates a YAML config.
func ParseConfig(content []byte) (Config, error) {
	var cfg Config

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadConfig reads, parses and validates the YAML config at path.
func LoadConfig(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return ParseConfig(content)
}

// Validate checks every section of the config.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if err := c.Strategy.Validate(); err != nil {
		return err
	}

	return c.Market.Validate()
}

// GenerateSchema generates a JSON schema for Config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{ //nolint:exhaustruct
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch {
			case t == reflect.TypeOf(strategy.Config{}): //nolint:exhaustruct
				cfg := strategy.Config{} //nolint:exhaustruct

				schema, err := cfg.GenerateSchema()
				if err != nil {
					return nil
				}

				schema.Version = ""

				return schema
			case strings.Contains(t.String(), "optional.Option[string]"):
				return &jsonschema.Schema{Type: "string"} //nolint:exhaustruct
			case t == reflect.TypeOf(storage.Driver("")):
				return &jsonschema.Schema{ //nolint:exhaustruct
					Type: "string",
					Enum: storage.AllDrivers,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "sizer-config"
	schema.Description = "Configuration schema for a position sizing bot"
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
