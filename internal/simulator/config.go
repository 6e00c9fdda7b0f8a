package simulator

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sizing/internal/simulator/commission_fee"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the "simulation" section of a bot config file.
type Config struct {
	// Spread is the relative distance of the buy and sell probes from the last close.
	Spread          float64                    `yaml:"spread" json:"spread" jsonschema:"title=Spread,description=Relative probe distance from the close" validate:"gt=0,lt=1"`
	Broker          commission_fee.Broker      `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=Commission model" validate:"required,oneof=percentage zero_commission"`
	CommissionRate  float64                    `yaml:"commission_rate" json:"commission_rate" jsonschema:"title=Commission Rate,description=Fraction of the notional charged per fill,minimum=0" validate:"gte=0,lt=1"`
	InitialAssets   float64                    `yaml:"initial_assets" json:"initial_assets" jsonschema:"title=Initial Assets,minimum=0" validate:"gte=0"`
	InitialCurrency float64                    `yaml:"initial_currency" json:"initial_currency" jsonschema:"title=Initial Currency,minimum=0" validate:"gte=0"`
	Start           optional.Option[time.Time] `yaml:"start" json:"start" jsonschema:"title=Start,description=First bar time to replay"`
	End             optional.Option[time.Time] `yaml:"end" json:"end" jsonschema:"title=End,description=Last bar time to replay"`
}

// DefaultConfig returns the simulation settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Spread:          0.01,
		Broker:          commission_fee.BrokerZero,
		CommissionRate:  0,
		InitialAssets:   0,
		InitialCurrency: 1000,
		Start:           optional.None[time.Time](),
		End:             optional.None[time.Time](),
	}
}

// UnmarshalYAML implements custom unmarshaling for Config.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type config struct {
		Spread          float64               `yaml:"spread"`
		Broker          commission_fee.Broker `yaml:"broker"`
		CommissionRate  float64               `yaml:"commission_rate"`
		InitialAssets   float64               `yaml:"initial_assets"`
		InitialCurrency float64               `yaml:"initial_currency"`
		Start           *time.Time            `yaml:"start"`
		End             *time.Time            `yaml:"end"`
	}

	def := DefaultConfig()
	raw := config{
		Spread:          def.Spread,
		Broker:          def.Broker,
		CommissionRate:  def.CommissionRate,
		InitialAssets:   def.InitialAssets,
		InitialCurrency: def.InitialCurrency,
	}

	if err := unmarshal(&raw); err != nil {
		return err
	}

	*c = Config{
		Spread:          raw.Spread,
		Broker:          raw.Broker,
		CommissionRate:  raw.CommissionRate,
		InitialAssets:   raw.InitialAssets,
		InitialCurrency: raw.InitialCurrency,
		Start:           optional.None[time.Time](),
		End:             optional.None[time.Time](),
	}

	if raw.Start != nil {
		c.Start = optional.Some(*raw.Start)
	}

	if raw.End != nil {
		c.End = optional.Some(*raw.End)
	}

	return nil
}

// Validate checks the settings.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid simulation config", err)
	}

	if c.InitialAssets == 0 && c.InitialCurrency == 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "simulation needs initial assets or currency")
	}

	if c.Start.IsSome() && c.End.IsSome() && c.End.Unwrap().Before(c.Start.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "simulation end is before start")
	}

	return nil
}

// ParseConfig reads the "simulation" section of a bot config. A missing
// section yields DefaultConfig.
func ParseConfig(content []byte) (Config, error) {
	file := struct {
		Simulation Config `yaml:"simulation"`
	}{Simulation: DefaultConfig()}

	if err := yaml.Unmarshal(content, &file); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse simulation config", err)
	}

	if err := file.Simulation.Validate(); err != nil {
		return Config{}, err
	}

	return file.Simulation, nil
}

// LoadConfig reads the "simulation" section of the bot config at path.
func LoadConfig(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return ParseConfig(content)
}
