package strategy

import (
	"encoding/json"
	"testing"

	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v2"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestUnmarshalYAML() {
	tests := []struct {
		name       string
		input      string
		expectType ID
		expectPile bool
		expectMca  bool
	}{
		{
			name:       "pile",
			input:      "type: pile\npile:\n  ratio: 0.4\n  accum: 0.5\n",
			expectType: IDPile,
			expectPile: true,
		},
		{
			name:       "mca",
			input:      "type: mathematical_cost_averaging\nmca:\n  buy_strength: 0.3\n  sell_strength: 0.6\n  init_bet: 5\n  min_above_enter: 2\n  use_sentiment: true\n",
			expectType: IDMca,
			expectMca:  true,
		},
		{
			name:       "defaults",
			input:      "type: pile\n",
			expectType: IDPile,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			var cfg Config
			suite.Require().NoError(yaml.Unmarshal([]byte(tc.input), &cfg))
			suite.Equal(tc.expectType, cfg.Type)
			suite.Equal(tc.expectPile, cfg.Pile.IsSome())
			suite.Equal(tc.expectMca, cfg.Mca.IsSome())
			suite.NoError(cfg.Validate())
		})
	}
}

func (suite *ConfigTestSuite) TestUnmarshalValues() {
	var cfg Config
	input := "type: mathematical_cost_averaging\nmca:\n  buy_strength: 0.3\n  sell_strength: 0.6\n  init_bet: 5\n  min_above_enter: 2\n  use_sentiment: true\n"
	suite.Require().NoError(yaml.Unmarshal([]byte(input), &cfg))

	suite.Equal(McaConfig{
		BuyStrength:   0.3,
		SellStrength:  0.6,
		InitBet:       5,
		MinAboveEnter: 2,
		UseSentiment:  true,
	}, cfg.McaOrDefault())
	suite.Equal(DefaultPileConfig(), cfg.PileOrDefault())
}

func (suite *ConfigTestSuite) TestValidate() {
	var cfg Config

	suite.Require().NoError(yaml.Unmarshal([]byte("type: pile\npile:\n  ratio: 1.5\n"), &cfg))
	err := cfg.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))

	suite.Require().NoError(yaml.Unmarshal([]byte("type: mathematical_cost_averaging\nmca:\n  init_bet: 150\n"), &cfg))
	err = cfg.Validate()
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))

	err = Config{}.Validate()
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	cfg := Config{}

	schemaJSON, err := cfg.GenerateSchemaJSON()
	suite.Require().NoError(err)

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schemaJSON), &schema))
	suite.Equal("strategy-config", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(props, "type")
	suite.Contains(props, "pile")
	suite.Contains(props, "mca")
	suite.Contains(schemaJSON, string(IDMca))
	suite.Contains(schemaJSON, "buy_strength")
}
