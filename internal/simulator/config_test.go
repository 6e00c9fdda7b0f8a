package simulator

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-sizing/internal/simulator/commission_fee"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestParseConfig() {
	cfg, err := ParseConfig([]byte(`
bot_id: ignored
simulation:
  spread: 0.02
  broker: percentage
  commission_rate: 0.001
  initial_assets: 1
  initial_currency: 500
  start: 2025-01-01T00:00:00Z
`))
	suite.Require().NoError(err)

	suite.Equal(0.02, cfg.Spread)
	suite.Equal(commission_fee.BrokerPercentage, cfg.Broker)
	suite.Equal(0.001, cfg.CommissionRate)
	suite.Equal(1.0, cfg.InitialAssets)
	suite.Equal(500.0, cfg.InitialCurrency)
	suite.True(cfg.Start.IsSome())
	suite.True(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Equal(cfg.Start.Unwrap()))
	suite.True(cfg.End.IsNone())
}

func (suite *ConfigTestSuite) TestParseConfigDefaults() {
	cfg, err := ParseConfig([]byte("bot_id: b\n"))
	suite.Require().NoError(err)
	suite.Equal(DefaultConfig(), cfg)

	cfg, err = ParseConfig([]byte("simulation:\n  spread: 0.05\n"))
	suite.Require().NoError(err)
	suite.Equal(0.05, cfg.Spread)
	suite.Equal(commission_fee.BrokerZero, cfg.Broker)
	suite.Equal(1000.0, cfg.InitialCurrency)
}

func (suite *ConfigTestSuite) TestParseConfigErrors() {
	tests := []struct {
		name    string
		content string
	}{
		{"zero spread", "simulation:\n  spread: 0\n"},
		{"unknown broker", "simulation:\n  broker: ib\n"},
		{"empty wallet", "simulation:\n  initial_currency: 0\n"},
		{"negative assets", "simulation:\n  initial_assets: -1\n"},
		{"end before start", "simulation:\n  start: 2025-02-01T00:00:00Z\n  end: 2025-01-01T00:00:00Z\n"},
		{"malformed", "simulation: ["},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := ParseConfig([]byte(tc.content))
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}
