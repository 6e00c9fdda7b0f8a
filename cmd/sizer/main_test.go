package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-sizing/internal/journal"
	"github.com/rxtech-lab/argo-sizing/mocks"
	"github.com/stretchr/testify/suite"
)

type SizerCmdTestSuite struct {
	suite.Suite
	tempDir    string
	configPath string
	dataPath   string
}

func TestSizerCmdSuite(t *testing.T) {
	suite.Run(t, new(SizerCmdTestSuite))
}

func (suite *SizerCmdTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()

	suite.configPath = filepath.Join(suite.tempDir, "bot.yaml")
	config := `
bot_id: cli-bot
log_level: error
strategy:
  type: pile
market:
  min_size: 0.01
  asset_step: 0.0001
store:
  driver: duckdb
  path: ` + filepath.Join(suite.tempDir, "state.db") + `
simulation:
  spread: 0.01
  initial_assets: 5
  initial_currency: 500
`
	suite.Require().NoError(os.WriteFile(suite.configPath, []byte(config), 0644))

	cfg := mocks.DefaultSeriesConfig()
	cfg.Count = 100
	cfg.Volatility = 0.002
	bars := mocks.NewPriceGenerator(7).Wave(cfg, 0.1, 20)

	var csv strings.Builder
	csv.WriteString("time,symbol,open,high,low,close,volume\n")
	for _, b := range bars {
		fmt.Fprintf(&csv, "%s,%s,%g,%g,%g,%g,%g\n", b.Time.Format(time.RFC3339), b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	suite.dataPath = filepath.Join(suite.tempDir, "bars.csv")
	suite.Require().NoError(os.WriteFile(suite.dataPath, []byte(csv.String()), 0644))
}

func (suite *SizerCmdTestSuite) run(args ...string) string {
	var out bytes.Buffer

	cmd := newCommand()
	cmd.Writer = &out

	err := cmd.Run(context.Background(), append([]string{"sizer"}, args...))
	suite.Require().NoError(err)

	return out.String()
}

func (suite *SizerCmdTestSuite) TestReplayThenInspect() {
	journalDir := filepath.Join(suite.tempDir, "out")

	out := suite.run("replay", "--config", suite.configPath, "--data", suite.dataPath, "--journal", journalDir, "--quiet")
	suite.Contains(out, "ticks: 100")
	suite.Contains(out, "strategy_id: pile")

	suite.FileExists(filepath.Join(journalDir, journal.FileName))
	suite.FileExists(filepath.Join(journalDir, SummaryFileName))

	// the replay persisted the strategy in the duckdb store
	out = suite.run("inspect", "--config", suite.configPath)
	suite.Contains(out, "bot:      cli-bot")
	suite.Contains(out, "valid:    true")
	suite.Contains(out, "budget:")
}

func (suite *SizerCmdTestSuite) TestInspectEmptyStore() {
	out := suite.run("inspect", "--config", suite.configPath)
	suite.Contains(out, "valid:    false")
	suite.NotContains(out, "budget:")
}

func (suite *SizerCmdTestSuite) TestSchema() {
	out := suite.run("schema")
	suite.True(strings.HasPrefix(strings.TrimSpace(out), "{"))
	suite.Contains(out, "bot_id")
	suite.Contains(out, "strategy")
}

func (suite *SizerCmdTestSuite) TestStrategySchema() {
	out := suite.run("schema", "--strategy", "pile")
	suite.Contains(out, "ratio")
	suite.NotContains(out, "bot_id")
}

func (suite *SizerCmdTestSuite) TestReplayMissingData() {
	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}

	err := cmd.Run(context.Background(), []string{"sizer", "replay", "--config", suite.configPath, "--data", filepath.Join(suite.tempDir, "missing.csv"), "--quiet"})
	suite.Error(err)
}
