package journal

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/stretchr/testify/suite"
)

// DuckDBJournalTestSuite is a test suite for DuckDBJournal
type DuckDBJournalTestSuite struct {
	suite.Suite
	journal *DuckDBJournal
	logger  *logger.Logger
	tempDir string
	start   time.Time
}

func (suite *DuckDBJournalTestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()

	tempDir, err := os.MkdirTemp("", "journal-test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir
	suite.start = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
}

func (suite *DuckDBJournalTestSuite) TearDownSuite() {
	os.RemoveAll(suite.tempDir)
}

func (suite *DuckDBJournalTestSuite) SetupTest() {
	j, err := NewDuckDBJournal(suite.logger)
	suite.Require().NoError(err)
	suite.journal = j
}

func (suite *DuckDBJournalTestSuite) TearDownTest() {
	if suite.journal != nil {
		suite.journal.Close()
	}
}

func TestDuckDBJournalSuite(t *testing.T) {
	suite.Run(t, new(DuckDBJournalTestSuite))
}

func (suite *DuckDBJournalTestSuite) seed() {
	entries := []Entry{
		{BotID: "bot-1", StrategyID: "pile", Time: suite.start, Price: 100, Size: 0.5, NeutralPrice: 100},
		{BotID: "bot-2", StrategyID: "pile", Time: suite.start.Add(time.Minute), Price: 101, Size: -0.1, NormProfit: 0.3},
		{BotID: "bot-1", StrategyID: "pile", Time: suite.start.Add(2 * time.Minute), Price: 99, Size: 0, Alert: true},
	}

	for _, e := range entries {
		suite.Require().NoError(suite.journal.Record(e))
	}
}

func (suite *DuckDBJournalTestSuite) TestRecordAndEntries() {
	suite.seed()

	entries, err := suite.journal.Entries(Filter{})
	suite.Require().NoError(err)
	suite.Require().Len(entries, 3)

	suite.NotEmpty(entries[0].ID)
	suite.NotEqual(entries[0].ID, entries[1].ID)
	suite.Equal("bot-1", entries[0].BotID)
	suite.Equal(100.0, entries[0].Price)
	suite.True(suite.start.Equal(entries[0].Time.UTC()))
	suite.InDelta(0.3, entries[1].NormProfit, 1e-12)
	suite.True(entries[2].Alert)
}

func (suite *DuckDBJournalTestSuite) TestRecordKeepsID() {
	suite.Require().NoError(suite.journal.Record(Entry{ID: "fill-1", BotID: "bot-1", Time: suite.start}))

	entries, err := suite.journal.Entries(Filter{})
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal("fill-1", entries[0].ID)

	// ids are unique
	suite.Error(suite.journal.Record(Entry{ID: "fill-1", BotID: "bot-1", Time: suite.start}))
}

func (suite *DuckDBJournalTestSuite) TestEntriesFilter() {
	suite.seed()

	tests := []struct {
		name     string
		filter   Filter
		expected int
	}{
		{"by bot", Filter{BotID: optional.Some("bot-1")}, 2},
		{"since", Filter{Since: optional.Some(suite.start.Add(time.Minute))}, 2},
		{"limit", Filter{Limit: optional.Some(uint64(1))}, 1},
		{"combined", Filter{BotID: optional.Some("bot-1"), Since: optional.Some(suite.start.Add(time.Minute))}, 1},
		{"unknown bot", Filter{BotID: optional.Some("bot-9")}, 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			entries, err := suite.journal.Entries(tc.filter)
			suite.Require().NoError(err)
			suite.Len(entries, tc.expected)
		})
	}
}

func (suite *DuckDBJournalTestSuite) TestWrite() {
	suite.seed()

	dir := filepath.Join(suite.tempDir, "write")
	suite.Require().NoError(suite.journal.Write(dir))

	path := filepath.Join(dir, FileName)
	_, err := os.Stat(path)
	suite.Require().NoError(err)

	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)
	defer db.Close()

	var count int

	err = db.QueryRow("SELECT COUNT(*) FROM read_parquet('" + path + "')").Scan(&count)
	suite.Require().NoError(err)
	suite.Equal(3, count)
}

func (suite *DuckDBJournalTestSuite) TestCleanup() {
	suite.seed()
	suite.Require().NoError(suite.journal.Cleanup())

	entries, err := suite.journal.Entries(Filter{})
	suite.Require().NoError(err)
	suite.Empty(entries)
}

func (suite *DuckDBJournalTestSuite) TestNilJournal() {
	var j *DuckDBJournal

	suite.Error(j.Record(Entry{}))
	suite.NoError(j.Close())
}
