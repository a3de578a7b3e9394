package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeledger/journal"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, envFile, logLevel = "", "", ""
	journalDBPath, journalRunID = "", ""
	runFeedPath, runStrategy, runKeepOpen = "", "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	start, end, err := dayBounds(loc, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(loc, "15/01/2024")
	assert.Error(t, err)
}

func TestJournalStatistics(t *testing.T) {
	d := decimal.RequireFromString
	closed := []journal.PositionRecord{{ProfitLoss: d("30")}, {ProfitLoss: d("-10")}}
	snaps := []journal.EquitySnapshot{
		{Balance: d("1000"), Equity: d("1000")},
		{Balance: d("1000"), Equity: d("980")},
		{Balance: d("1020"), Equity: d("1020")},
	}
	st := journalStatistics(closed, snaps, d("1000"))
	assert.Equal(t, 2, st.ClosedPositions)
	assert.True(t, d("20").Equal(st.TotalProfitLoss))
	assert.True(t, d("20").Equal(st.MaxDrawdown))
	assert.True(t, d("1020").Equal(st.CurrentBalance))
	assert.InDelta(t, 3.0, st.ProfitFactor, 1e-9)
}

func TestRunAndQueryJournal(t *testing.T) {
	dir := t.TempDir()
	quotes := filepath.Join(dir, "quotes.csv")
	require.NoError(t, os.WriteFile(quotes, []byte(
		"time,symbol,bid,ask,close\n"+
			"2024-01-15T10:00:00Z,X,,,100\n"+
			"2024-01-15T10:01:00Z,X,,,105\n"+
			"2024-01-15T10:02:00Z,X,,,111\n"), 0644))

	cfgPath := filepath.Join(dir, "ledger.yaml")
	db := filepath.Join(dir, "ledger.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
account:
  currency: USD
  balance: 10000
journal:
  type: sqlite
  path: `+db+`
feed:
  type: csv
  path: `+quotes+`
strategy:
  name: open-once
  symbol: X
  quantity: 10
  stop_distance: 5
  target_distance: 10
log:
  level: error
`), 0644))

	out, err := execute(t, "run", "-c", cfgPath, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "End Balance:   10100.00")
	assert.Contains(t, out, "Quotes:        3")

	out, err = execute(t, "journal", "positions", "-c", cfgPath, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "** Position: BUY X #1")
	assert.Contains(t, out, "Take Profit triggered")

	out, err = execute(t, "journal", "orders", "--db", db, "-c", cfgPath, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "EXECUTED")

	out, err = execute(t, "journal", "stats", "-c", cfgPath, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Net P/L:       100.00")
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")

	out, err := execute(t, "config", "init", "-o", path, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = execute(t, "config", "validate", "-f", path, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "Journal: memory")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "tradeledger version "+version)
}
