package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradeledger/journal"
	"github.com/rustyeddy/tradeledger/ledger"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query ledger journal data",
	Long: `Query and display journal records from a SQLite or PostgreSQL journal.

Subcommands:
  runs      - List run ids in the journal
  positions - List closed positions of a run
  position  - Show one closed position
  orders    - List terminal orders of a run
  today     - List positions closed today, across runs
  day       - List positions closed on a specific day, across runs
  stats     - Summary statistics of a run

Examples:
  tradeledger journal runs --db ledger.db
  tradeledger journal positions --run 01HQ...
  tradeledger journal day 2024-01-15`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List run ids",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalPositionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List closed positions of a run",
	Args:  cobra.NoArgs,
	RunE:  runJournalPositions,
}

var journalPositionCmd = &cobra.Command{
	Use:   "position <position-id>",
	Short: "Show details of a closed position",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPosition,
}

var journalOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List terminal orders of a run",
	Args:  cobra.NoArgs,
	RunE:  runJournalOrders,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List positions closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List positions closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summary statistics of a run",
	Args:  cobra.NoArgs,
	RunE:  runJournalStats,
}

var (
	journalDBPath string
	journalRunID  string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd, journalPositionsCmd, journalPositionCmd,
		journalOrdersCmd, journalTodayCmd, journalDayCmd, journalStatsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "SQLite journal path (overrides journal config)")
	journalCmd.PersistentFlags().StringVar(&journalRunID, "run", "", "run id (default: latest run)")
}

// openJournal opens the configured SQL journal scoped to the selected run.
func openJournal() (*journal.SQL, error) {
	var (
		j   *journal.SQL
		err error
	)
	switch {
	case journalDBPath != "":
		j, err = journal.NewSQLite(journalDBPath, journalRunID)
	case cfg.Journal.Type == "sqlite":
		j, err = journal.NewSQLite(cfg.Journal.Path, journalRunID)
	case cfg.Journal.Type == "postgres":
		j, err = journal.NewPostgres(cfg.Journal.DSN, journalRunID)
	default:
		return nil, fmt.Errorf("journal queries need a sqlite or postgres journal, have %q", cfg.Journal.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if journalRunID != "" {
		return j, nil
	}

	latest, err := j.LatestRun()
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("latest run: %w", err)
	}
	if latest == "" {
		j.Close()
		return nil, fmt.Errorf("journal is empty")
	}
	return j.WithRun(latest), nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.Runs()
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	for _, r := range runs {
		fmt.Fprintln(cmd.OutOrStdout(), r)
	}
	return nil
}

func runJournalPositions(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.Positions()
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatPositionsOrg(recs))
	return nil
}

func runJournalPosition(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("position id: %w", err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetPosition(id)
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatPositionOrg(rec))
	return nil
}

func runJournalOrders(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.Orders()
	if err != nil {
		return fmt.Errorf("query orders: %w", err)
	}
	printOrders(cmd.OutOrStdout(), recs)
	return nil
}

func printOrders(w io.Writer, recs []journal.OrderRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tSYMBOL\tPRICE\tQTY\tPOSITION\tCREATED\tREASON")
	for _, o := range recs {
		pos := "-"
		if o.PositionID != 0 {
			pos = strconv.FormatInt(o.PositionID, 10)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.OrderID, o.Kind, o.Status, o.Symbol, o.Price, o.Quantity, pos,
			o.CreatedAt.UTC().Format(time.RFC3339), o.Reason)
	}
	tw.Flush()
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	loc := time.Local
	return listClosedOn(cmd.OutOrStdout(), loc, time.Now().In(loc).Format(time.DateOnly))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listClosedOn(cmd.OutOrStdout(), time.Local, args[0])
}

func listClosedOn(w io.Writer, loc *time.Location, day string) error {
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListPositionsClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}
	fmt.Fprintln(w, journal.FormatPositionsOrg(recs))
	return nil
}

func runJournalStats(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	closed, err := j.Positions()
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}
	snaps, err := j.Equity()
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	st := journalStatistics(closed, snaps, cfg.Account.Balance)
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run ID:        %s\n", j.RunID())
	fmt.Fprintf(w, "Closed:        %d\n", st.ClosedPositions)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", st.WinRate*100)
	fmt.Fprintf(w, "Net P/L:       %s\n", st.TotalProfitLoss.StringFixed(2))
	fmt.Fprintf(w, "Avg Profit:    %s\n", st.AverageProfit.StringFixed(2))
	fmt.Fprintf(w, "Avg Loss:      %s\n", st.AverageLoss.StringFixed(2))
	fmt.Fprintf(w, "Profit Factor: %.2f\n", st.ProfitFactor)
	fmt.Fprintf(w, "Max Drawdown:  %s\n", st.MaxDrawdown.StringFixed(2))
	fmt.Fprintf(w, "Balance:       %s -> %s\n", st.InitialBalance.StringFixed(2), st.CurrentBalance.StringFixed(2))
	return nil
}

// journalStatistics rebuilds run statistics from stored records. The
// starting balance comes from config; the final one from the last equity
// snapshot when there is one.
func journalStatistics(closed []journal.PositionRecord, snaps []journal.EquitySnapshot, initial decimal.Decimal) ledger.Statistics {
	acct := ledger.Account{
		InitialBalance: initial,
		Balance:        initial,
		MaxDrawdown:    journal.MaxDrawdown(snaps),
	}
	if len(snaps) > 0 {
		acct.Balance = snaps[len(snaps)-1].Balance
	}
	return ledger.ComputeStatistics(closed, 0, acct)
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
