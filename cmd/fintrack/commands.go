package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func commands(out io.Writer) []subcommands.Command {
	return []subcommands.Command{
		&recurringCmd{out: out},
		&summaryCmd{out: out},
		&billsCmd{out: out},
		&categorizeCmd{out: out},
	}
}

// session is an opened ledger with the configuration it was opened with.
type session struct {
	cfg     *config.Config
	logger  *log.Logger
	ledger  *services.Ledger
	cleanup func() error
}

func open(ctx context.Context) (*session, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.LogLevel)
	ledger, cleanup, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, ledger: ledger, cleanup: cleanup}, nil
}

func (s *session) close() subcommands.ExitStatus {
	if err := s.cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

type recurringCmd struct {
	out   io.Writer
	every time.Duration
}

func (*recurringCmd) Name() string     { return "recurring" }
func (*recurringCmd) Synopsis() string { return "create transactions from due recurring templates" }
func (*recurringCmd) Usage() string {
	return `fintrack recurring [-every <duration>]

  Copies every due recurring template into a transaction dated now. With -every,
  keeps running and processes again on each tick until interrupted.
`
}

func (c *recurringCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.every, "every", 0, "process repeatedly at this interval (0 runs once)")
}

func (c *recurringCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := open(ctx)
	if err != nil {
		return fail(err)
	}

	status := c.process(ctx, s, time.Now())
	if c.every > 0 {
		ticker := time.NewTicker(c.every)
		defer ticker.Stop()
		s.logger.Info("Recurring processor running", "interval", c.every)
	loop:
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Shutting down recurring processor")
				break loop
			case now := <-ticker.C:
				status = c.process(ctx, s, now)
			}
		}
	}

	if closed := s.close(); closed != subcommands.ExitSuccess {
		return closed
	}
	return status
}

func (c *recurringCmd) process(ctx context.Context, s *session, now time.Time) subcommands.ExitStatus {
	n, err := s.ledger.ProcessRecurring(ctx, now)
	fmt.Fprintf(c.out, "%s: created %d transaction(s)\n", now.Format(time.DateTime), n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	out   io.Writer
	year  int
	month int
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show a month overview and active budgets" }
func (*summaryCmd) Usage() string {
	return `fintrack summary [-y <year>] [-m <month>]

  Prints income, expenses and spending by category for the month, followed by the
  status of every active budget. Defaults to the current month.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	now := time.Now()
	f.IntVar(&c.year, "y", now.Year(), "year")
	f.IntVar(&c.month, "m", int(now.Month()), "month (1-12)")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	ov, err := s.ledger.MonthOverview(c.year, c.month)
	if err != nil {
		s.close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	cur := s.cfg.DefaultCurrency

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%04d-%02d\n", ov.Year, ov.Month)
	fmt.Fprintf(w, "Income\t%s\n", ov.Income.Format(cur))
	fmt.Fprintf(w, "Expenses\t%s\n", ov.Expenses.Format(cur))
	fmt.Fprintf(w, "Net\t%s\n", ov.Net().Format(cur))
	for _, ca := range ov.ByCategory {
		fmt.Fprintf(w, "  %s\t%s\n", ca.Name, ca.Amount.Format(cur))
	}

	statuses := s.ledger.ActiveBudgetStatuses(time.Now())
	if len(statuses) > 0 {
		fmt.Fprintln(w, "\nBudget\tSpent\tLimit\tProgress")
		for _, st := range statuses {
			name := string(st.Budget.CategoryID)
			if cat, ok := s.ledger.Categories.Get(st.Budget.CategoryID); ok {
				name = cat.Name
			}
			mark := ""
			if st.OverBudget() {
				mark = " over"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%%s\n", name, st.Spent.Format(cur), st.Budget.Limit.Format(cur), st.Progress*100, mark)
		}
	}
	w.Flush()
	return s.close()
}

type billsCmd struct {
	out  io.Writer
	days int
}

func (*billsCmd) Name() string     { return "bills" }
func (*billsCmd) Synopsis() string { return "list overdue and upcoming bills" }
func (*billsCmd) Usage() string {
	return `fintrack bills [-days <n>]

  Lists unpaid bills that are overdue and those due within the next n days.
`
}

func (c *billsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 7, "look-ahead window in days")
}

func (c *billsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.days < 0 {
		fmt.Fprintln(os.Stderr, "Error: -days must not be negative")
		return subcommands.ExitUsageError
	}
	s, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	now := time.Now()
	cur := s.cfg.DefaultCurrency

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, b := range s.ledger.OverdueBills(now) {
		fmt.Fprintf(w, "OVERDUE\t%s\t%s\t%s\n", b.DueDate.Format(time.DateOnly), b.Name, b.Amount.Format(cur))
	}
	for _, b := range s.ledger.UpcomingBills(now, time.Duration(c.days)*24*time.Hour) {
		fmt.Fprintf(w, "due\t%s\t%s\t%s\n", b.DueDate.Format(time.DateOnly), b.Name, b.Amount.Format(cur))
	}
	w.Flush()
	return s.close()
}

type categorizeCmd struct {
	out io.Writer
}

func (*categorizeCmd) Name() string     { return "categorize" }
func (*categorizeCmd) Synopsis() string { return "suggest a category for a merchant" }
func (*categorizeCmd) Usage() string {
	return `fintrack categorize <merchant>

  Prints the suggested category and its confidence.
`
}

func (*categorizeCmd) SetFlags(*flag.FlagSet) {}

func (c *categorizeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	merchant := strings.Join(f.Args(), " ")
	if strings.TrimSpace(merchant) == "" {
		fmt.Fprintln(os.Stderr, "Error: merchant is required")
		return subcommands.ExitUsageError
	}
	s, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	sug := s.ledger.SuggestCategory(merchant)
	known := "-"
	if sug.CategoryID != "" {
		known = string(sug.CategoryID)
	}
	fmt.Fprintf(c.out, "%s\t%.2f\t%s\n", sug.Name, sug.Confidence, known)
	return s.close()
}
