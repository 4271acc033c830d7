package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"github.com/simaogato/jellysave-store/internal/domain"
)

const dateLayout = "2006-01-02"

// accountsCmd lists the accounts
type accountsCmd struct {
	app  *App
	sort string
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts and the total balance" }
func (*accountsCmd) Usage() string {
	return `jellysave accounts [-sort newest|oldest|name]
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sort, "sort", "newest", "Order of the listing (newest, oldest, name).")
}

func (c *accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var sort domain.AccountSort
	switch c.sort {
	case "newest":
		sort = domain.AccountSortNewest
	case "oldest":
		sort = domain.AccountSortOldest
	case "name":
		sort = domain.AccountSortName
	default:
		fmt.Fprintf(c.app.Err, "unknown sort %q\n", c.sort)
		return subcommands.ExitUsageError
	}

	accounts, err := c.app.Accounts.FetchAll(ctx, sort)
	if err != nil {
		return c.app.fail(err)
	}

	w := tabwriter.NewWriter(c.app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tBALANCE\tUPDATED")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name, a.Category, a.FormattedBalance(), a.UpdatedAt.Local().Format(dateLayout))
	}
	fmt.Fprintf(w, "TOTAL\t\t%s\t\n", domain.TotalBalance(accounts).String())
	if err := w.Flush(); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// goalsCmd lists the saving goals with their progress
type goalsCmd struct {
	app  *App
	sort string
}

func (*goalsCmd) Name() string     { return "goals" }
func (*goalsCmd) Synopsis() string { return "list saving goals and their progress" }
func (*goalsCmd) Usage() string {
	return `jellysave goals [-sort default|deadline|newest]
`
}

func (c *goalsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sort, "sort", "default", "Order of the listing (default, deadline, newest).")
}

func (c *goalsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var sort domain.GoalSort
	switch c.sort {
	case "default":
		sort = domain.GoalSortDefault
	case "deadline":
		sort = domain.GoalSortDeadline
	case "newest":
		sort = domain.GoalSortNewest
	default:
		fmt.Fprintf(c.app.Err, "unknown sort %q\n", c.sort)
		return subcommands.ExitUsageError
	}

	goals, err := c.app.Goals.FetchAll(ctx, sort)
	if err != nil {
		return c.app.fail(err)
	}

	now := time.Now()
	w := tabwriter.NewWriter(c.app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tSAVED\tTARGET\tPROGRESS\tDEADLINE\tPER MONTH")
	for _, g := range goals {
		perMonth := g.MonthlySavingRequired(now).StringFixed(2)
		if g.IsCompleted {
			perMonth = "done"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%%\t%s\t%s\n",
			g.Title,
			g.CurrentAmount.String(),
			g.TargetAmount.String(),
			g.Progress().Shift(2).StringFixed(0),
			g.Deadline.Local().Format(dateLayout),
			perMonth,
		)
	}
	if err := w.Flush(); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// summaryCmd prints the dashboard figures
type summaryCmd struct {
	app *App
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display total assets, monthly change and the trend" }
func (*summaryCmd) Usage() string {
	return `jellysave summary
`
}

func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	summary, err := c.app.Dashboard.GetSummary(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	trend, err := c.app.Dashboard.GetTrend(ctx)
	if err != nil {
		return c.app.fail(err)
	}

	out := c.app.Out
	fmt.Fprintf(out, "Total assets:     %s\n", summary.TotalAssets.String())
	fmt.Fprintf(out, "Accounts:         %d\n", summary.AccountCount)
	fmt.Fprintf(out, "Active goals:     %d\n", summary.ActiveGoalCount)
	fmt.Fprintf(out, "Monthly saving:   %s\n", summary.MonthlySavingRequired.StringFixed(2))
	fmt.Fprintf(out, "Monthly change:   %s (%s%%)\n", summary.MonthlyChange.String(), summary.MonthlyChangeRatio.Shift(2).StringFixed(2))
	fmt.Fprintf(out, "Last updated:     %s\n", summary.LastUpdated.Local().Format(time.DateTime))
	fmt.Fprintln(out, "Trend:")
	for _, p := range trend {
		fmt.Fprintf(out, "  %s  %s\n", p.Date.Local().Format(dateLayout), p.Amount.StringFixed(2))
	}
	return subcommands.ExitSuccess
}
