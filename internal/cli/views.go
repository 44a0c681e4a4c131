package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"subtrack/internal/core"
	"subtrack/internal/export"
	"subtrack/internal/view"
)

// formatAmount renders an amount with its period, e.g. "1500/monthly".
func formatAmount(amount float64, p core.Period) string {
	return core.FormatAmount(amount) + "/" + p.String()
}

type listCmd struct {
	env    *Env
	search string
	sort   string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list subscriptions" }
func (*listCmd) Usage() string {
	modes := make([]string, len(view.SortModes))
	for i, m := range view.SortModes {
		modes[i] = string(m)
	}
	return `subtrack list [-q <search>] [-sort <mode>]

  Lists subscriptions whose name contains the search term, with each amount
  also shown in the other period. Totals always cover every subscription.

  Sort modes: ` + strings.Join(modes, ", ") + "\n"
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.search, "q", "", "case-insensitive name filter")
	f.StringVar(&c.sort, "sort", "", "sort mode")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := c.env.with(ctx, func(app *App) error {
		recs, err := app.Tracker.List(ctx)
		if err != nil {
			return err
		}
		rows := view.Project(recs, c.search, view.ParseSortMode(c.sort))

		w := tabwriter.NewWriter(c.env.Out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tAMOUNT\tPERIOD\tCONVERTED")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s: %s\n",
				r.ID, r.Name, core.FormatAmount(r.Amount), r.Period,
				r.ConvertedPeriod, core.FormatAmount(r.Converted))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		printTotals(c.env, view.CalcSums(recs))
		return nil
	})
	if err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}

func printTotals(env *Env, t view.Totals) {
	fmt.Fprintf(env.Out, "monthly total: %s\nyearly total: %s\n",
		core.FormatAmount(t.Monthly), core.FormatAmount(t.Yearly))
}

type totalsCmd struct {
	env *Env
}

func (*totalsCmd) Name() string     { return "totals" }
func (*totalsCmd) Synopsis() string { return "print monthly and yearly totals" }
func (*totalsCmd) Usage() string {
	return `subtrack totals

  Prints the monthly and yearly cost of all subscriptions.
`
}

func (*totalsCmd) SetFlags(*flag.FlagSet) {}

func (c *totalsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := c.env.with(ctx, func(app *App) error {
		recs, err := app.Tracker.List(ctx)
		if err != nil {
			return err
		}
		printTotals(c.env, view.CalcSums(recs))
		return nil
	})
	if err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}

type exportCmd struct {
	env    *Env
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export subscriptions as CSV" }
func (*exportCmd) Usage() string {
	return `subtrack export [-o <file>|-]

  Writes every subscription as CSV. Without -o the file is named
  subscriptions_YYYY-MM-DD.csv in the current directory; -o - writes to
  standard output.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output file, - for stdout")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := c.env.with(ctx, func(app *App) error {
		recs, err := app.Tracker.List(ctx)
		if err != nil {
			return err
		}
		if c.output == "-" {
			return export.WriteCSV(c.env.Out, recs)
		}

		path := c.output
		if path == "" {
			path = export.Filename(c.env.Now())
		}
		f, err := os.Create(filepath.Clean(path))
		if err != nil {
			return err
		}
		if err := export.WriteCSV(f, recs); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "exported %d subscriptions to %s\n", len(recs), path)
		return nil
	})
	if err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}
