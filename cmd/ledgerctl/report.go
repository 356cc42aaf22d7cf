package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"spending-tracker/internal/models"
	"spending-tracker/internal/tracker"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type categoryReport struct {
	Name       string  `yaml:"name"`
	Count      int     `yaml:"count"`
	Total      string  `yaml:"total"`
	Percentage float64 `yaml:"percentage"`
}

type monthReport struct {
	Month      string           `yaml:"month"`
	Spent      string           `yaml:"spent"`
	Income     string           `yaml:"income"`
	Remaining  string           `yaml:"remaining"`
	Spending   int              `yaml:"spending_percentage"`
	Saving     int              `yaml:"saving_percentage"`
	Rating     models.Rating    `yaml:"rating"`
	Categories []categoryReport `yaml:"categories"`
}

// formatMoney renders amount in the currency's display format, rounded to the
// currency's minor unit.
func formatMoney(amount float64, currency string) (string, error) {
	if math.IsInf(amount, 0) || math.IsNaN(amount) {
		return "", fmt.Errorf("amount %v cannot be displayed", amount)
	}
	cur := money.GetCurrency(currency)
	if cur == nil {
		return "", fmt.Errorf("unknown currency %q", currency)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display(), nil
}

func buildReport(s tracker.Summary, currency string) (monthReport, error) {
	format := func(dst *string, amount float64) error {
		v, err := formatMoney(amount, currency)
		*dst = v
		return err
	}

	r := monthReport{
		Month:      s.Month,
		Spending:   s.Insight.SpendingPercentage,
		Saving:     s.Insight.SavingPercentage,
		Rating:     s.Insight.Rating,
		Categories: make([]categoryReport, 0, len(s.Groups)),
	}
	for _, f := range []struct {
		dst    *string
		amount float64
	}{
		{&r.Spent, s.Total},
		{&r.Income, s.Income},
		{&r.Remaining, s.Insight.RemainingAmount},
	} {
		if err := format(f.dst, f.amount); err != nil {
			return monthReport{}, err
		}
	}

	for _, g := range s.Groups {
		c := categoryReport{Name: g.Name, Count: g.Count, Percentage: g.Percentage}
		if err := format(&c.Total, g.Total); err != nil {
			return monthReport{}, err
		}
		r.Categories = append(r.Categories, c)
	}
	return r, nil
}

func newReportCmd(opts *options) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "report [month]",
		Short: "Summarize a month's spending as YAML",
		Long:  "Summarize spending per category for a month (YYYY-MM, default current month) against its income.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, closeFn, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			month := t.CurrentMonth()
			if len(args) == 1 {
				month = args[0]
			}
			if _, err := time.Parse("2006-01", month); err != nil {
				return fmt.Errorf("invalid month %q: want YYYY-MM", month)
			}

			r, err := buildReport(t.MonthSummary(month), strings.ToUpper(currency))
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "INR", "ISO 4217 currency used to format amounts")
	return cmd
}
