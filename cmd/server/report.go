package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/availability"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/timesheet"
)

var (
	goodColor = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	badColor  = color.New(color.FgRed)
	headColor = color.New(color.Bold)
)

func reportCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print availability and utilisation reports",
	}
	cmd.AddCommand(reportAvailabilityCmd(configFile))
	cmd.AddCommand(reportUtilisationCmd(configFile))
	return cmd
}

func reportAvailabilityCmd(configFile *string) *cobra.Command {
	var rse string

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Show the capacity and free FTE grid for one RSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			staff, err := a.store.GetStaff(ctx, rse)
			if err != nil {
				return err
			}
			if staff == nil {
				return fmt.Errorf("rse %q not found", rse)
			}
			as, err := a.store.ListAssignments(ctx, timesheet.AssignmentFilter{StaffID: rse})
			if err != nil {
				return err
			}
			cs, err := a.store.ListCapacities(ctx, timesheet.CapacityFilter{StaffID: rse})
			if err != nil {
				return err
			}

			res := a.engine.Compute(*staff, as, cs)
			next, err := availability.NextAvailable(res.Available, calendar.Today(a.engine.Clock))
			if err != nil && !errors.Is(err, availability.ErrNotFound) {
				return err
			}
			printAvailability(os.Stdout, *staff, res, next)
			return nil
		},
	}
	cmd.Flags().StringVar(&rse, "rse", "", "RSE identifier")
	cmd.MarkFlagRequired("rse")
	return cmd
}

func reportUtilisationCmd(configFile *string) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "utilisation",
		Short: "Show financial-year utilisation per RSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.agg == nil {
				return errors.New("time tracker is not configured (set CLOCKIFY_API_KEY and CLOCKIFY_WORKSPACE)")
			}
			if year == 0 {
				year = calendar.FinancialYearAt(time.Now())
			}

			ctx := cmd.Context()
			report, err := a.agg.BuildUtilisationReport(ctx, year)
			if err != nil {
				return err
			}
			printUtilisation(os.Stdout, report)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "financial year start (e.g. 2025 for 2025/26); default current")
	return cmd
}

// =============================================================================
// RENDERING
// =============================================================================

var monthHeader = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func printAvailability(w io.Writer, staff availability.Staff, res availability.Result, next availability.NextAvailability) {
	headColor.Fprintf(w, "%s (%s)\n", staff.Name, staff.ID)

	end := "open-ended"
	if staff.ContractEnd != nil {
		end = calendar.Format(*staff.ContractEnd)
	}
	fmt.Fprintf(w, "  Contract: %s to %s\n", calendar.Format(staff.ContractStart), end)

	if next.Date.IsZero() {
		fmt.Fprintf(w, "  Next available: %s\n", badColor.Sprint("none this year"))
	} else {
		fmt.Fprintf(w, "  Next available: %s at %s%%\n",
			goodColor.Sprint(calendar.Format(next.Date)), next.FTE.StringFixed(0))
	}

	fmt.Fprintf(w, "\n  %-6s %s\n", "Year", strings.Join(padAll(monthHeader), " "))
	for _, year := range res.Available.Years() {
		cells := make([]string, 12)
		for m := 0; m < 12; m++ {
			cells[m] = cellString(res.Available.Cell(year, m))
		}
		fmt.Fprintf(w, "  %-6d %s\n", year, strings.Join(cells, " "))
	}
}

func cellString(c decimal.NullDecimal) string {
	if !c.Valid {
		return fmt.Sprintf("%5s", "-")
	}
	s := fmt.Sprintf("%5s", c.Decimal.StringFixed(0))
	switch {
	case c.Decimal.IsNegative():
		return badColor.Sprint(s)
	case c.Decimal.IsZero():
		return warnColor.Sprint(s)
	default:
		return goodColor.Sprint(s)
	}
}

func padAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%5s", s)
	}
	return out
}

func printUtilisation(w io.Writer, r *timesheet.UtilisationReport) {
	headColor.Fprintf(w, "Utilisation %s (%s)\n\n", calendar.FinancialYearLabel(r.FinancialYear), r.Period)

	fmt.Fprintf(w, "  %-24s %10s %10s %10s %10s %8s\n", "RSE", "Available", "Recorded", "Billable", "Volunt.", "Util%")
	for _, s := range r.RSEs {
		name := s.Name
		if name == "" {
			name = s.StaffID
		}
		printTotalsRow(w, name, s.Total)
	}
	fmt.Fprintln(w)
	printTotalsRow(w, "Total", r.Total)
}

func printTotalsRow(w io.Writer, label string, t timesheet.Totals) {
	util := t.Utilisation()
	utilStr := fmt.Sprintf("%8s", util.StringFixed(1))
	switch {
	case util.GreaterThanOrEqual(decimal.NewFromInt(70)):
		utilStr = goodColor.Sprint(utilStr)
	case util.GreaterThanOrEqual(decimal.NewFromInt(40)):
		utilStr = warnColor.Sprint(utilStr)
	default:
		utilStr = badColor.Sprint(utilStr)
	}

	fmt.Fprintf(w, "  %-24s %10s %10s %10s %10s %s\n",
		label,
		t.Available().StringFixed(1),
		t.Recorded.StringFixed(1),
		t.Billable.StringFixed(1),
		t.Volunteered.StringFixed(1),
		utilStr,
	)
}
