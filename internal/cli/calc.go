package cli

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"salaryslip/internal/app/server"
	"salaryslip/internal/domain/salaryslip"
	"salaryslip/internal/platform/config"
)

type calcOptions struct {
	wage     string
	days     int
	platform string
	danger   bool
	station  string
	zones    []string
}

func newCalcCmd() *cobra.Command {
	opts := &calcOptions{}
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute a salary slip for one employee and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalc(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.wage, "wage", "0", "wage per working day")
	f.IntVar(&opts.days, "days", 0, "number of working days")
	f.StringVar(&opts.platform, "platform", string(salaryslip.WorkPlatformOffice), "work platform: office, remote or hybrid")
	f.BoolVar(&opts.danger, "danger", false, "employee is explicitly entitled to danger pay")
	f.StringVar(&opts.station, "station", "", "duty station")
	f.StringSliceVar(&opts.zones, "zone", nil, "danger zone (repeatable); defaults to DANGER_ZONES and DANGER_ZONES_FILE")
	return cmd
}

func runCalc(cmd *cobra.Command, opts *calcOptions) error {
	wage, err := decimal.NewFromString(opts.wage)
	if err != nil {
		return fmt.Errorf("invalid --wage %q: %w", opts.wage, err)
	}
	if err := salaryslip.ValidateWage(wage); err != nil {
		return fmt.Errorf("--wage: %w", err)
	}
	if opts.days < 0 {
		return fmt.Errorf("--days must not be negative")
	}

	stations := opts.zones
	if len(stations) == 0 {
		stations, err = server.StaticStations(config.Load())
		if err != nil {
			return err
		}
	}

	processor := salaryslip.NewProcessor(salaryslip.NewStaticZones(stations...))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	slip, err := processor.Compute(ctx, &salaryslip.Employee{
		Wage:         wage,
		WorkingDays:  opts.days,
		WorkPlatform: salaryslip.ParseWorkPlatform(opts.platform),
		IsDanger:     opts.danger,
		DutyStation:  opts.station,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(slip, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
