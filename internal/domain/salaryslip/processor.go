package salaryslip

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Processor computes salary slip components for a single employee. It holds
// no mutable state; concurrent use is safe as long as the ZoneLookup is.
type Processor struct {
	zones ZoneLookup
}

// NewProcessor accepts a nil lookup. Danger pay for an employee without the
// explicit flag then fails with ErrZoneLookupUnset.
func NewProcessor(zones ZoneLookup) *Processor {
	return &Processor{zones: zones}
}

func (p *Processor) CalculateBasicSalary(e *Employee) (decimal.Decimal, error) {
	if e == nil {
		return decimal.Zero, ErrNilEmployee
	}
	return e.Wage.Mul(decimal.NewFromInt(int64(e.WorkingDays))), nil
}

func (p *Processor) CalculateTransportationAllowance(e *Employee) (decimal.Decimal, error) {
	if e == nil {
		return decimal.Zero, ErrNilEmployee
	}
	switch e.WorkPlatform {
	case WorkPlatformOffice:
		return TransportationAllowanceAmount, nil
	case WorkPlatformRemote:
		return decimal.Zero, nil
	case WorkPlatformHybrid:
		return TransportationAllowanceAmount.Div(two), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownWorkPlatform, string(e.WorkPlatform))
	}
}

// CalculateDangerPay consults the zone lookup at most once, and only when the
// employee is not explicitly flagged.
func (p *Processor) CalculateDangerPay(ctx context.Context, e *Employee) (decimal.Decimal, error) {
	if e == nil {
		return decimal.Zero, ErrNilEmployee
	}
	if e.IsDanger {
		return DangerPayAmount, nil
	}
	if p.zones == nil {
		return decimal.Zero, ErrZoneLookupUnset
	}
	inZone, err := p.zones.IsDangerZone(ctx, e.DutyStation)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrZoneLookupFailed, err)
	}
	if inZone {
		return DangerPayAmount, nil
	}
	return decimal.Zero, nil
}

func (p *Processor) Compute(ctx context.Context, e *Employee) (Slip, error) {
	if e == nil {
		return Slip{}, ErrNilEmployee
	}
	basic, err := p.CalculateBasicSalary(e)
	if err != nil {
		return Slip{}, err
	}
	transport, err := p.CalculateTransportationAllowance(e)
	if err != nil {
		return Slip{}, err
	}
	danger, err := p.CalculateDangerPay(ctx, e)
	if err != nil {
		return Slip{}, err
	}
	return Slip{
		ID:                      uuid.NewString(),
		BasicSalary:             basic,
		TransportationAllowance: transport,
		DangerPay:               danger,
		Total:                   basic.Add(transport).Add(danger),
	}, nil
}
