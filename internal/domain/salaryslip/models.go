package salaryslip

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type WorkPlatform string

const (
	WorkPlatformOffice WorkPlatform = "office"
	WorkPlatformRemote WorkPlatform = "remote"
	WorkPlatformHybrid WorkPlatform = "hybrid"
)

var WorkPlatforms = []WorkPlatform{WorkPlatformOffice, WorkPlatformRemote, WorkPlatformHybrid}

// ParseWorkPlatform is case-insensitive. Unrecognized values are returned
// as-is so the calculation can reject them.
func ParseWorkPlatform(raw string) WorkPlatform {
	normalized := WorkPlatform(strings.ToLower(strings.TrimSpace(raw)))
	for _, p := range WorkPlatforms {
		if normalized == p {
			return p
		}
	}
	return WorkPlatform(raw)
}

// ValidateWage bounds a wage before it reaches any arithmetic or formatting.
// A short input like 1e50000000 would otherwise expand to megabytes of digits.
var MaxWage = decimal.New(1, 12)

const MaxWageScale = 4

func ValidateWage(w decimal.Decimal) error {
	if w.IsZero() {
		return nil
	}
	if w.IsNegative() {
		return fmt.Errorf("%w: must not be negative", ErrInvalidWage)
	}
	if w.Exponent() < -MaxWageScale {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidWage, MaxWageScale)
	}
	// checked before GreaterThan, which would rescale a huge exponent
	if w.Exponent() > 12 || w.GreaterThan(MaxWage) {
		return fmt.Errorf("%w: must not exceed %s", ErrInvalidWage, MaxWage.String())
	}
	return nil
}

// Employee is the input to every calculation. Wage is paid per working day.
type Employee struct {
	Wage         decimal.Decimal `json:"wage"`
	WorkingDays  int             `json:"workingDays"`
	WorkPlatform WorkPlatform    `json:"workPlatform"`
	IsDanger     bool            `json:"isDanger"`
	DutyStation  string          `json:"dutyStation"`
}

type Slip struct {
	ID                      string          `json:"id"`
	BasicSalary             decimal.Decimal `json:"basicSalary"`
	TransportationAllowance decimal.Decimal `json:"transportationAllowance"`
	DangerPay               decimal.Decimal `json:"dangerPay"`
	Total                   decimal.Decimal `json:"total"`
}
