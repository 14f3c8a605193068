package salaryslip

import "github.com/shopspring/decimal"

var (
	TransportationAllowanceAmount = decimal.RequireFromString("500.00")
	DangerPayAmount               = decimal.RequireFromString("1000.00")
)

const (
	OpBasicSalary             = "basic_salary"
	OpTransportationAllowance = "transportation_allowance"
	OpDangerPay               = "danger_pay"
	OpCompute                 = "compute"
)
