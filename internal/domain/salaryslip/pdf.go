package salaryslip

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// RenderPDF writes a one-page salary slip for the employee.
func RenderPDF(w io.Writer, e *Employee, slip Slip, issuedAt time.Time) error {
	if e == nil {
		return ErrNilEmployee
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Salary slip "+slip.ID, false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Salary slip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Slip: %s", slip.ID))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Issued: %s", issuedAt.UTC().Format("2006-01-02")))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Work platform: %s", e.WorkPlatform))
	pdf.Ln(6)
	if e.DutyStation != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Duty station: %s", e.DutyStation))
		pdf.Ln(6)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Wage: %s x %d days", e.Wage.StringFixed(2), e.WorkingDays))
	pdf.Ln(10)

	lines := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Basic salary", slip.BasicSalary},
		{"Transportation allowance", slip.TransportationAllowance},
		{"Danger pay", slip.DangerPay},
	}
	for _, line := range lines {
		pdf.CellFormat(120, 8, line.label, "B", 0, "L", false, 0, "")
		pdf.CellFormat(50, 8, line.amount.StringFixed(2), "B", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(120, 9, "Total", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 9, slip.Total.StringFixed(2), "", 1, "R", false, 0, "")

	return pdf.Output(w)
}
