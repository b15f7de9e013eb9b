package payslip

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/paylane/payroll-engine-go/internal/domain/company"
	"github.com/paylane/payroll-engine-go/internal/domain/employee"
	"github.com/paylane/payroll-engine-go/internal/domain/payroll"
	"github.com/paylane/payroll-engine-go/internal/domain/rates"
)

// Generator renders payslip PDFs for settled payroll items.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Render produces the payslip document for one settled item. Items that
// have not settled carry no trustworthy amounts, so rendering them is
// refused.
func (g *Generator) Render(comp company.Company, emp employee.Employee, p payroll.Payroll, item payroll.PayrollItem) ([]byte, error) {
	if !item.Status.Settled() {
		return nil, fmt.Errorf("payslip: item %s is %s, only settled items can be rendered", item.ID, item.Status)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s %d-%02d", emp.FullName, p.Year, p.Month), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, comp.Name)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Tax ID: %s", comp.TaxID))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 8, fmt.Sprintf("Payslip for %s %d", time.Month(p.Month), p.Year))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(50, 6, "Employee")
	pdf.Cell(0, 6, emp.FullName)
	pdf.Ln(6)
	pdf.Cell(50, 6, "Country")
	pdf.Cell(0, 6, emp.Country)
	pdf.Ln(6)
	pdf.Cell(50, 6, "Date of joining")
	pdf.Cell(0, 6, emp.DateOfJoin.Format("2006-01-02"))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(90, 7, "Component", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Payer", "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 7, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(90, 7, "Gross salary", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 7, "", "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 7, item.GrossSalary.StringFixed(2), "1", 1, "R", false, 0, "")

	for _, line := range item.Details {
		amount := line.Amount.StringFixed(2)
		if line.Category == rates.RuleCategoryDeduction ||
			(line.Category == rates.RuleCategoryContribution && line.Payer == rates.PayerEmployee) {
			amount = "-" + amount
		}
		pdf.CellFormat(90, 7, line.Code, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, string(line.Payer), "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, amount, "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(130, 7, "Total deductions", "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 7, "-"+item.TotalDeductions.StringFixed(2), "1", 1, "R", false, 0, "")
	pdf.CellFormat(130, 7, "Employer contributions", "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 7, item.TotalContributions.Sub(employeeContributions(item)).StringFixed(2), "1", 1, "R", false, 0, "")
	pdf.CellFormat(130, 8, "Net pay", "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 8, item.NetSalary.StringFixed(2), "1", 1, "R", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(0, 5, fmt.Sprintf("Generated %s", time.Now().UTC().Format("2006-01-02 15:04 MST")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("payslip: render item %s: %w", item.ID, err)
	}
	return buf.Bytes(), nil
}

// employeeContributions sums contribution lines borne by the employee so
// the payslip can show the employer-only share.
func employeeContributions(item payroll.PayrollItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range item.Details {
		if line.Category == rates.RuleCategoryContribution && line.Payer == rates.PayerEmployee {
			total = total.Add(line.Amount)
		}
	}
	return total
}
