// Package report turns aggregated sales figures into exportable form.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
)

// WriteCSV writes a sales report as CSV. The output has a totals
// section, a per-status section, and a per-method section, each with
// its own header row.
func WriteCSV(w io.Writer, rep domain.SalesReport) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"from", "to", "invoices", "revenue", "tax"},
		{
			rep.From,
			rep.To,
			fmt.Sprintf("%d", rep.Invoices),
			amount(rep.RevenueCents),
			amount(rep.TaxCents),
		},
		{},
		{"status", "invoices", "total"},
	}
	for _, s := range rep.ByStatus {
		rows = append(rows, []string{string(s.Status), fmt.Sprintf("%d", s.Invoices), amount(s.TotalCents)})
	}
	rows = append(rows, []string{}, []string{"payment_method", "payments", "amount"})
	for _, m := range rep.ByMethod {
		rows = append(rows, []string{m.MethodName, fmt.Sprintf("%d", m.Payments), amount(m.AmountCents)})
	}

	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func amount(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
