package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
)

func TestWriteCSV(t *testing.T) {
	rep := domain.SalesReport{
		From:         "2026-08-01",
		To:           "2026-09-01",
		Invoices:     3,
		RevenueCents: 5400,
		TaxCents:     400,
		ByStatus: []domain.StatusSales{
			{Status: domain.StatusPaid, Invoices: 2, TotalCents: 4900},
			{Status: domain.StatusPending, Invoices: 1, TotalCents: 500},
		},
		ByMethod: []domain.MethodSales{
			{MethodName: "CASH", Payments: 1, AmountCents: 2700},
			{MethodName: "CARD", Payments: 1, AmountCents: 2200},
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rep); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read back csv: %v", err)
	}

	if got := rows[0]; got[0] != "from" || got[4] != "tax" {
		t.Fatalf("unexpected header row %v", got)
	}
	if got := rows[1]; got[0] != "2026-08-01" || got[2] != "3" || got[3] != "54.00" || got[4] != "4.00" {
		t.Fatalf("unexpected totals row %v", got)
	}

	var paidRow, cashRow []string
	for _, row := range rows {
		if len(row) > 0 && row[0] == "PAID" {
			paidRow = row
		}
		if len(row) > 0 && row[0] == "CASH" {
			cashRow = row
		}
	}
	if paidRow == nil || paidRow[1] != "2" || paidRow[2] != "49.00" {
		t.Fatalf("unexpected PAID row %v", paidRow)
	}
	if cashRow == nil || cashRow[1] != "1" || cashRow[2] != "27.00" {
		t.Fatalf("unexpected CASH row %v", cashRow)
	}
}

func TestWriteCSVEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, domain.SalesReport{From: "2026-08-01", To: "2026-09-01"}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected header rows even for an empty report")
	}
}
