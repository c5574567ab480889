package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
)

func sampleDetail() domain.InvoiceDetail {
	return domain.InvoiceDetail{
		Header: domain.InvoiceHeader{
			ID:              42,
			InvoiceDate:     time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC),
			DiscountPercent: 10,
			TaxCents:        0,
			TotalCents:      2700,
			PaymentStatus:   domain.StatusPaid,
		},
		Lines: []domain.InvoiceLine{
			{ID: 1, InvoiceID: 42, ProductID: 2, Quantity: 2, PriceAtSaleCents: 500},
			{ID: 2, InvoiceID: 42, ProductID: 3, Quantity: 1, PriceAtSaleCents: 2000},
		},
		Payments: []domain.PaymentRecord{
			{ID: 1, InvoiceID: 42, MethodID: 1, AmountCents: 3000},
		},
	}
}

func TestRender(t *testing.T) {
	names := map[int64]string{2: "Spiral Notebook", 3: "Desk Lamp"}
	methods := map[int64]string{1: "CASH"}

	text := Render(sampleDetail(), names, methods, DefaultOptions())

	for _, want := range []string{
		"Invoice #: 42",
		"30-Aug-2026 14:05",
		"Spiral Notebook",
		"Desk Lamp",
		"Subtotal:",
		"30.00",
		"Discount (10.0%):",
		"-3.00",
		"TOTAL:",
		"27.00",
		"CASH:",
		"Change:",
		"3.00",
		"Status: PAID",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("receipt missing %q:\n%s", want, text)
		}
	}
}

func TestRenderFallsBackToIDs(t *testing.T) {
	text := Render(sampleDetail(), nil, nil, DefaultOptions())

	if !strings.Contains(text, "#2") || !strings.Contains(text, "#3") {
		t.Fatalf("expected product id fallbacks:\n%s", text)
	}
	if !strings.Contains(text, "method #1") {
		t.Fatalf("expected payment method fallback:\n%s", text)
	}
}

func TestRenderTruncatesLongNames(t *testing.T) {
	names := map[int64]string{2: "An Extremely Long Product Name That Overflows", 3: "Desk Lamp"}

	text := Render(sampleDetail(), names, map[int64]string{1: "CASH"}, DefaultOptions())

	if strings.Contains(text, "An Extremely Long Product Name That Overflows") {
		t.Fatalf("expected long name to be truncated:\n%s", text)
	}
	if !strings.Contains(text, "An Extremely Long...") {
		t.Fatalf("expected truncated name with ellipsis:\n%s", text)
	}
}

func TestCents(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{150, "1.50"},
		{2700, "27.00"},
		{-300, "-3.00"},
	}
	for _, tc := range cases {
		if got := Cents(tc.in); got != tc.want {
			t.Fatalf("Cents(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
