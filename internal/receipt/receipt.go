// Package receipt renders finalized invoices as plain-text receipts
// sized for a 48-column thermal printer.
package receipt

import (
	"fmt"
	"strings"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
)

const width = 48

// Options carry the store identity printed on every receipt.
type Options struct {
	StoreName   string
	AddressLine string
	PhoneLine   string
	FooterLine  string
}

// DefaultOptions returns the header/footer used when the caller does
// not configure its own.
func DefaultOptions() Options {
	return Options{
		StoreName:   "PROBILLING",
		AddressLine: "123 Business Street",
		PhoneLine:   "Tel: (555) 123-4567",
		FooterLine:  "Thank you for your business!",
	}
}

// Render formats an invoice as receipt text. Product and payment
// method names are looked up in the supplied maps; missing entries
// fall back to numeric ids so a receipt can always be produced.
func Render(detail domain.InvoiceDetail, productNames map[int64]string, methodNames map[int64]string, opts Options) string {
	var b strings.Builder

	writeCentered(&b, opts.StoreName)
	writeCentered(&b, opts.AddressLine)
	writeCentered(&b, opts.PhoneLine)
	b.WriteString(rule('='))
	writeCentered(&b, "TAX INVOICE")
	b.WriteString(rule('='))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Invoice #: %d\n", detail.Header.ID)
	fmt.Fprintf(&b, "Date: %s\n", detail.Header.InvoiceDate.Format("02-Jan-2006 15:04"))
	b.WriteString(rule('-'))
	b.WriteString("\n")

	fmt.Fprintf(&b, "%-20s %5s %9s %10s\n", "Item", "Qty", "Price", "Total")
	b.WriteString(rule('-'))

	var subtotal int64
	for _, line := range detail.Lines {
		name, ok := productNames[line.ProductID]
		if !ok {
			name = fmt.Sprintf("#%d", line.ProductID)
		}
		if len(name) > 20 {
			name = name[:17] + "..."
		}
		lineTotal := line.PriceAtSaleCents * int64(line.Quantity)
		subtotal += lineTotal
		fmt.Fprintf(&b, "%-20s %5d %9s %10s\n", name, line.Quantity, Cents(line.PriceAtSaleCents), Cents(lineTotal))
	}
	b.WriteString(rule('-'))

	fmt.Fprintf(&b, "%36s %10s\n", "Subtotal:", Cents(subtotal))
	if discount := subtotal + detail.Header.TaxCents - detail.Header.TotalCents; discount > 0 {
		fmt.Fprintf(&b, "%36s %10s\n", fmt.Sprintf("Discount (%.1f%%):", detail.Header.DiscountPercent), "-"+Cents(discount))
	}
	if detail.Header.TaxCents > 0 {
		fmt.Fprintf(&b, "%36s %10s\n", "Tax:", Cents(detail.Header.TaxCents))
	}
	fmt.Fprintf(&b, "%36s %10s\n", "TOTAL:", Cents(detail.Header.TotalCents))
	b.WriteString(rule('='))

	var paid int64
	for _, p := range detail.Payments {
		name, ok := methodNames[p.MethodID]
		if !ok {
			name = fmt.Sprintf("method #%d", p.MethodID)
		}
		paid += p.AmountCents
		fmt.Fprintf(&b, "%36s %10s\n", name+":", Cents(p.AmountCents))
	}
	if paid > detail.Header.TotalCents {
		fmt.Fprintf(&b, "%36s %10s\n", "Change:", Cents(paid-detail.Header.TotalCents))
	}
	fmt.Fprintf(&b, "Status: %s\n", detail.Header.PaymentStatus)
	b.WriteString(rule('='))
	b.WriteString("\n")

	if opts.FooterLine != "" {
		writeCentered(&b, opts.FooterLine)
	}
	writeCentered(&b, "Please come again")
	b.WriteString(rule('='))

	return b.String()
}

// Cents formats an amount of cents as a decimal string, e.g. 1050 -> "10.50".
func Cents(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func writeCentered(b *strings.Builder, s string) {
	if len(s) >= width {
		b.WriteString(s)
		b.WriteString("\n")
		return
	}
	pad := (width - len(s)) / 2
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(s)
	b.WriteString("\n")
}

func rule(c byte) string {
	return strings.Repeat(string(c), width) + "\n"
}
