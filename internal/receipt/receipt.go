package receipt

import (
	"fmt"
	"strings"

	"kaikari/backend/internal/domain"
)

// Renderer turns a fully populated bill into an opaque document.
type Renderer interface {
	Render(bill domain.Bill) ([]byte, error)
	ContentType() string
	FileName(bill domain.Bill) string
}

var (
	escposInit = []byte{0x1b, 0x40}
	escposCut  = []byte{0x1d, 0x56, 0x41, 0x10}
)

// Escpos renders a plain text thermal receipt.
type Escpos struct {
	Header string
	Footer string
}

func NewEscpos() *Escpos {
	return &Escpos{Header: "Kaikari Vegetable Shop", Footer: "Thank you, visit again"}
}

func (e *Escpos) ContentType() string {
	return "application/octet-stream"
}

func (e *Escpos) FileName(bill domain.Bill) string {
	return fmt.Sprintf("receipt-%s.bin", bill.BillNumber)
}

func (e *Escpos) Render(bill domain.Bill) ([]byte, error) {
	if bill.BillNumber == "" {
		return nil, fmt.Errorf("render receipt: bill number missing")
	}

	lines := e.lines(bill)
	out := append([]byte{}, escposInit...)
	for _, line := range lines {
		out = append(out, []byte(line)...)
		out = append(out, '\n')
	}
	return append(out, escposCut...), nil
}

// Preview returns the receipt text without printer control bytes.
func (e *Escpos) Preview(bill domain.Bill) string {
	return strings.Join(e.lines(bill), "\n")
}

func (e *Escpos) lines(bill domain.Bill) []string {
	title := bill.ShopName
	if title == "" {
		title = e.Header
	}

	lines := []string{
		title,
		"================================",
		"Bill : " + bill.BillNumber,
		"Date : " + bill.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if bill.CustomerName != "" {
		lines = append(lines, "Cust : "+bill.CustomerName)
	}
	lines = append(lines,
		"Type : "+strings.ToUpper(string(bill.BillingType)),
		"--------------------------------",
	)
	for _, line := range bill.Lines {
		name := line.Name
		if line.Grade != "" {
			name = fmt.Sprintf("%s (%s)", name, line.Grade)
		}
		lines = append(lines, name)
		lines = append(lines, fmt.Sprintf("  %.3f kg x %s = %s", line.Quantity, formatCents(line.UnitPriceCents), formatCents(line.LineTotalCents)))
	}
	lines = append(lines,
		"--------------------------------",
		"Subtotal : "+formatCents(bill.SubtotalCents),
		"Tax      : "+formatCents(bill.TaxCents),
		"Total    : "+formatCents(bill.TotalCents),
		"================================",
		e.Footer,
		"",
	)
	return lines
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
