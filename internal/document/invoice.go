package document

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// 税込価格に含まれる消費税率
var TaxRate = decimal.NewFromInt(10)

type InvoiceLine struct {
	Name      string
	SKU       string
	Quantity  int64
	UnitPrice int64
	Total     int64
}

type Invoice struct {
	OrderID       string
	IssuedAt      time.Time
	OrderedAt     time.Time
	CustomerEmail string
	ShippingName  string
	PostalCode    string
	Address       string
	Phone         string
	Lines         []InvoiceLine
	Total         int64
}

// 税込合計から内税額を出す（四捨五入）
func IncludedTax(total int64) int64 {
	t := decimal.NewFromInt(total)
	return t.Mul(TaxRate).Div(TaxRate.Add(decimal.NewFromInt(100))).Round(0).IntPart()
}

// 3桁区切り
func FormatYen(v int64) string {
	s := decimal.NewFromInt(v).StringFixed(0)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg, s = true, s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-JPY " + string(out)
	}
	return "JPY " + string(out)
}

// A4一枚の請求書
func WriteInvoice(w io.Writer, inv Invoice) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+inv.OrderID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Order: "+inv.OrderID, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Ordered: "+inv.OrderedAt.UTC().Format("2006-01-02"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Issued: "+inv.IssuedAt.UTC().Format("2006-01-02"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Ship to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{inv.ShippingName, inv.PostalCode, inv.Address, inv.Phone, inv.CustomerEmail} {
		if line == "" {
			continue
		}
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	widths := []float64{80, 30, 20, 30, 30}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Item", "SKU", "Qty", "Unit", "Total"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range inv.Lines {
		pdf.CellFormat(widths[0], 7, tr(l.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, tr(l.SKU), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprintf("%d", l.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, FormatYen(l.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, FormatYen(l.Total), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	label := widths[0] + widths[1] + widths[2] + widths[3]
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(label, 7, "Total (tax included)", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[4], 7, FormatYen(inv.Total), "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(label, 7, fmt.Sprintf("of which consumption tax (%s%%)", TaxRate.String()), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[4], 7, FormatYen(IncludedTax(inv.Total)), "1", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}
