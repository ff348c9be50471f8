package document

import (
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const orderSheet = "orders"

var orderHeader = []any{
	"order_id", "ordered_at", "customer_email", "status", "payment_status",
	"product", "sku", "quantity", "unit_price", "line_total", "order_total",
}

// 注文明細1件につき1行
type OrderExportRow struct {
	OrderID       string
	OrderedAt     time.Time
	CustomerEmail string
	Status        string
	PaymentStatus string
	ProductName   string
	SKU           string
	Quantity      int64
	UnitPrice     int64
	LineTotal     int64
	OrderTotal    int64
}

func WriteOrderExport(w io.Writer, rows []OrderExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", orderSheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(orderSheet)
	if err != nil {
		return err
	}
	if err := sw.SetColWidth(1, len(orderHeader), 18); err != nil {
		return err
	}
	if err := sw.SetRow("A1", orderHeader); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []any{
			r.OrderID,
			r.OrderedAt.UTC().Format(time.RFC3339),
			r.CustomerEmail,
			r.Status,
			r.PaymentStatus,
			r.ProductName,
			r.SKU,
			r.Quantity,
			r.UnitPrice,
			r.LineTotal,
			r.OrderTotal,
		}); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}

// 書き出したファイルを読み戻す（テスト・CLIの確認用）
func ReadOrderExport(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetRows(orderSheet)
}
