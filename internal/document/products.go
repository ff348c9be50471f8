package document

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrEmptySheet = errors.New("sheet has no header row")

// 取り込み用の列（ヘッダ名は大文字小文字を区別しない）
var ProductColumns = []string{
	"name", "sku", "slug", "description", "price",
	"category", "quantity", "is_active", "is_featured",
}

// 1行分。値は文字列のまま返して、検証は呼び出し側。
type ProductRow struct {
	// シート上の行番号（ヘッダが1）
	Line        int
	Name        string
	SKU         string
	Slug        string
	Description string
	Price       string
	Category    string
	Quantity    string
	IsActive    string
	IsFeatured  string
}

// 先頭シートを読む。空行は飛ばす。
func ReadProductRows(r io.Reader) ([]ProductRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "sku", "price"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]ProductRow, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, ProductRow{
			Line:        n + 2,
			Name:        cell(row, "name"),
			SKU:         cell(row, "sku"),
			Slug:        cell(row, "slug"),
			Description: cell(row, "description"),
			Price:       cell(row, "price"),
			Category:    cell(row, "category"),
			Quantity:    cell(row, "quantity"),
			IsActive:    cell(row, "is_active"),
			IsFeatured:  cell(row, "is_featured"),
		})
	}
	return out, nil
}

// テスト・サンプル用にヘッダ付きのシートを書く
func WriteProductRows(w io.Writer, rows []ProductRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := make([]any, len(ProductColumns))
	for i, c := range ProductColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.Name, r.SKU, r.Slug, r.Description, r.Price, r.Category, r.Quantity, r.IsActive, r.IsFeatured}
		if err := f.SetSheetRow(sheet, cellName, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
