package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

// ContentTypeXLSX is the MIME type of WriteXLSX output.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook builds an XLSX file with one sheet per table.
func Workbook(tables ...Table) (*excelize.File, error) {
	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return nil, err
	}
	moneyFmt := "#,##0.00"
	qtyFmt := "#,##0.000"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return nil, err
	}
	qtyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &qtyFmt})
	if err != nil {
		return nil, err
	}
	naStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Color: "808080"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, err
	}

	for i, t := range tables {
		sheet := t.Name
		if sheet == "" {
			sheet = fmt.Sprintf("Sheet%d", i+1)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}

		row := 1
		for _, line := range append([]string{t.Title}, t.Meta...) {
			if err := f.SetCellValue(sheet, cellName(1, row), line); err != nil {
				return nil, err
			}
			row++
		}
		row++
		for col, h := range t.Header {
			cell := cellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return nil, err
			}
			_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
		}
		row++
		for _, cells := range t.Rows {
			for col, v := range cells {
				cell := cellName(col+1, row)
				value, style := xlsxValue(v, moneyStyle, qtyStyle, naStyle)
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					return nil, err
				}
				if style != 0 {
					_ = f.SetCellStyle(sheet, cell, cell, style)
				}
			}
			row++
		}
		for col := range t.Header {
			name, _ := excelize.ColumnNumberToName(col + 1)
			_ = f.SetColWidth(sheet, name, name, 18)
		}
	}
	return f, nil
}

// WriteXLSX writes the workbook for tables to w.
func WriteXLSX(w io.Writer, tables ...Table) error {
	f, err := Workbook(tables...)
	if err != nil {
		return fmt.Errorf("export: build workbook: %w", err)
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func xlsxValue(v any, moneyStyle, qtyStyle, naStyle int) (any, int) {
	switch c := v.(type) {
	case money.Money:
		return c.Decimal().InexactFloat64(), moneyStyle
	case money.Quantity:
		return c.Decimal().InexactFloat64(), qtyStyle
	case money.NullMoney:
		if !c.Valid {
			return money.NotApplicable, naStyle
		}
		return c.Money.Decimal().InexactFloat64(), moneyStyle
	case money.NullQuantity:
		if !c.Valid {
			return money.NotApplicable, naStyle
		}
		return c.Quantity.Decimal().InexactFloat64(), qtyStyle
	case int, int64:
		return c, 0
	case time.Time:
		if c.IsZero() {
			return "", 0
		}
		return c.Format(records.DateLayout), 0
	default:
		return text(v), 0
	}
}
