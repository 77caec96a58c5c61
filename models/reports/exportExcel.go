package reports

import (
	"time"

	"github.com/xuri/excelize/v2"
)

var promotionalSchemeReportHeaders = []string{
	"Scheme Name", "Party Type", "Party Name", "Apply On", "Item / Group",
	"Qualification", "Minimum Amount", "Discount %", "Minimum Qty", "Free Qty",
	"Valid From", "Valid To", "Total Amount", "Total Qty", "Eligibility", "Active",
}

// ExportPromotionalSchemeReportExcel renders the report rows into an
// xlsx workbook with one sheet. The caller owns writing/closing the
// file.
func ExportPromotionalSchemeReportExcel(rows []*PromotionalSchemeReportRow) (*excelize.File, error) {

	const sheet = "Promotional Schemes"

	f := excelize.NewFile()
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, err
	}

	for col, header := range promotionalSchemeReportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		values := []interface{}{
			row.SchemeName,
			row.PartyType,
			row.PartyName,
			string(row.ApplyOn),
			row.ItemOrGroup,
			string(row.Qualification),
			row.MinimumAmount.InexactFloat64(),
			row.DiscountPercentage.InexactFloat64(),
			row.MinimumQuantity.InexactFloat64(),
			row.FreeQuantity.InexactFloat64(),
			dateCell(row.ValidFrom),
			dateCell(row.ValidTo),
			row.TotalAmount.InexactFloat64(),
			row.TotalQty.InexactFloat64(),
			string(row.Eligibility),
			row.IsActive,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	// widen the name columns a little
	if err := f.SetColWidth(sheet, "A", "F", 22); err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		if err := f.SetCellValue(sheet, "A2", "no rows"); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
