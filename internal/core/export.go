package core

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportSheetName is the single sheet of an exported workbook.
const ExportSheetName = "Results"

// ExportFileName is the download name of the result workbook.
const ExportFileName = "result.xlsx"

// XLSXContentType is the MIME type of exported workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportColumn struct {
	header string
	value  func(ResultRow) any
}

// exportColumns follows ResultRow field order.
var exportColumns = []exportColumn{
	{"mpn", func(r ResultRow) any { return r.MPN }},
	{"manufacturer", func(r ResultRow) any { return r.Manufacturer }},
	{"seller_name", func(r ResultRow) any { return r.SellerName }},
	{"stock", func(r ResultRow) any { return amountCell(r.Stock) }},
	{"requested_quantity", func(r ResultRow) any { return amountCell(r.RequestedQuantity) }},
	{"offer_quantity", func(r ResultRow) any { return amountCell(r.OfferQuantity) }},
	{"price", func(r ResultRow) any { return amountCell(r.Price) }},
	{"currency", func(r ResultRow) any { return r.Currency }},
	{"delivery_coef", func(r ResultRow) any { return amountCell(r.DeliveryCoef) }},
	{"markup", func(r ResultRow) any { return amountCell(r.Markup) }},
	{"target_price_purchasing", func(r ResultRow) any { return amountCell(r.TargetPricePurchasing) }},
	{"cost_with_delivery", func(r ResultRow) any { return amountCell(r.CostWithDelivery) }},
	{"target_price_sales", func(r ResultRow) any { return amountCell(r.TargetPriceSales) }},
	{"status", func(r ResultRow) any { return r.Status }},
}

func amountCell(a Amount) any {
	switch {
	case a.Valid:
		return a.Value
	case a.Raw != "":
		return a.Raw
	default:
		return nil
	}
}

// ExportResults writes all rows (not just the current page) to an xlsx
// workbook with a header row followed by one row per record.
func ExportResults(rows []ResultRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyResult
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FEF3C7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col.header
	}
	if err := f.SetSheetRow(ExportSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportColumns))
	if err := f.SetCellStyle(ExportSheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, row := range rows {
		values := make([]any, len(exportColumns))
		for j, col := range exportColumns {
			values[j] = col.value(row)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(ExportSheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
