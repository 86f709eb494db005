package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// TemplateHeader is the column set of the downloadable import template.
// price and url are informational and ignored by the importer.
var TemplateHeader = []string{
	FieldTitle, FieldArticle, FieldCategory, "price", FieldAvailability,
	FieldDescription, FieldDetails, FieldImages, "url",
}

var templateExample = []string{
	"Пример товара",
	"ART-001",
	"Архивные модели",
	"0",
	"Наличие:В наличии",
	"Описание товара с детальной информацией",
	"Производитель: Digital Projection | Наименование: <h3>ART-001</h3> | Партномер: <h3>ART-001</h3>",
	"https://example.com/image.jpg",
	"https://example.com/product/art-001/",
}

// WriteTemplateCSV writes the CSV template with a BOM so spreadsheet tools detect UTF-8.
func WriteTemplateCSV(w io.Writer) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(TemplateHeader); err != nil {
		return err
	}
	if err := cw.Write(templateExample); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteTemplateXLSX writes the same template as a single-sheet workbook.
func WriteTemplateXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range [][]string{TemplateHeader, templateExample} {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write template row %d: %w", i+1, err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}
