package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// SheetName is the worksheet the XLSX export writes.
const SheetName = "Leads"

// XLSXColumns extends Columns with the pipeline fields.
var XLSXColumns = append(append([]string{}, Columns...), "Score", "Status")

// BuildXLSX lays leads out as a single-sheet workbook.
func BuildXLSX(leads []model.Lead) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range XLSXColumns {
		header.AddCell().SetString(c)
	}

	for _, l := range leads {
		row := sheet.AddRow()
		for _, v := range Row(l) {
			row.AddCell().SetString(v)
		}
		row.AddCell().SetInt(l.Score)
		row.AddCell().SetString(string(l.Status))
	}
	return f, nil
}

// WriteXLSX writes leads as an .xlsx workbook.
func WriteXLSX(w io.Writer, leads []model.Lead) error {
	f, err := BuildXLSX(leads)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write xlsx")
}
