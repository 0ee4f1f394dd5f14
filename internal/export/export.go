// Package export writes client lists as CSV or XLSX. Headers use the
// field labels the import auto-mapper recognizes, so an export can be
// re-imported without a manual mapping.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/estate-crm/internal/model"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

var exportFields = []model.Field{
	model.FieldClientName,
	model.FieldCustomerNumber,
	model.FieldLeadStage,
	model.FieldLeadType,
	model.FieldLocationCategory,
	model.FieldCallingComment,
	model.FieldExpectedVisitDate,
	model.FieldDealStatus,
}

// Header returns the column labels.
func Header() []string {
	h := make([]string, 0, len(exportFields)+2)
	for _, f := range exportFields {
		h = append(h, f.Label())
	}
	return append(h, "Sheet", "Created At")
}

// Row renders one client. Enumerated values are written as labels.
func Row(c model.Client) []string {
	row := make([]string, 0, len(exportFields)+2)
	for _, f := range exportFields {
		row = append(row, deref(model.DisplayValue(f, c.Value(f))))
	}
	return append(row, deref(c.SheetID), c.CreatedAt.UTC().Format(time.RFC3339))
}

// Write renders clients to w in the given format.
func Write(w io.Writer, format Format, clients []model.Client) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, clients)
	default:
		return WriteCSV(w, clients)
	}
}

// WriteCSV writes a header and one row per client.
func WriteCSV(w io.Writer, clients []model.Client) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header()); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, c := range clients {
		if err := cw.Write(Row(c)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook named "Clients".
func WriteXLSX(w io.Writer, clients []model.Client) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Clients")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, Header())
	for _, c := range clients {
		addRow(sheet, Row(c))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
