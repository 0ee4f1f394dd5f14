package csvimport

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX loads a worksheet from a spreadsheet file as a cell matrix. An
// empty sheet name selects the first worksheet.
func ReadXLSX(path, sheet string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "csvimport: open xlsx")
	}
	return sheetRows(f, sheet)
}

// ReadXLSXBinary is ReadXLSX for an uploaded file already held in memory.
func ReadXLSXBinary(data []byte, sheet string) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "csvimport: open xlsx")
	}
	return sheetRows(f, sheet)
}

func sheetRows(f *xlsx.File, name string) ([][]string, error) {
	var sh *xlsx.Sheet
	if name != "" {
		s, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("csvimport: sheet %q not found", name)
		}
		sh = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("csvimport: workbook has no sheets")
		}
		sh = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sh.Rows))
	for _, row := range sh.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// IsXLSX reports whether a file name looks like a spreadsheet workbook.
func IsXLSX(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xlsx")
}
