// Package csvimport turns uploaded lead spreadsheets into client records:
// tokenizing, header auto-mapping, row normalization and batch insertion.
package csvimport

import "strings"

// Tokenize splits CSV text into rows of trimmed cells.
//
// Fields may be wrapped in double quotes; a doubled quote inside a quoted
// field is a literal quote. Rows end at \n or \r\n outside quotes. Tokenize
// never fails: an unterminated quote absorbs the rest of the input into the
// current cell. Terminated blank lines yield a single empty cell, while an
// empty unterminated final line is dropped.
//
// encoding/csv is not used because it skips blank lines and rejects bare
// quotes, both of which must be preserved here.
func Tokenize(text string) [][]string {
	var (
		rows     [][]string
		row      []string
		cell     strings.Builder
		inQuotes bool
	)

	endCell := func() {
		row = append(row, strings.TrimSpace(cell.String()))
		cell.Reset()
	}
	endRow := func() {
		endCell()
		rows = append(rows, row)
		row = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					cell.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
				continue
			}
			cell.WriteByte(c)
			continue
		}

		switch {
		case c == '"':
			inQuotes = true
		case c == ',':
			endCell()
		case c == '\n':
			endRow()
		case c == '\r' && i+1 < len(text) && text[i+1] == '\n':
			i++
			endRow()
		default:
			cell.WriteByte(c)
		}
	}

	if len(row) > 0 || strings.TrimSpace(cell.String()) != "" {
		endRow()
	}

	return rows
}
