package csvimport

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func buildWorkbook(t *testing.T, sheets map[string][][]string, order ...string) *xlsx.File {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range order {
		sh, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, cells := range sheets[name] {
			row := sh.AddRow()
			for _, v := range cells {
				row.AddCell().SetString(v)
			}
		}
	}
	return f
}

func TestReadXLSX(t *testing.T) {
	t.Parallel()

	f := buildWorkbook(t, map[string][][]string{
		"Leads":   {{"Client Name", "Phone"}, {" Ravi ", "111"}},
		"Archive": {{"Client Name"}, {"Old"}},
	}, "Leads", "Archive")
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, f.Save(path))

	rows, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Client Name", "Phone"}, {"Ravi", "111"}}, rows)

	rows, err = ReadXLSX(path, "Archive")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Client Name"}, {"Old"}}, rows)

	_, err = ReadXLSX(path, "Missing")
	assert.Error(t, err)
}

func TestReadXLSXBinary(t *testing.T) {
	t.Parallel()

	f := buildWorkbook(t, map[string][][]string{"Sheet1": {{"Client Name"}, {"Meera"}}}, "Sheet1")
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := ReadXLSXBinary(buf.Bytes(), "")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Client Name"}, {"Meera"}}, rows)

	_, err = ReadXLSXBinary([]byte("not a zip"), "")
	assert.Error(t, err)
}

func TestIsXLSX(t *testing.T) {
	t.Parallel()
	assert.True(t, IsXLSX("Leads.XLSX"))
	assert.False(t, IsXLSX("leads.csv"))
}
