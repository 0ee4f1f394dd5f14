package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_UTF8StripsBOM(t *testing.T) {
	t.Parallel()
	got, err := Decode(strings.NewReader("\xEF\xBB\xBFClient Name\nRavi"), "")
	require.NoError(t, err)
	assert.Equal(t, "Client Name\nRavi", got)
}

func TestDecode_Windows1252(t *testing.T) {
	t.Parallel()
	// 0xE9 is "é" in windows-1252.
	got, err := Decode(strings.NewReader("Andr\xE9"), "windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "André", got)

	got, err = Decode(strings.NewReader("Andr\xE9"), "latin1")
	require.NoError(t, err)
	assert.Equal(t, "André", got)
}

func TestDecode_UnknownCharset(t *testing.T) {
	t.Parallel()
	_, err := Decode(strings.NewReader("x"), "klingon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}
