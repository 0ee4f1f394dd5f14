package csvimport

import (
	"bytes"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode reads an uploaded file as text. An empty charset means UTF-8;
// otherwise any WHATWG encoding label (e.g. "windows-1252") is accepted.
// A leading UTF-8 byte order mark is removed.
func Decode(r io.Reader, charset string) (string, error) {
	charset = strings.TrimSpace(charset)
	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "utf8") {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return "", eris.Wrapf(err, "csvimport: unsupported charset %q", charset)
		}
		r = enc.NewDecoder().Reader(r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "csvimport: read input")
	}
	return string(bytes.TrimPrefix(data, utf8BOM)), nil
}
