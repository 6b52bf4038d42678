package ingest

import (
	"bytes"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// win1252Undefined are the code points Windows-1252 leaves unassigned. A
// byte from this set means the file is not really CP-1252, so the decode
// chain moves on instead of inventing characters.
var win1252Undefined = [256]bool{0x81: true, 0x8D: true, 0x8F: true, 0x90: true, 0x9D: true}

// DecodeText decodes raw file bytes trying, in order: UTF-8 with BOM,
// plain UTF-8, Windows-1252, Latin-1. It returns the text and the name of
// the encoding that won. Municipal open-data exports routinely mix all
// four, sometimes across files from the same portal.
func DecodeText(data []byte) (text, encoding string, err error) {
	if bytes.HasPrefix(data, utf8BOM) {
		rest := data[len(utf8BOM):]
		if utf8.Valid(rest) {
			return string(rest), "utf-8-bom", nil
		}
	}
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	if !hasWin1252Undefined(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err == nil {
			return string(decoded), "windows-1252", nil
		}
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", eris.Wrap(err, "ingest: undecodable input")
	}
	return string(decoded), "latin-1", nil
}

func hasWin1252Undefined(data []byte) bool {
	for _, b := range data {
		if win1252Undefined[b] {
			return true
		}
	}
	return false
}
