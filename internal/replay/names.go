package replay

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/width"
)

// decodeShiftJIS decodes a fixed-width, NUL padded Shift-JIS field. In-game
// names and connect codes may use full-width forms (connect codes carry a
// full-width '#'), which are folded to their narrow equivalents.
func decodeShiftJIS(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	if len(field) == 0 {
		return ""
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(field)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(width.Narrow.String(string(decoded)))
}
