package portal

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeExport normalizes raw export bytes to plain UTF-8. Portal downloads
// arrive as UTF-8 with or without a BOM, as UTF-16 with a BOM, or as
// Windows-1252 from older export paths; the last is assumed whenever the
// BOM-stripped bytes are not valid UTF-8.
func decodeExport(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return nil, fmt.Errorf("decode BOM: %w", err)
	}
	if utf8.Valid(out) {
		return out, nil
	}
	out, _, err = transform.Bytes(charmap.Windows1252.NewDecoder(), out)
	if err != nil {
		return nil, fmt.Errorf("decode windows-1252: %w", err)
	}
	return out, nil
}
