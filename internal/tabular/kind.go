package tabular

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Kind is the container format of a source file.
type Kind int

const (
	KindUnknown Kind = iota
	KindDelimited
	KindSpreadsheet
	KindLegacySpreadsheet
)

func (k Kind) String() string {
	switch k {
	case KindDelimited:
		return "delimited"
	case KindSpreadsheet:
		return "spreadsheet"
	case KindLegacySpreadsheet:
		return "legacy-spreadsheet"
	default:
		return "unknown"
	}
}

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectKind picks the container format. A declared kind wins, then the
// file-name extension, then the leading magic bytes; anything else is treated
// as delimited text. The hint never affects how cells are interpreted.
func DetectKind(declared Kind, name string, data []byte) Kind {
	if declared != KindUnknown {
		return declared
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt", ".tab":
		return KindDelimited
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return KindSpreadsheet
	case ".xls":
		return KindLegacySpreadsheet
	}
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return KindSpreadsheet
	case bytes.HasPrefix(data, cfbMagic):
		return KindLegacySpreadsheet
	}
	return KindDelimited
}
