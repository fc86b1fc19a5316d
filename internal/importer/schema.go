package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexanderramin/smeta/internal/domain"
)

// Document is a parsed estimate file before any ids are assigned. Parents
// always precede their children in Sections and in Items.
type Document struct {
	Sections []SectionImport
	Items    []ItemImport
}

// SectionImport is one section row. Number is the number printed in the
// file; the stored number is always re-derived from tree position.
type SectionImport struct {
	Ref       string
	ParentRef *string
	Number    string
	Name      string
}

type ItemImport struct {
	Ref        string
	SectionRef *string
	ParentRef  *string
	Number     string
	Code       string
	Name       string
	Unit       string
	WorkType   string
	Quantity   float64
	Price      *float64
	Total      *float64
	Resources  []ResourceImport
	SubWorks   []SubWorkImport
}

type ResourceImport struct {
	Kind     string
	Code     string
	Name     string
	Unit     string
	Quantity float64
}

type SubWorkImport struct {
	Code     string
	Name     string
	Quantity float64
}

// RowCount is the number of classifiable rows in the document.
func (d *Document) RowCount() int {
	return len(d.Items)
}

// ParseFile reads an estimate file, choosing the parser by extension.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening estimate file: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ParseCSV(f)
	case ".xlsx":
		return ParseXLSX(f)
	case ".xml":
		return ParseXML(f)
	default:
		return nil, fmt.Errorf("%q: %w", ext, domain.ErrUnsupportedFormat)
	}
}
