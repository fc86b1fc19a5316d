package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

type column int

const (
	colNumber column = iota
	colCode
	colName
	colUnit
	colQuantity
	colPrice
	colTotal
	colType
	colWorkType
)

// headerAliases maps normalized header text to a column. Keys are produced
// by normalizeHeader.
var headerAliases = map[string]column{
	"№": colNumber, "№пп": colNumber, "пп": colNumber, "#": colNumber, "no": colNumber,
	"number": colNumber, "номер": colNumber, "pos": colNumber, "position": colNumber,

	"code": colCode, "шифр": colCode, "обоснование": colCode, "шифррасценки": colCode,
	"код": colCode, "шифрикодресурса": colCode, "шифрнормы": colCode,

	"name": colName, "наименование": colName, "наименованиеработизатрат": colName,
	"description": colName, "наименованиеработ": colName,

	"unit": colUnit, "едизм": colUnit, "единицаизмерения": colUnit, "ед": colUnit,

	"quantity": colQuantity, "qty": colQuantity, "количество": colQuantity,
	"колво": colQuantity, "объем": colQuantity, "объём": colQuantity,

	"price": colPrice, "цена": colPrice, "unitprice": colPrice, "стоимостьединицы": colPrice,
	"ценазаединицу": colPrice,

	"total": colTotal, "всего": colTotal, "сумма": colTotal, "стоимость": colTotal,
	"стоимостьвсего": colTotal,

	"type": colType, "тип": colType,

	"worktype": colWorkType, "видработ": colWorkType,
}

func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '№' || r == '#' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// maxHeaderScan bounds how many leading rows may precede the header
// (titles, approval stamps).
const maxHeaderScan = 30

type header map[column]int

func findHeader(rows [][]string) (header, int, error) {
	for i := 0; i < len(rows) && i < maxHeaderScan; i++ {
		h := header{}
		for j, cell := range rows[i] {
			if c, ok := headerAliases[normalizeHeader(cell)]; ok {
				if _, dup := h[c]; !dup {
					h[c] = j
				}
			}
		}
		if _, ok := h[colName]; ok && len(h) >= 2 {
			return h, i, nil
		}
	}
	return nil, 0, fmt.Errorf("no header row with a name column in the first %d rows", maxHeaderScan)
}

func (h header) cell(row []string, c column) string {
	j, ok := h[c]
	if !ok || j >= len(row) {
		return ""
	}
	return cleanCell(row[j])
}

func cleanCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var sectionNumberRe = regexp.MustCompile(`(?i)^(?:раздел|section)\s*№?\s*(\d+(?:\.\d+)*)\.?\s*`)

func isSectionRow(h header, row []string) bool {
	switch strings.ToLower(h.cell(row, colType)) {
	case "section", "раздел":
		return true
	case "":
	default:
		return false
	}
	if h.cell(row, colCode) != "" || h.cell(row, colQuantity) != "" {
		return false
	}
	name := strings.ToLower(h.cell(row, colName))
	return strings.HasPrefix(name, "раздел") || strings.HasPrefix(name, "section")
}

// sectionNumber takes the number column, falling back to the number printed
// in the section title ("Раздел 1.2. Кровля").
func sectionNumber(h header, row []string) string {
	if n := strings.TrimSuffix(h.cell(row, colNumber), "."); n != "" {
		return n
	}
	if m := sectionNumberRe.FindStringSubmatch(h.cell(row, colName)); m != nil {
		return m[1]
	}
	return ""
}

func parentNumber(number string) string {
	if i := strings.LastIndex(number, "."); i > 0 {
		return number[:i]
	}
	return ""
}

// parseNumber accepts "1 234,50", "1234.5", "1,234.50" and an empty cell
// (zero). A comma is the decimal separator unless a dot is also present, in
// which case commas group thousands.
func parseNumber(s string) (float64, bool, error) {
	s = strings.ReplaceAll(cleanCell(s), " ", "")
	if s == "" || s == "-" {
		return 0, false, nil
	}
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number %q", s)
	}
	return v, true, nil
}

// assembleRows turns a sheet of cells into a Document. Section rows open
// scopes; nesting follows dotted numbers, so "1.2" lands under "1". An item
// row without a position number right after a numbered item is that item's
// child. Blank rows are skipped.
func assembleRows(rows [][]string) (*Document, error) {
	h, start, err := findHeader(rows)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	sectionByNumber := make(map[string]string)
	var (
		current      *string
		lastNumbered *string
	)
	for i := start + 1; i < len(rows); i++ {
		row := rows[i]
		if blankRow(row) {
			continue
		}
		line := i + 1

		if isSectionRow(h, row) {
			s := SectionImport{
				Ref:    fmt.Sprintf("s%d", len(doc.Sections)+1),
				Number: sectionNumber(h, row),
				Name:   h.cell(row, colName),
			}
			if p, ok := sectionByNumber[parentNumber(s.Number)]; ok && s.Number != "" {
				s.ParentRef = &p
			}
			if s.Number != "" {
				sectionByNumber[s.Number] = s.Ref
			}
			doc.Sections = append(doc.Sections, s)
			ref := s.Ref
			current, lastNumbered = &ref, nil
			continue
		}

		name := h.cell(row, colName)
		if name == "" {
			continue
		}
		item := ItemImport{
			Ref:        fmt.Sprintf("i%d", len(doc.Items)+1),
			SectionRef: current,
			Number:     h.cell(row, colNumber),
			Code:       h.cell(row, colCode),
			Name:       name,
			Unit:       h.cell(row, colUnit),
			WorkType:   h.cell(row, colWorkType),
		}
		if item.Quantity, _, err = parseNumber(h.cell(row, colQuantity)); err != nil {
			return nil, fmt.Errorf("row %d quantity: %w", line, err)
		}
		if v, ok, err := parseNumber(h.cell(row, colPrice)); err != nil {
			return nil, fmt.Errorf("row %d price: %w", line, err)
		} else if ok {
			item.Price = &v
		}
		if v, ok, err := parseNumber(h.cell(row, colTotal)); err != nil {
			return nil, fmt.Errorf("row %d total: %w", line, err)
		} else if ok {
			item.Total = &v
		}

		if item.Number == "" && lastNumbered != nil {
			parent := *lastNumbered
			item.ParentRef = &parent
		} else if item.Number != "" {
			ref := item.Ref
			lastNumbered = &ref
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if cleanCell(c) != "" {
			return false
		}
	}
	return true
}
