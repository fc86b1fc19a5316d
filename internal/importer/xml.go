package importer

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type xmlEstimate struct {
	XMLName  xml.Name     `xml:"Estimate"`
	Sections []xmlSection `xml:"Section"`
	Items    []xmlItem    `xml:"Item"`
}

type xmlSection struct {
	Number   string       `xml:"Number,attr"`
	Name     string       `xml:"Name,attr"`
	Sections []xmlSection `xml:"Section"`
	Items    []xmlItem    `xml:"Item"`
}

type xmlItem struct {
	Number    string        `xml:"Number,attr"`
	Code      string        `xml:"Code,attr"`
	Name      string        `xml:"Name,attr"`
	Unit      string        `xml:"Unit,attr"`
	WorkType  string        `xml:"WorkType,attr"`
	Quantity  string        `xml:"Quantity,attr"`
	Price     string        `xml:"Price,attr"`
	Total     string        `xml:"Total,attr"`
	Resources []xmlResource `xml:"Resource"`
	SubWorks  []xmlSubWork  `xml:"SubWork"`
	Items     []xmlItem     `xml:"Item"`
}

type xmlResource struct {
	Kind     string `xml:"Kind,attr"`
	Code     string `xml:"Code,attr"`
	Name     string `xml:"Name,attr"`
	Unit     string `xml:"Unit,attr"`
	Quantity string `xml:"Quantity,attr"`
}

type xmlSubWork struct {
	Code     string `xml:"Code,attr"`
	Name     string `xml:"Name,attr"`
	Quantity string `xml:"Quantity,attr"`
}

// ParseXML reads the nested <Estimate>/<Section>/<Item> layout. Nesting in
// the file is the tree; nested <Item> elements become child items.
func ParseXML(r io.Reader) (*Document, error) {
	var est xmlEstimate
	if err := xml.NewDecoder(r).Decode(&est); err != nil {
		return nil, fmt.Errorf("decoding estimate xml: %w", err)
	}
	b := &xmlBuilder{doc: &Document{}}
	for _, s := range est.Sections {
		if err := b.section(s, nil); err != nil {
			return nil, err
		}
	}
	for _, it := range est.Items {
		if err := b.item(it, nil, nil); err != nil {
			return nil, err
		}
	}
	return b.doc, nil
}

type xmlBuilder struct {
	doc *Document
}

func (b *xmlBuilder) section(s xmlSection, parent *string) error {
	ref := fmt.Sprintf("s%d", len(b.doc.Sections)+1)
	b.doc.Sections = append(b.doc.Sections, SectionImport{
		Ref:       ref,
		ParentRef: parent,
		Number:    strings.TrimSpace(s.Number),
		Name:      cleanCell(s.Name),
	})
	for _, it := range s.Items {
		if err := b.item(it, &ref, nil); err != nil {
			return err
		}
	}
	for _, child := range s.Sections {
		if err := b.section(child, &ref); err != nil {
			return err
		}
	}
	return nil
}

func (b *xmlBuilder) item(x xmlItem, section, parent *string) error {
	ref := fmt.Sprintf("i%d", len(b.doc.Items)+1)
	item := ItemImport{
		Ref:        ref,
		SectionRef: section,
		ParentRef:  parent,
		Number:     strings.TrimSpace(x.Number),
		Code:       cleanCell(x.Code),
		Name:       cleanCell(x.Name),
		Unit:       cleanCell(x.Unit),
		WorkType:   cleanCell(x.WorkType),
	}
	var err error
	if item.Quantity, _, err = parseNumber(x.Quantity); err != nil {
		return fmt.Errorf("item %q quantity: %w", item.Name, err)
	}
	if v, ok, err := parseNumber(x.Price); err != nil {
		return fmt.Errorf("item %q price: %w", item.Name, err)
	} else if ok {
		item.Price = &v
	}
	if v, ok, err := parseNumber(x.Total); err != nil {
		return fmt.Errorf("item %q total: %w", item.Name, err)
	} else if ok {
		item.Total = &v
	}
	for _, r := range x.Resources {
		q, _, err := parseNumber(r.Quantity)
		if err != nil {
			return fmt.Errorf("resource %q quantity: %w", r.Name, err)
		}
		item.Resources = append(item.Resources, ResourceImport{
			Kind: strings.ToLower(strings.TrimSpace(r.Kind)), Code: cleanCell(r.Code),
			Name: cleanCell(r.Name), Unit: cleanCell(r.Unit), Quantity: q,
		})
	}
	for _, w := range x.SubWorks {
		q, _, err := parseNumber(w.Quantity)
		if err != nil {
			return fmt.Errorf("sub-work %q quantity: %w", w.Name, err)
		}
		item.SubWorks = append(item.SubWorks, SubWorkImport{Code: cleanCell(w.Code), Name: cleanCell(w.Name), Quantity: q})
	}
	b.doc.Items = append(b.doc.Items, item)

	for _, child := range x.Items {
		if err := b.item(child, section, &ref); err != nil {
			return err
		}
	}
	return nil
}
