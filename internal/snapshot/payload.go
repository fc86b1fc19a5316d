package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderramin/smeta/internal/domain"
)

// FormatVersion identifies the payload layout. Readers reject anything newer.
const FormatVersion = 1

type Payload struct {
	Version             int           `json:"version"`
	EstimateID          string        `json:"estimate_id"`
	GeneratedAt         time.Time     `json:"generated_at"`
	Sections            []SectionNode `json:"sections"`
	ItemsWithoutSection []ItemNode    `json:"itemsWithoutSection"`
}

type SectionNode struct {
	ID        string        `json:"id"`
	Number    string        `json:"number"`
	Name      string        `json:"name"`
	SortOrder int           `json:"sort_order"`
	Items     []ItemNode    `json:"items"`
	Children  []SectionNode `json:"children"`
}

type ItemNode struct {
	ID             string         `json:"id"`
	PositionNumber string         `json:"position_number,omitempty"`
	Code           string         `json:"code,omitempty"`
	Name           string         `json:"name"`
	Quantity       float64        `json:"quantity"`
	Price          *float64       `json:"price,omitempty"`
	Unit           string         `json:"unit,omitempty"`
	WorkType       string         `json:"work_type,omitempty"`
	Classification Classification `json:"classification"`
	Resources      []Resource     `json:"resources"`
	Totals         []Total        `json:"totals"`
	SubWorks       []SubWork      `json:"sub_works"`
	Children       []ItemNode     `json:"children"`
}

type Classification struct {
	Label      domain.Label  `json:"label"`
	Confidence float64       `json:"confidence"`
	Source     domain.Source `json:"source"`
}

type Resource struct {
	Kind     domain.ResourceKind `json:"kind"`
	Code     string              `json:"code,omitempty"`
	Name     string              `json:"name"`
	Unit     string              `json:"unit,omitempty"`
	Quantity float64             `json:"quantity"`
}

type Total struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type SubWork struct {
	Code     string  `json:"code,omitempty"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// Counts returns the number of sections and items anywhere in the payload.
func (p *Payload) Counts() (sections, items int) {
	var walkItems func([]ItemNode)
	walkItems = func(nodes []ItemNode) {
		for i := range nodes {
			items++
			walkItems(nodes[i].Children)
		}
	}
	var walkSections func([]SectionNode)
	walkSections = func(nodes []SectionNode) {
		for i := range nodes {
			sections++
			walkItems(nodes[i].Items)
			walkSections(nodes[i].Children)
		}
	}
	walkSections(p.Sections)
	walkItems(p.ItemsWithoutSection)
	return sections, items
}

func Encode(p *Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if p.Version > FormatVersion {
		return nil, fmt.Errorf("snapshot format version %d is newer than %d", p.Version, FormatVersion)
	}
	return &p, nil
}
