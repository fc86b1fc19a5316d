package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/snapshot"
)

// TreeItem represents a single node in a tree display.
type TreeItem struct {
	Number string // section or position number; "" means don't display
	Title  string
	Level  int
	IsLast bool
	Muted  bool
	Detail string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
)

// RenderTree renders TreeItems as an indented tree using box-drawing
// connectors. Detail badges are right-aligned.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	type lineInfo struct {
		content string
		badge   string
	}

	lines := make([]lineInfo, len(items))
	maxContentWidth := 0

	for idx, item := range items {
		var prefix string
		if item.Level > 0 {
			prefix = strings.Repeat(treePipe, item.Level-1)
			if item.IsLast {
				prefix += treeCorner
			} else {
				prefix += treeBranch
			}
		}

		title := item.Title
		if item.Muted {
			title = Dim(title)
		}
		if item.Number != "" {
			title = StyleBold.Render(item.Number) + " " + title
		}

		content := prefix + title
		lines[idx].content = content
		if item.Detail != "" {
			lines[idx].badge = StyleBlue.Render(fmt.Sprintf("[ %s ]", item.Detail))
		}
		if w := lipgloss.Width(content); w > maxContentWidth {
			maxContentWidth = w
		}
	}

	var b strings.Builder
	for _, li := range lines {
		if li.badge != "" {
			pad := max(maxContentWidth-lipgloss.Width(li.content), 0)
			b.WriteString(li.content + strings.Repeat(" ", pad) + "  " + li.badge + "\n")
		} else {
			b.WriteString(li.content + "\n")
		}
	}
	return b.String()
}

// SectionTree lays out sections by parent link, siblings in sort order.
// Sections must arrive ordered by sort order, as ListByEstimate returns them.
func SectionTree(sections []*domain.Section) []TreeItem {
	children := make(map[string][]*domain.Section)
	known := make(map[string]bool, len(sections))
	for _, s := range sections {
		known[s.ID] = true
	}
	var roots []*domain.Section
	for _, s := range sections {
		if s.ParentSectionID == nil || !known[*s.ParentSectionID] {
			roots = append(roots, s)
			continue
		}
		children[*s.ParentSectionID] = append(children[*s.ParentSectionID], s)
	}

	var out []TreeItem
	var walk func(level int, scope []*domain.Section)
	walk = func(level int, scope []*domain.Section) {
		for i, s := range scope {
			out = append(out, TreeItem{
				Number: s.SectionNumber,
				Title:  s.Name,
				Level:  level,
				IsLast: i == len(scope)-1,
			})
			walk(level+1, children[s.ID])
		}
	}
	walk(0, roots)
	return out
}

// SnapshotTree flattens a snapshot payload into display rows, sections
// first and items below them. Items without a section come last.
func SnapshotTree(p *snapshot.Payload) []TreeItem {
	var out []TreeItem
	var items func(level int, nodes []snapshot.ItemNode, closesScope bool)
	items = func(level int, nodes []snapshot.ItemNode, closesScope bool) {
		for i, n := range nodes {
			pending := n.Classification.Source == domain.SourceUnclassified
			detail := string(n.Classification.Label)
			if pending {
				detail = "?"
			}
			out = append(out, TreeItem{
				Number: n.PositionNumber,
				Title:  itemTitle(n),
				Level:  level,
				IsLast: closesScope && i == len(nodes)-1,
				Muted:  pending,
				Detail: detail,
			})
			items(level+1, n.Children, true)
		}
	}
	var sections func(level int, nodes []snapshot.SectionNode)
	sections = func(level int, nodes []snapshot.SectionNode) {
		for i, s := range nodes {
			out = append(out, TreeItem{
				Number: s.Number,
				Title:  s.Name,
				Level:  level,
				IsLast: i == len(nodes)-1,
			})
			items(level+1, s.Items, len(s.Children) == 0)
			sections(level+1, s.Children)
		}
	}
	sections(0, p.Sections)
	if len(p.ItemsWithoutSection) > 0 {
		out = append(out, TreeItem{Title: Dim("(no section)")})
		items(1, p.ItemsWithoutSection, true)
	}
	return out
}

func itemTitle(n snapshot.ItemNode) string {
	var b strings.Builder
	if n.Code != "" {
		b.WriteString(Dim(n.Code) + " ")
	}
	b.WriteString(n.Name)
	if n.Quantity != 0 || n.Unit != "" {
		b.WriteString(Dim(" × " + FormatQuantity(n.Quantity, n.Unit)))
	}
	return b.String()
}
