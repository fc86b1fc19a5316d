package formatter

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/snapshot"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func strp(s string) *string { return &s }

func TestRenderTable_AlignsCyrillic(t *testing.T) {
	out := stripANSI(RenderTable([]string{"#", "NAME"}, [][]string{
		{"1", "Разработка грунта"},
		{"10", "Песок"},
	}))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "#   NAME", lines[0])
	assert.Equal(t, "1   Разработка грунта", lines[2])
	assert.Equal(t, "10  Песок", lines[3])
}

func TestRenderTable_NoHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(nil, [][]string{{"x"}}))
}

func TestSectionTree_NestsByParent(t *testing.T) {
	sections := []*domain.Section{
		{ID: "a", SectionNumber: "1", Name: "Земляные работы"},
		{ID: "b", SectionNumber: "2", Name: "Фундаменты"},
		{ID: "a1", SectionNumber: "1.1", Name: "Засыпка", ParentSectionID: strp("a")},
		{ID: "orphan", SectionNumber: "9", Name: "Сирота", ParentSectionID: strp("gone")},
	}
	got := stripANSI(RenderTree(SectionTree(sections)))
	assert.Equal(t, "1 Земляные работы\n└─ 1.1 Засыпка\n2 Фундаменты\n9 Сирота\n", got)
}

func TestSnapshotTree(t *testing.T) {
	price := 650.25
	p := &snapshot.Payload{
		Sections: []snapshot.SectionNode{{
			Number: "1", Name: "Земляные работы",
			Items: []snapshot.ItemNode{{
				PositionNumber: "1", Code: "ГЭСН01-01-001-01", Name: "Разработка грунта", Quantity: 1.5, Unit: "1000 м3",
				Classification: snapshot.Classification{Label: domain.LabelWork, Confidence: 1, Source: domain.SourceRegexStrict},
				Children: []snapshot.ItemNode{{Name: "Затраты труда", Quantity: 8,
					Classification: snapshot.Classification{Label: domain.LabelWork, Source: domain.SourceUnclassified}}},
			}},
		}},
		ItemsWithoutSection: []snapshot.ItemNode{{Name: "Песок", Quantity: 10, Price: &price,
			Classification: snapshot.Classification{Label: domain.LabelMaterial, Source: domain.SourceAI}}},
	}
	items := SnapshotTree(p)
	assert.Len(t, items, 5)
	assert.Equal(t, 2, items[2].Level)
	assert.True(t, items[2].Muted)
	assert.Equal(t, "?", items[2].Detail)

	out := stripANSI(RenderTree(items))
	assert.Contains(t, out, "1 Земляные работы")
	assert.Contains(t, out, "ГЭСН01-01-001-01 Разработка грунта × 1.5 1000 м3")
	assert.Contains(t, out, "[ work ]")
	assert.Contains(t, out, "(no section)")
	assert.Contains(t, out, "[ material ]")
}

func TestClassificationBadge(t *testing.T) {
	assert.Equal(t, "? unclassified", stripANSI(ClassificationBadge(domain.LabelWork, 0, domain.SourceUnclassified)))
	assert.Equal(t, "material 0.90 regex_loose", stripANSI(ClassificationBadge(domain.LabelMaterial, 0.9, domain.SourceRegexLoose)))
}

func TestFormatImportSession(t *testing.T) {
	out := stripANSI(FormatImportSession(&domain.ImportSession{
		ID: "s1", FileName: "smeta.xlsx", Status: domain.ImportCompleted,
		TotalRows: 10, ClassifiedRows: 7, UnclassifiedRows: 3,
	}))
	assert.Contains(t, out, "✔ Completed")
	assert.Contains(t, out, "rows: 10")
	assert.Contains(t, out, "needs review: 3")

	failed := stripANSI(FormatImportSession(&domain.ImportSession{ID: "s2", Status: domain.ImportFailed, Error: "cancelled"}))
	assert.Contains(t, failed, "error: cancelled")
}

func TestFormatReviewList(t *testing.T) {
	assert.Contains(t, stripANSI(FormatReviewList(nil)), "Every row is classified")

	out := stripANSI(FormatReviewList([]*domain.LineItem{{ID: "0123456789", Name: "Прочие", Quantity: 2}}))
	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "Прочие")
	assert.Contains(t, out, "1 rows need review")
}

func TestFormatQuantityAndPrice(t *testing.T) {
	assert.Equal(t, "1.5 м3", FormatQuantity(1.5, "м3"))
	assert.Equal(t, "10", FormatQuantity(10, ""))
	p := 12500.0
	assert.Equal(t, "12500.00", FormatPrice(&p))
	assert.Equal(t, "--", stripANSI(FormatPrice(nil)))
}

func TestHumanTimestampFrom(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Just now", HumanTimestampFrom(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", HumanTimestampFrom(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", HumanTimestampFrom(now.Add(-3*time.Hour), now))
	assert.Equal(t, "Feb 20, 2026", HumanTimestampFrom(now.AddDate(0, 0, -9), now))
}
