package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/smeta/internal/domain"
)

// FormatEstimateList renders estimates as a table.
func FormatEstimateList(estimates []*domain.Estimate) string {
	if len(estimates) == 0 {
		return Dim("No estimates yet. Create one with: smeta estimate create --name ...") + "\n"
	}
	rows := make([][]string, 0, len(estimates))
	for _, e := range estimates {
		snap := Dim("none")
		if e.HasSnapshot() {
			snap = "v" + strconv.Itoa(e.SnapshotVersion)
			if e.SnapshotAt != nil {
				snap += Dim(" " + HumanTimestamp(*e.SnapshotAt))
			}
		}
		rows = append(rows, []string{TruncID(e.ID), e.Name, e.OrganizationID, snap})
	}
	return RenderTable([]string{"ID", "NAME", "ORGANIZATION", "SNAPSHOT"}, rows)
}

// FormatImportSession renders one session's progress.
func FormatImportSession(s *domain.ImportSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Bold("Import "+s.ID), ImportStatusPill(s.Status))
	fmt.Fprintf(&b, "%s %s\n", Dim("file:"), s.FileName)
	if s.Status == domain.ImportCompleted {
		fmt.Fprintf(&b, "%s %d  %s %s  %s %s\n",
			Dim("rows:"), s.TotalRows,
			Dim("classified:"), StyleGreen.Render(strconv.Itoa(s.ClassifiedRows)),
			Dim("needs review:"), reviewCount(s.UnclassifiedRows))
	}
	if s.Error != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("error:"), StyleRed.Render(s.Error))
	}
	return b.String()
}

func reviewCount(n int) string {
	if n == 0 {
		return StyleGreen.Render("0")
	}
	return StyleYellow.Render(strconv.Itoa(n))
}

// FormatReviewList renders rows that no strategy could classify.
func FormatReviewList(items []*domain.LineItem) string {
	if len(items) == 0 {
		return StyleGreen.Render("✔ Every row is classified.") + "\n"
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			TruncID(it.ID),
			it.PositionNumber,
			domain.CoalesceStr(it.Code, Dim("--")),
			it.Name,
			FormatQuantity(it.Quantity, ""),
			FormatPrice(it.Price),
		})
	}
	return RenderTable([]string{"ID", "№", "CODE", "NAME", "QTY", "PRICE"}, rows) +
		Dim(fmt.Sprintf("%d rows need review. Resolve with: smeta review resolve -e <estimate> <id> <label>", len(items))) + "\n"
}
