package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/smeta/internal/domain"
)

func ptrStr(s string) *string { return &s }

func TestValidateDocument(t *testing.T) {
	price := -1.0
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"section without name", Document{Sections: []SectionImport{{Ref: "s1"}}}, "sections[0].name is required"},
		{"duplicate section ref", Document{Sections: []SectionImport{{Ref: "s1", Name: "a"}, {Ref: "s1", Name: "b"}}}, "duplicated"},
		{"forward parent", Document{Sections: []SectionImport{{Ref: "s1", Name: "a", ParentRef: ptrStr("s2")}, {Ref: "s2", Name: "b"}}}, "earlier section"},
		{"unknown section", Document{Items: []ItemImport{{Ref: "i1", Name: "x", SectionRef: ptrStr("nope")}}}, "section_ref"},
		{"unknown parent item", Document{Items: []ItemImport{{Ref: "i1", Name: "x", ParentRef: ptrStr("i9")}}}, "earlier item"},
		{"negative quantity", Document{Items: []ItemImport{{Ref: "i1", Name: "x", Quantity: -2}}}, "quantity"},
		{"negative price", Document{Items: []ItemImport{{Ref: "i1", Name: "x", Price: &price}}}, "price"},
		{"bad resource kind", Document{Items: []ItemImport{{Ref: "i1", Name: "x", Resources: []ResourceImport{{Kind: "x", Name: "r"}}}}}, "kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateDocument(&tt.doc)
			require.NotEmpty(t, errs)
			assert.ErrorContains(t, errs[0], tt.want)
		})
	}
}

func TestConvert_AssignsIDsAndScopeOrders(t *testing.T) {
	doc, err := ParseXML(strings.NewReader(sampleXML))
	require.NoError(t, err)

	c, err := Convert(doc, "est-1")
	require.NoError(t, err)
	require.Len(t, c.Sections, 2)
	require.Len(t, c.Items, 4)

	root, child := c.Sections[0], c.Sections[1]
	assert.Equal(t, "est-1", root.EstimateID)
	assert.Nil(t, root.ParentSectionID)
	assert.Equal(t, root.ID, *child.ParentSectionID)
	assert.Empty(t, root.SectionNumber, "numbers come from the numbering engine")

	dig, excavator, grading, contingency := c.Items[0], c.Items[1], c.Items[2], c.Items[3]
	assert.Equal(t, root.ID, *dig.SectionID)
	assert.Equal(t, dig.ID, *excavator.ParentItemID)
	assert.Equal(t, 0, dig.SortOrder)
	assert.Equal(t, 0, excavator.SortOrder)
	assert.Equal(t, child.ID, *grading.SectionID)
	assert.Nil(t, contingency.SectionID)
	assert.True(t, dig.NeedsReview())

	assert.Equal(t, "м3", c.UnitSymbols[dig.ID])
	require.Len(t, c.Resources, 1)
	assert.Equal(t, domain.ResourceLabor, c.Resources[0].Kind)
	assert.Equal(t, dig.ID, c.Resources[0].ItemID)
	require.Len(t, c.SubWorks, 1)
	require.Len(t, c.Totals, 1)
	assert.Equal(t, contingency.ID, c.Totals[0].ItemID)

	rows := c.ClassificationRows()
	require.Len(t, rows, 4)
	assert.Equal(t, "ГЭСН01-01-001", rows[0].Code)
	assert.Equal(t, "м3", rows[0].Unit)
	assert.Equal(t, "91.01.01-035", rows[1].Code)
}

func TestConvert_SiblingItemsGetSequentialOrders(t *testing.T) {
	doc := &Document{
		Sections: []SectionImport{{Ref: "s1", Name: "A"}},
		Items: []ItemImport{
			{Ref: "i1", Name: "a", SectionRef: ptrStr("s1")},
			{Ref: "i2", Name: "b", SectionRef: ptrStr("s1")},
			{Ref: "i3", Name: "c"},
			{Ref: "i4", Name: "d"},
		},
	}
	c, err := Convert(doc, "est")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 1}, []int{c.Items[0].SortOrder, c.Items[1].SortOrder, c.Items[2].SortOrder, c.Items[3].SortOrder})
}

func TestConvert_DanglingReference(t *testing.T) {
	_, err := Convert(&Document{Items: []ItemImport{{Ref: "i1", Name: "x", ParentRef: ptrStr("ghost")}}}, "est")
	assert.ErrorContains(t, err, "ghost")
}
