package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/repository"
	"github.com/alexanderramin/smeta/internal/testutil"
)

func sqliteSources(database *sql.DB) Sources {
	return Sources{
		Sections:  repository.NewSQLiteSectionRepo(database),
		Items:     repository.NewSQLiteLineItemRepo(database),
		Resources: repository.NewSQLiteResourceRepo(database),
		Totals:    repository.NewSQLiteTotalRepo(database),
		SubWorks:  repository.NewSQLiteSubWorkRepo(database),
		Units:     repository.NewSQLiteUnitRepo(database),
		WorkTypes: repository.NewSQLiteWorkTypeRepo(database),
	}
}

func TestAssemble_EmptyEstimate(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	est := testutil.NewTestEstimate("Empty")
	require.NoError(t, repository.NewSQLiteEstimateRepo(database).Create(ctx, est))

	p, err := NewAssembler(sqliteSources(database)).Assemble(ctx, est.ID)
	require.NoError(t, err)

	data, err := Encode(p)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `[]`, string(raw["sections"]))
	assert.JSONEq(t, `[]`, string(raw["itemsWithoutSection"]))
	assert.Equal(t, est.ID, p.EstimateID)
	assert.Equal(t, FormatVersion, p.Version)
}

func TestAssemble_LinksSectionsItemsAndSatellites(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	src := sqliteSources(database)
	est := testutil.NewTestEstimate("Full")
	require.NoError(t, repository.NewSQLiteEstimateRepo(database).Create(ctx, est))

	sections := repository.NewSQLiteSectionRepo(database)
	root := testutil.NewTestSection(est.ID, "Earthworks", testutil.WithSectionNumber("1"))
	child := testutil.NewTestSection(est.ID, "Excavation", testutil.WithParentSection(root.ID), testutil.WithSectionNumber("1.1"))
	second := testutil.NewTestSection(est.ID, "Concrete", testutil.WithSortOrder(1), testutil.WithSectionNumber("2"))
	for _, s := range []*domain.Section{root, child, second} {
		require.NoError(t, sections.Create(ctx, s))
	}

	unit, err := repository.NewSQLiteUnitRepo(database).GetOrCreate(ctx, "м3")
	require.NoError(t, err)
	workType, err := repository.NewSQLiteWorkTypeRepo(database).GetOrCreate(ctx, "Земляные работы")
	require.NoError(t, err)

	items := repository.NewSQLiteLineItemRepo(database)
	dig := testutil.NewTestLineItem(est.ID, "Dig", testutil.InSection(child.ID), testutil.WithCode("ГЭСН01-01-001"), testutil.WithUnit(unit.ID))
	dig.WorkTypeID = &workType.ID
	sand := testutil.NewTestLineItem(est.ID, "Sand", testutil.InSection(child.ID), testutil.WithParentItem(dig.ID), testutil.WithItemSortOrder(1))
	loose := testutil.NewTestLineItem(est.ID, "Mobilisation", testutil.WithPrice(1500))
	for _, it := range []*domain.LineItem{dig, sand, loose} {
		require.NoError(t, items.Create(ctx, it))
	}

	require.NoError(t, repository.NewSQLiteResourceRepo(database).Create(ctx, &domain.ItemResource{
		ID: "res-1", ItemID: dig.ID, Kind: domain.ResourceLabor, Name: "Workers", Unit: "чел.-ч", Quantity: 8,
	}))
	require.NoError(t, repository.NewSQLiteTotalRepo(database).Create(ctx, &domain.ItemTotal{
		ID: "tot-1", ItemID: dig.ID, Name: "direct", Amount: 1200.5,
	}))
	require.NoError(t, repository.NewSQLiteSubWorkRepo(database).Create(ctx, &domain.ItemSubWork{
		ID: "sw-1", ItemID: dig.ID, Code: "ГЭСН01-02-001", Name: "Backfill", Quantity: 2,
	}))

	p, err := NewAssembler(src).Assemble(ctx, est.ID)
	require.NoError(t, err)

	require.Len(t, p.Sections, 2)
	assert.Equal(t, "Earthworks", p.Sections[0].Name)
	assert.Equal(t, "Concrete", p.Sections[1].Name)
	require.Len(t, p.Sections[0].Children, 1)

	excavation := p.Sections[0].Children[0]
	require.Len(t, excavation.Items, 1)
	got := excavation.Items[0]
	assert.Equal(t, "Dig", got.Name)
	assert.Equal(t, "м3", got.Unit)
	assert.Equal(t, "Земляные работы", got.WorkType)
	assert.Equal(t, []Resource{{Kind: domain.ResourceLabor, Name: "Workers", Unit: "чел.-ч", Quantity: 8}}, got.Resources)
	assert.Equal(t, []Total{{Name: "direct", Amount: 1200.5}}, got.Totals)
	assert.Equal(t, []SubWork{{Code: "ГЭСН01-02-001", Name: "Backfill", Quantity: 2}}, got.SubWorks)
	require.Len(t, got.Children, 1)
	assert.Equal(t, "Sand", got.Children[0].Name)

	require.Len(t, p.ItemsWithoutSection, 1)
	assert.Equal(t, "Mobilisation", p.ItemsWithoutSection[0].Name)
	require.NotNil(t, p.ItemsWithoutSection[0].Price)
	assert.InDelta(t, 1500, *p.ItemsWithoutSection[0].Price, 1e-9)

	s, i := p.Counts()
	assert.Equal(t, 3, s)
	assert.Equal(t, 3, i)
}

// countingSources records how many calls each bulk reader receives.
type countingSources struct {
	sections []*domain.Section
	items    []*domain.LineItem
	calls    map[string]int
}

func (c *countingSources) bump(name string) { c.calls[name]++ }

type countSections struct{ c *countingSources }

func (s countSections) ListByEstimate(context.Context, string) ([]*domain.Section, error) {
	s.c.bump("sections")
	return s.c.sections, nil
}

type countItems struct{ c *countingSources }

func (s countItems) ListByEstimate(context.Context, string) ([]*domain.LineItem, error) {
	s.c.bump("items")
	return s.c.items, nil
}

type countResources struct{ c *countingSources }

func (s countResources) ListByItemIDs(_ context.Context, ids []string) (map[string][]domain.ItemResource, error) {
	s.c.bump("resources")
	return map[string][]domain.ItemResource{}, nil
}

type countTotals struct{ c *countingSources }

func (s countTotals) ListByItemIDs(context.Context, []string) (map[string][]domain.ItemTotal, error) {
	s.c.bump("totals")
	return map[string][]domain.ItemTotal{}, nil
}

type countSubWorks struct{ c *countingSources }

func (s countSubWorks) ListByItemIDs(context.Context, []string) (map[string][]domain.ItemSubWork, error) {
	s.c.bump("sub_works")
	return nil, nil
}

type countUnits struct{ c *countingSources }

func (s countUnits) ListByIDs(context.Context, []string) (map[string]domain.Unit, error) {
	s.c.bump("units")
	return map[string]domain.Unit{}, nil
}

type countWorkTypes struct{ c *countingSources }

func (s countWorkTypes) ListByIDs(context.Context, []string) (map[string]domain.WorkType, error) {
	s.c.bump("work_types")
	return nil, nil
}

func (c *countingSources) sources() Sources {
	return Sources{
		Sections: countSections{c}, Items: countItems{c}, Resources: countResources{c},
		Totals: countTotals{c}, SubWorks: countSubWorks{c}, Units: countUnits{c}, WorkTypes: countWorkTypes{c},
	}
}

func ptr(s string) *string { return &s }

// deepFixture builds a chain of sections depth levels deep, one item per
// section, and a chain of nested items under the deepest section.
func deepFixture(depth int) ([]*domain.Section, []*domain.LineItem) {
	var sections []*domain.Section
	var items []*domain.LineItem
	var parent *string
	for d := 0; d < depth; d++ {
		id := fmt.Sprintf("s%d", d)
		sections = append(sections, &domain.Section{ID: id, ParentSectionID: parent, Name: id})
		items = append(items, &domain.LineItem{ID: "i" + id, SectionID: ptr(id), Name: "i" + id})
		parent = ptr(id)
	}
	last := fmt.Sprintf("s%d", depth-1)
	var parentItem *string
	for d := 0; d < depth; d++ {
		id := fmt.Sprintf("n%d", d)
		items = append(items, &domain.LineItem{ID: id, SectionID: ptr(last), ParentItemID: parentItem, Name: id})
		parentItem = ptr(id)
	}
	// Sectionless items, one nested under another.
	items = append(items,
		&domain.LineItem{ID: "free", Name: "free"},
		&domain.LineItem{ID: "free-child", ParentItemID: ptr("free"), Name: "free-child"},
		&domain.LineItem{ID: "lost", SectionID: ptr("gone"), Name: "lost"},
	)
	return sections, items
}

func TestAssemble_OneBulkCallPerSource(t *testing.T) {
	sections, items := deepFixture(50)
	c := &countingSources{sections: sections, items: items, calls: map[string]int{}}
	a := NewAssembler(c.sources())
	a.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	p, err := a.Assemble(context.Background(), "est")
	require.NoError(t, err)
	for _, name := range []string{"sections", "items", "resources", "totals", "sub_works", "units", "work_types"} {
		assert.Equal(t, 1, c.calls[name], name)
	}
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), p.GeneratedAt)
}

type flatSection struct {
	parent string
	pos    int
}

type flatItem struct {
	section string
	parent  string
	pos     int
}

// flatten walks a payload back into parent links and sibling positions.
func flatten(p *Payload) (map[string]flatSection, map[string]flatItem) {
	secs := map[string]flatSection{}
	its := map[string]flatItem{}
	var walkItems func(section, parent string, nodes []ItemNode)
	walkItems = func(section, parent string, nodes []ItemNode) {
		for i, n := range nodes {
			its[n.ID] = flatItem{section: section, parent: parent, pos: i}
			walkItems(section, n.ID, n.Children)
		}
	}
	var walkSections func(parent string, nodes []SectionNode)
	walkSections = func(parent string, nodes []SectionNode) {
		for i, n := range nodes {
			secs[n.ID] = flatSection{parent: parent, pos: i}
			walkItems(n.ID, "", n.Items)
			walkSections(n.ID, n.Children)
		}
	}
	walkSections("", p.Sections)
	walkItems("", "", p.ItemsWithoutSection)
	return secs, its
}

func TestBuild_FlattenReproducesSourceLinks(t *testing.T) {
	sections, items := deepFixture(200)
	p := build(&flat{sections: sections, items: items})

	secs, its := flatten(p)
	require.Len(t, secs, len(sections))
	require.Len(t, its, len(items))

	for _, s := range sections {
		want := ""
		if s.ParentSectionID != nil {
			want = *s.ParentSectionID
		}
		assert.Equal(t, want, secs[s.ID].parent, s.ID)
	}
	for _, it := range items {
		got := its[it.ID]
		switch {
		case it.ID == "lost":
			assert.Equal(t, "", got.section, "missing section falls back to sectionless")
		case it.ParentItemID != nil:
			assert.Equal(t, *it.ParentItemID, got.parent, it.ID)
		case it.SectionID != nil:
			assert.Equal(t, *it.SectionID, got.section, it.ID)
			assert.Equal(t, "", got.parent, it.ID)
		default:
			assert.Equal(t, "", got.section, it.ID)
		}
	}
}

func TestBuild_PreservesSiblingOrder(t *testing.T) {
	sections := []*domain.Section{
		{ID: "a", SortOrder: 0}, {ID: "b", SortOrder: 1}, {ID: "c", SortOrder: 2},
		{ID: "a1", ParentSectionID: ptr("a"), SortOrder: 0}, {ID: "a2", ParentSectionID: ptr("a"), SortOrder: 1},
	}
	items := []*domain.LineItem{
		{ID: "x", SectionID: ptr("a"), SortOrder: 0},
		{ID: "y", SectionID: ptr("a"), SortOrder: 1},
		{ID: "z", SectionID: ptr("a"), SortOrder: 2},
	}
	p := build(&flat{sections: sections, items: items})

	secs, its := flatten(p)
	assert.Equal(t, 0, secs["a"].pos)
	assert.Equal(t, 2, secs["c"].pos)
	assert.Equal(t, 1, secs["a2"].pos)
	assert.Equal(t, 0, its["x"].pos)
	assert.Equal(t, 2, its["z"].pos)
}

func TestDecode_RoundTripAndNewerVersion(t *testing.T) {
	sections, items := deepFixture(3)
	p := build(&flat{sections: sections, items: items})
	p.EstimateID = "est"

	data, err := Encode(p)
	require.NoError(t, err)
	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "est", back.EstimateID)
	s1, i1 := p.Counts()
	s2, i2 := back.Counts()
	assert.Equal(t, s1, s2)
	assert.Equal(t, i1, i2)

	_, err = Decode([]byte(`{"version": 99}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`{`))
	assert.Error(t, err)
}
