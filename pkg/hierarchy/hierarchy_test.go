package hierarchy_test

import (
	"testing"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, parent, name string, attrs ...string) domain.Item {
	it := domain.Item{ID: id, ParentID: parent, Name: name}
	if len(attrs) > 0 {
		it.Attributes = map[string]string{}
		for i := 0; i+1 < len(attrs); i += 2 {
			it.Attributes[attrs[i]] = attrs[i+1]
		}
	}
	return it
}

var (
	modules = []domain.Item{
		item("hr", "", "Human Resources"),
		item("fin", "", "Finance"),
	}
	menus = []domain.Item{
		item("employees", "hr", "Employees"),
		item("payroll", "hr", "Payroll", "description", "Monthly salary runs"),
		item("ledger", "fin", "Ledger"),
		item("orphan", "ops", "Orphaned Menu"),
	}
	apis = []domain.Item{
		item("emp.read", "employees", "Read employees", "action", "GET", "resource", "/employees"),
		item("emp.write", "employees", "Write employees", "action", "POST", "resource", "/employees"),
		item("pay.run", "payroll", "Run payroll", "action", "POST", "resource", "/payroll/run"),
		item("led.read", "ledger", "Read ledger", "action", "GET", "resource", "/ledger"),
	}
)

func TestFilterByParentSelection(t *testing.T) {
	groups := hierarchy.FilterByParentSelection(menus, domain.NewSelection("hr"))

	assert.Equal(t, []string{"hr"}, groups.Keys())
	assert.Equal(t, []string{"employees", "payroll"}, groups.GroupIDs("hr"))
}

func TestFilterByParentSelection_EmptyParentYieldsEmpty(t *testing.T) {
	for _, items := range [][]domain.Item{modules, menus, apis} {
		groups := hierarchy.FilterByParentSelection(items, domain.EmptySelection())
		assert.Empty(t, groups)
	}
}

func TestFilterByParentSelection_DoesNotMutateInput(t *testing.T) {
	in := append([]domain.Item(nil), menus...)
	_ = hierarchy.FilterByParentSelection(in, domain.NewSelection("hr", "fin"))
	assert.Equal(t, menus, in)
}

func TestSearch(t *testing.T) {
	groups := hierarchy.FilterByParentSelection(apis, domain.NewSelection("employees", "payroll", "ledger"))

	t.Run("matches name case-insensitively", func(t *testing.T) {
		got := hierarchy.Search(groups, "READ")
		assert.Equal(t, []string{"employees", "ledger"}, got.Keys())
		assert.Equal(t, []string{"emp.read"}, got.GroupIDs("employees"))
	})

	t.Run("matches attributes", func(t *testing.T) {
		got := hierarchy.Search(groups, "/payroll")
		assert.Equal(t, []string{"payroll"}, got.Keys())
	})

	t.Run("drops empty groups", func(t *testing.T) {
		got := hierarchy.Search(groups, "post")
		assert.Equal(t, []string{"employees", "payroll"}, got.Keys())
		assert.NotContains(t, got, "ledger")
	})

	t.Run("empty query keeps everything", func(t *testing.T) {
		got := hierarchy.Search(groups, "  ")
		assert.Equal(t, groups.Len(), got.Len())
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, hierarchy.Search(groups, "zzz"))
	})
}

func TestToggleGroup(t *testing.T) {
	group := []string{"a", "b", "c"}

	t.Run("none selected selects all", func(t *testing.T) {
		s := domain.NewSelection("x")
		got := hierarchy.ToggleGroup(s, group)
		assert.Equal(t, []string{"a", "b", "c", "x"}, got.IDs())
		assert.True(t, hierarchy.ToggleGroup(got, group).Equal(s))
	})

	t.Run("partial selection completes the group", func(t *testing.T) {
		s := domain.NewSelection("a")
		got := hierarchy.ToggleGroup(s, group)
		assert.Equal(t, []string{"a", "b", "c"}, got.IDs())
		assert.True(t, hierarchy.ToggleGroup(got, group).IsEmpty())
	})

	t.Run("all selected deselects all", func(t *testing.T) {
		s := domain.NewSelection("a", "b", "c", "x")
		got := hierarchy.ToggleGroup(s, group)
		assert.Equal(t, []string{"x"}, got.IDs())
		assert.True(t, hierarchy.ToggleGroup(got, group).Equal(s))
	})
}

func TestToggleItem_SelfInverse(t *testing.T) {
	s := domain.NewSelection("a")
	seq := []string{"a", "b", "b", "c", "a"}
	for _, id := range seq {
		next := hierarchy.ToggleItem(s, id)
		assert.True(t, hierarchy.ToggleItem(next, id).Equal(s))
		s = next
	}
	assert.Equal(t, []string{"a", "c"}, s.IDs())
}

func TestSelectAllIgnoresSearch(t *testing.T) {
	groups := hierarchy.FilterByParentSelection(apis, domain.NewSelection("employees", "payroll"))
	visible := hierarchy.Search(groups, "read")

	sel := hierarchy.SelectAll(groups.ItemIDs())
	assert.Equal(t, 3, sel.Len())
	assert.Less(t, visible.Len(), sel.Len())
}

func TestClearThenSelectAllStats(t *testing.T) {
	groups := hierarchy.FilterByParentSelection(apis, domain.NewSelection("employees", "payroll", "ledger"))

	sel := hierarchy.ClearAll()
	sel = hierarchy.SelectAll(groups.ItemIDs())

	for parent, stats := range groups.Stats(sel) {
		assert.Equal(t, stats.Total, stats.Selected, parent)
		assert.True(t, stats.All())
	}
	subset := groups["employees"][:1]
	assert.Equal(t, hierarchy.Stats{Selected: 1, Total: 1}, hierarchy.GroupStats(subset, sel))
}

func TestStaleSelectionTolerated(t *testing.T) {
	downstream := domain.NewSelection("employees", "ledger")
	upstream := domain.NewSelection("hr", "fin")

	before := hierarchy.FilterByParentSelection(menus, upstream)
	assert.Equal(t, 2, hierarchy.GroupStats(before["hr"], downstream).Selected+hierarchy.GroupStats(before["fin"], downstream).Selected)

	upstream = upstream.Toggle("fin")
	after := hierarchy.FilterByParentSelection(menus, upstream)

	assert.True(t, downstream.Has("ledger"), "downstream selection is not pruned")
	assert.NotContains(t, after.ItemIDs(), "ledger")
}

func TestNew_RejectsMalformed(t *testing.T) {
	_, err := hierarchy.New(modules, []domain.Item{{Name: "no id"}})
	assert.ErrorIs(t, err, domain.ErrMalformedItem)

	_, err = hierarchy.New(modules, []domain.Item{{ID: "x"}})
	assert.ErrorIs(t, err, domain.ErrMalformedItem)
}

func TestHierarchy_ChildrenExcludesDangling(t *testing.T) {
	h, err := hierarchy.New(modules, menus, apis)
	require.NoError(t, err)

	got := h.Children(domain.Level1, domain.NewSelection("hr", "fin", "ops"))
	assert.NotContains(t, got.ItemIDs(), "orphan")
	assert.Len(t, h.Dangling(domain.Level1), 1)

	roots := h.Children(domain.Level0, domain.EmptySelection())
	assert.Equal(t, []string{"hr", "fin"}, roots.ItemIDs())
}

func TestHierarchy_DedupesFirstWins(t *testing.T) {
	h, err := hierarchy.New([]domain.Item{item("a", "", "first"), item("a", "", "second")})
	require.NoError(t, err)
	assert.Equal(t, "first", h.Items(domain.Level0)[0].Name)
}

func TestPrune(t *testing.T) {
	got := hierarchy.Prune(domain.NewSelection("a", "b", "z"), []string{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b"}, got.IDs())
}
