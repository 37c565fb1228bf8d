package dbagent

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func crawledTables() []Table {
	return []Table{
		{Name: "users", Columns: []Column{{Name: "id"}, {Name: "email"}}},
		{Name: "orders", Columns: []Column{{Name: "id"}, {Name: "user_id"}, {Name: "total"}}},
		{Name: "order_items", Columns: []Column{{Name: "order_id"}, {Name: "product_id"}}},
		{Name: "products", Columns: []Column{{Name: "id"}, {Name: "name"}, {Name: "price"}}},
		{Name: "audit_log", Columns: []Column{{Name: "id"}, {Name: "action"}}},
	}
}

func TestTokenOverlapRankerScoring(t *testing.T) {
	t.Parallel()

	ranker := TokenOverlapRanker{}
	users := Table{Name: "users", Columns: []Column{{Name: "id"}, {Name: "email"}}}

	if got := ranker.Score("how many users signed up", users); got < 5 {
		t.Errorf("name mention score = %v, want >= 5", got)
	}
	// Singular form still hits the table name.
	if got := ranker.Score("find one user by email", users); got < 5 {
		t.Errorf("singular mention score = %v, want >= 5", got)
	}
	if got := ranker.Score("total revenue this month", users); got != 0 {
		t.Errorf("unrelated question score = %v, want 0", got)
	}
	if got := ranker.Score("", users); got != 0 {
		t.Errorf("empty question score = %v, want 0", got)
	}
}

func TestSelectTablesRanksByRelevance(t *testing.T) {
	t.Parallel()

	selected := SelectTables("how many orders did each user place", crawledTables(), TokenOverlapRanker{}, 3)

	if len(selected) != 3 {
		t.Fatalf("selected %d tables, want 3", len(selected))
	}
	if selected[0].Name != "orders" && selected[0].Name != "users" {
		t.Errorf("top table = %s, want orders or users", selected[0].Name)
	}
	for _, table := range selected {
		if table.Name == "audit_log" {
			t.Error("irrelevant table selected over relevant ones")
		}
	}
}

func TestSelectTablesDeterministic(t *testing.T) {
	t.Parallel()

	first := SelectTables("orders by user", crawledTables(), TokenOverlapRanker{}, 10)
	for i := 0; i < 10; i++ {
		got := SelectTables("orders by user", crawledTables(), TokenOverlapRanker{}, 10)
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("selection changed between calls:\n%v\nvs\n%v", first, got)
		}
	}
}

func TestSelectTablesTieBreaksByDeclarationOrder(t *testing.T) {
	t.Parallel()

	// All scores are zero: declaration order must survive.
	tables := []Table{{Name: "zeta"}, {Name: "alpha"}, {Name: "mu"}}
	selected := SelectTables("nothing matches", tables, TokenOverlapRanker{}, 10)

	want := []string{"zeta", "alpha", "mu"}
	for i, table := range selected {
		if table.Name != want[i] {
			t.Errorf("selected[%d] = %s, want %s", i, table.Name, want[i])
		}
	}
}

func TestSelectTablesEnforcesCap(t *testing.T) {
	t.Parallel()

	var many []Table
	for i := 0; i < 25; i++ {
		many = append(many, Table{Name: fmt.Sprintf("table_%d", i)})
	}

	if got := SelectTables("anything", many, nil, 0); len(got) != MaxTables {
		t.Errorf("default cap selected %d tables, want %d", len(got), MaxTables)
	}
	if got := SelectTables("anything", many, nil, 50); len(got) != MaxTables {
		t.Errorf("oversized cap selected %d tables, want %d", len(got), MaxTables)
	}
	if got := SelectTables("anything", many, nil, 4); len(got) != 4 {
		t.Errorf("cap 4 selected %d tables", len(got))
	}
}

func TestNewSchemaEnforcesCap(t *testing.T) {
	t.Parallel()

	var many []Table
	for i := 0; i < MaxTables+1; i++ {
		many = append(many, Table{Name: fmt.Sprintf("table_%d", i)})
	}
	if _, err := NewSchema("db", many, ""); err == nil {
		t.Error("NewSchema should reject more than MaxTables tables")
	}
	if _, err := NewSchema("db", many[:MaxTables], ""); err != nil {
		t.Errorf("NewSchema at the cap failed: %v", err)
	}
}

func TestSchemaSummaryAndLookup(t *testing.T) {
	t.Parallel()

	schema, err := NewSchema("shop", []Table{
		{Name: "users", Columns: []Column{
			{Name: "id", Type: "integer", Key: KeyPrimary},
			{Name: "email", Type: "text", Nullable: true},
		}},
	}, "test subset")
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}

	if !schema.HasTable("users") || !schema.HasTable("USERS") {
		t.Error("HasTable should match case-insensitively")
	}
	if schema.HasTable("orders") {
		t.Error("HasTable matched an absent table")
	}

	summary := schema.Summary()
	for _, want := range []string{"users(", "id integer PRIMARY KEY", "email text"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary() lacks %q:\n%s", want, summary)
		}
	}
}
