package dbagent

import (
	"fmt"
	"strings"
)

// MaxTables bounds the schema subset handed to the planner.
const MaxTables = 10

// KeyRole describes a column's participation in table keys.
type KeyRole string

const (
	KeyNone    KeyRole = ""
	KeyPrimary KeyRole = "primary"
	KeyForeign KeyRole = "foreign"
)

// Column describes one column of a crawled table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Key      KeyRole
}

// Table describes one table's shape. Immutable once crawled.
type Table struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the ordered column names.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Schema is the bounded, relevance-ranked view of a database handed to
// the SQL planner. At most MaxTables tables; selection is deterministic
// for identical (schema, query) input.
type Schema struct {
	// DatabaseName labels the source for prompts and logs.
	DatabaseName string

	// Tables is the selected subset, ordered by descending relevance.
	Tables []Table

	// Rationale records how the subset was selected.
	Rationale string
}

// HasTable reports whether the subset contains the named table.
// Matching is case-insensitive, the way identifiers resolve in SQL.
func (s Schema) HasTable(name string) bool {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

// TableNames returns the selected table names in order.
func (s Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Summary renders the subset for a planner prompt, one table per line.
func (s Schema) Summary() string {
	var sb strings.Builder
	for _, t := range s.Tables {
		sb.WriteString(t.Name)
		sb.WriteString("(")
		for i, c := range t.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(c.Name)
			sb.WriteString(" ")
			sb.WriteString(c.Type)
			if c.Key == KeyPrimary {
				sb.WriteString(" PRIMARY KEY")
			}
			if !c.Nullable {
				sb.WriteString(" NOT NULL")
			}
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}

// NewSchema builds a bounded schema subset, enforcing the table cap.
func NewSchema(databaseName string, tables []Table, rationale string) (Schema, error) {
	if len(tables) > MaxTables {
		return Schema{}, fmt.Errorf("schema subset holds %d tables, limit is %d", len(tables), MaxTables)
	}
	return Schema{
		DatabaseName: databaseName,
		Tables:       tables,
		Rationale:    rationale,
	}, nil
}
