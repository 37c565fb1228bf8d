package dbrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/sourcequery/domain/dbagent"
	"github.com/felixgeelhaar/sourcequery/domain/query"
)

// Introspect lists every table and its columns in declaration order.
// Fails with query.ErrEmptySchema when the source has zero tables.
func (s *Session) Introspect(ctx context.Context, timeout time.Duration) ([]dbagent.Table, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var (
		tables []dbagent.Table
		err    error
	)
	switch s.dialect {
	case DialectSQLite:
		tables, err = s.introspectSQLite(ctx)
	default:
		tables, err = s.introspectInformationSchema(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, query.ErrEmptySchema
	}
	return tables, nil
}

// introspectInformationSchema serves PostgreSQL and MySQL, which both
// expose information_schema. ordinal_position preserves declaration order.
func (s *Session) introspectInformationSchema(ctx context.Context) ([]dbagent.Table, error) {
	var stmt string
	switch s.dialect {
	case DialectPostgres:
		stmt = `
			SELECT c.table_name, c.column_name, c.data_type, c.is_nullable,
			       COALESCE((
			           SELECT tc.constraint_type
			           FROM information_schema.key_column_usage kcu
			           JOIN information_schema.table_constraints tc
			             ON tc.constraint_name = kcu.constraint_name
			            AND tc.table_schema = kcu.table_schema
			           WHERE kcu.table_schema = c.table_schema
			             AND kcu.table_name = c.table_name
			             AND kcu.column_name = c.column_name
			             AND tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY')
			           ORDER BY tc.constraint_type DESC
			           LIMIT 1
			       ), '') AS key_type
			FROM information_schema.columns c
			WHERE c.table_schema = 'public'
			ORDER BY c.table_name, c.ordinal_position`
	case DialectMySQL:
		stmt = `
			SELECT c.table_name, c.column_name, c.data_type, c.is_nullable,
			       CASE c.column_key
			           WHEN 'PRI' THEN 'PRIMARY KEY'
			           WHEN 'MUL' THEN 'FOREIGN KEY'
			           ELSE ''
			       END AS key_type
			FROM information_schema.columns c
			WHERE c.table_schema = DATABASE()
			ORDER BY c.table_name, c.ordinal_position`
	default:
		return nil, fmt.Errorf("%w: no introspection for dialect %s", query.ErrConnection, s.dialect)
	}

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, classifyExecError(ctx, err)
	}
	defer rows.Close()

	var (
		tables  []dbagent.Table
		current *dbagent.Table
	)
	for rows.Next() {
		var tableName, columnName, dataType, nullable, keyType string
		if err := rows.Scan(&tableName, &columnName, &dataType, &nullable, &keyType); err != nil {
			return nil, classifyExecError(ctx, err)
		}

		if current == nil || current.Name != tableName {
			tables = append(tables, dbagent.Table{Name: tableName})
			current = &tables[len(tables)-1]
		}
		current.Columns = append(current.Columns, dbagent.Column{
			Name:     columnName,
			Type:     dataType,
			Nullable: nullable == "YES",
			Key:      keyRole(keyType),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyExecError(ctx, err)
	}
	return tables, nil
}

// introspectSQLite walks sqlite_master and PRAGMA table_info. rowid order
// preserves declaration order.
func (s *Session) introspectSQLite(ctx context.Context) ([]dbagent.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY rowid`)
	if err != nil {
		return nil, classifyExecError(ctx, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classifyExecError(ctx, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyExecError(ctx, err)
	}

	tables := make([]dbagent.Table, 0, len(names))
	for _, name := range names {
		table, err := s.sqliteTableInfo(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func (s *Session) sqliteTableInfo(ctx context.Context, name string) (dbagent.Table, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return dbagent.Table{}, classifyExecError(ctx, err)
	}
	defer rows.Close()

	table := dbagent.Table{Name: name}
	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return dbagent.Table{}, classifyExecError(ctx, err)
		}
		key := dbagent.KeyNone
		if pk > 0 {
			key = dbagent.KeyPrimary
		}
		table.Columns = append(table.Columns, dbagent.Column{
			Name:     colName,
			Type:     colType,
			Nullable: notNull == 0,
			Key:      key,
		})
	}
	if err := rows.Err(); err != nil {
		return dbagent.Table{}, classifyExecError(ctx, err)
	}
	return table, nil
}

func keyRole(constraintType string) dbagent.KeyRole {
	switch constraintType {
	case "PRIMARY KEY":
		return dbagent.KeyPrimary
	case "FOREIGN KEY":
		return dbagent.KeyForeign
	default:
		return dbagent.KeyNone
	}
}
