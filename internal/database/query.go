package database

import (
	"strings"
)

// QueryBuilder converts SQL queries with ? placeholders to dialect-specific format.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build converts a query with ? placeholders to dialect-specific placeholders.
//
// Example:
//
//	input:    "SELECT name FROM spell_template WHERE id = ? AND school = ?"
//	SQLite:   "SELECT name FROM spell_template WHERE id = ? AND school = ?"
//	Postgres: "SELECT name FROM spell_template WHERE id = $1 AND school = $2"
func (qb *QueryBuilder) Build(query string) string {
	if _, ok := qb.dialect.(*SQLiteDialect); ok {
		return query
	}

	var result strings.Builder
	position := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result.WriteString(qb.dialect.Placeholder(position))
			position++
		} else {
			result.WriteByte(query[i])
		}
	}
	return result.String()
}

// Insert builds an INSERT statement for the given table and columns.
func (qb *QueryBuilder) Insert(table string, columns []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return qb.Build("INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + marks + ")")
}

// Schema fills the {int} and {real} column type markers of a DDL statement.
func (qb *QueryBuilder) Schema(ddl string) string {
	return strings.NewReplacer("{int}", qb.dialect.IntegerType(), "{real}", qb.dialect.RealType()).Replace(ddl)
}
