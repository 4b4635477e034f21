package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// tableMetadataQuery returns one row per column, in declaration order,
// carrying name/type/length/modifier/primary-key/auto-increment.
const tableMetadataQuery = `
SELECT
	a.attname AS column_name,
	format_type(a.atttypid, NULL) AS type_name,
	a.attlen AS type_length,
	a.atttypmod AS type_modifier,
	COALESCE(i.indisprimary, false) AS is_primary_key,
	COALESCE(pg_get_expr(d.adbin, d.adrelid) LIKE 'nextval(%', false) AS is_auto_increment
FROM pg_attribute a
LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
LEFT JOIN pg_index i ON i.indrelid = a.attrelid AND a.attnum = ANY(i.indkey) AND i.indisprimary
WHERE a.attrelid = $1::regclass
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY a.attnum
`

// TableInfo is Schema plus the precomputed COPY command.
type TableInfo struct {
	Schema      *Schema
	CopyCommand string
}

// Discover issues the metadata query for tableName and builds its
// TableInfo, computing column offsets as Build does.
func Discover(ctx context.Context, conn *pgx.Conn, tableName string) (*TableInfo, error) {
	rows, err := conn.Query(ctx, tableMetadataQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("schema: metadata query for %s: %w", tableName, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			name            string
			typeName        string
			typeLength      int32
			typeModifier    int32
			isPrimaryKey    bool
			isAutoIncrement bool
		)
		if err := rows.Scan(&name, &typeName, &typeLength, &typeModifier, &isPrimaryKey, &isAutoIncrement); err != nil {
			return nil, fmt.Errorf("schema: scan metadata row for %s: %w", tableName, err)
		}

		oid := OIDFromPgTypeName(typeName)
		wireLen := oid.wireLength()
		if oid == TypeText {
			wireLen = textWireLength(typeModifier)
		}

		columns = append(columns, Column{
			Name:            name,
			Type:            oid,
			WireLength:      wireLen,
			IsAutoIncrement: isAutoIncrement,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schema: reading metadata for %s: %w", tableName, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("schema: table %s has no columns or does not exist", tableName)
	}

	s, err := Build(tableName, columns)
	if err != nil {
		return nil, err
	}

	return &TableInfo{Schema: s, CopyCommand: buildCopyCommand(s)}, nil
}

// textWireLength recovers a varchar(N)'s declared length from its
// atttypmod, which Postgres stores as N+4 for varchar/char. Columns
// without a declared length (plain "text") default to 256 bytes as a
// conservative packed-row field width.
func textWireLength(typeModifier int32) int {
	if typeModifier > 4 {
		return int(typeModifier - 4)
	}
	return 256
}

// buildCopyCommand precomputes "COPY <table>(<col1>,<col2>,…) FROM STDIN
// WITH (FORMAT binary)", skipping auto-increment columns.
func buildCopyCommand(s *Schema) string {
	names := make([]string, 0, s.ColumnCountEffective)
	for _, c := range s.Columns {
		if c.IsAutoIncrement {
			continue
		}
		names = append(names, c.Name)
	}
	return fmt.Sprintf("COPY %s(%s) FROM STDIN WITH (FORMAT binary)", s.TableName, strings.Join(names, ","))
}
