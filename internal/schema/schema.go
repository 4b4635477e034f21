// Package schema models a sensor's packed-row layout (Column/Schema) and
// the PostgreSQL-side TableInfo derived from it.
package schema

import "fmt"

// TypeOID identifies a column's PostgreSQL wire type, restricted to the
// subset the COPY encoder knows how to write.
type TypeOID int

const (
	TypeInt2 TypeOID = iota
	TypeInt4
	TypeInt8
	TypeFloat4
	TypeFloat8
	TypeTimestamp
	TypeText
	TypeBool
	TypeUnknown
)

// wireLength returns the fixed wire length of fixed-width types, or 0 for
// variable-width ones (Text).
func (t TypeOID) wireLength() int {
	switch t {
	case TypeInt2:
		return 2
	case TypeInt4, TypeFloat4:
		return 4
	case TypeInt8, TypeFloat8, TypeTimestamp:
		return 8
	case TypeBool:
		return 1
	default:
		return 0
	}
}

// OIDFromPgTypeName maps a Postgres type name (as reported by
// pg_catalog.format_type, or written directly in a sensor schema file's
// "data" map) to a TypeOID. Unrecognized names map to TypeUnknown.
func OIDFromPgTypeName(name string) TypeOID {
	switch name {
	case "int2", "smallint":
		return TypeInt2
	case "int4", "integer", "int":
		return TypeInt4
	case "int8", "bigint":
		return TypeInt8
	case "float4", "real":
		return TypeFloat4
	case "float8", "double precision":
		return TypeFloat8
	case "timestamp", "timestamptz", "timestamp without time zone", "timestamp with time zone":
		return TypeTimestamp
	case "text", "varchar", "character varying":
		return TypeText
	case "bool", "boolean":
		return TypeBool
	default:
		return TypeUnknown
	}
}

// Column is one column of a sensor's schema: its name, wire type, wire
// length in bytes, its offset into the incoming packed row, and whether
// it is a database-side auto-increment column that never appears in the
// incoming data.
type Column struct {
	Name            string
	Type            TypeOID
	WireLength      int
	Offset          int
	IsAutoIncrement bool
}

// Schema is the ordered sequence of columns for one sensor/table.
type Schema struct {
	TableName string
	Columns   []Column

	// RowSize is the sum of wire lengths of non-auto columns: the size
	// of one packed incoming row.
	RowSize int
	// ColumnCount is len(Columns).
	ColumnCount int
	// ColumnCountEffective is the number of non-auto columns, i.e. the
	// field count written into each COPY row.
	ColumnCountEffective int
}

// Build computes Offset for every non-auto column in declaration order
// and the derived RowSize/ColumnCount*/ fields:
// offset_i = Σ length_j for j<i and not auto_j.
func Build(tableName string, columns []Column) (*Schema, error) {
	s := &Schema{TableName: tableName, Columns: make([]Column, len(columns))}
	copy(s.Columns, columns)

	offset := 0
	for i := range s.Columns {
		c := &s.Columns[i]
		if c.Type != TypeText && c.WireLength == 0 {
			c.WireLength = c.Type.wireLength()
		}
		if c.WireLength == 0 {
			return nil, fmt.Errorf("schema: column %q has unknown wire length for type %v", c.Name, c.Type)
		}
		if c.IsAutoIncrement {
			c.Offset = -1
			continue
		}
		c.Offset = offset
		offset += c.WireLength
		s.RowSize += c.WireLength
		s.ColumnCountEffective++
	}
	s.ColumnCount = len(s.Columns)

	return s, nil
}
