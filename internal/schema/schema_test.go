package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildComputesOffsetsSkippingAutoIncrement(t *testing.T) {
	s, err := Build("sensor_1", []Column{
		{Name: "id", Type: TypeInt4, IsAutoIncrement: true},
		{Name: "a", Type: TypeInt2},
		{Name: "b", Type: TypeInt8},
		{Name: "c", Type: TypeText, WireLength: 16},
	})
	require.NoError(t, err)

	require.Equal(t, -1, s.Columns[0].Offset)
	require.Equal(t, 0, s.Columns[1].Offset)
	require.Equal(t, 2, s.Columns[2].Offset)
	require.Equal(t, 10, s.Columns[3].Offset)
	require.Equal(t, 26, s.RowSize)
	require.Equal(t, 4, s.ColumnCount)
	require.Equal(t, 3, s.ColumnCountEffective)
}

func TestBuildFixedWidthWireLengthFilledAutomatically(t *testing.T) {
	s, err := Build("sensor_1", []Column{{Name: "a", Type: TypeFloat8}})
	require.NoError(t, err)
	require.Equal(t, 8, s.Columns[0].WireLength)
}

func TestBuildTextWithoutWireLengthErrors(t *testing.T) {
	_, err := Build("sensor_1", []Column{{Name: "a", Type: TypeText}})
	require.Error(t, err)
}

func TestOIDFromPgTypeName(t *testing.T) {
	cases := map[string]TypeOID{
		"int2":                      TypeInt2,
		"smallint":                  TypeInt2,
		"int4":                      TypeInt4,
		"integer":                   TypeInt4,
		"bigint":                    TypeInt8,
		"real":                      TypeFloat4,
		"double precision":          TypeFloat8,
		"timestamptz":               TypeTimestamp,
		"varchar":                   TypeText,
		"boolean":                   TypeBool,
		"this type does not exist": TypeUnknown,
	}
	for name, want := range cases {
		require.Equal(t, want, OIDFromPgTypeName(name), "name=%s", name)
	}
}
