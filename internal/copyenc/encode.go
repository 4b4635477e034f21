package copyenc

import (
	"encoding/binary"
	"fmt"

	"github.com/sensorbridge/sensorbridge/internal/schema"
)

// copyHeader is the fixed 19-byte signature PostgreSQL's binary COPY
// format begins every stream with: the 11-byte "PGCOPY\n\377\r\n\0"
// magic, a 4-byte flags field, and a 4-byte header-extension length,
// both zero here.
var copyHeader = [19]byte{'P', 'G', 'C', 'O', 'P', 'Y', '\n', 0xff, '\r', '\n', 0x00}

// WriteHeader appends the binary COPY stream header to buf and returns
// the result.
func WriteHeader(buf []byte) []byte {
	return append(buf, copyHeader[:]...)
}

// HeaderSize is the fixed length of the binary COPY stream header.
const HeaderSize = len(copyHeader)

// RowSize reports the upper bound on how many bytes EncodeRow writes for
// one row of s, excluding the stream header: a 2-byte field count plus,
// per non-auto column, a 4-byte length prefix and its wire bytes. It is
// exact unless a text column's slot ends in NUL padding, which
// EncodeRow trims.
func RowSize(s *schema.Schema) int {
	n := 2
	for _, c := range s.Columns {
		if c.IsAutoIncrement {
			continue
		}
		n += 4 + c.WireLength
	}
	return n
}

// BufferSize reports the upper bound on the buffer size needed to hold
// the stream header plus itemCount encoded rows of s.
func BufferSize(s *schema.Schema, itemCount int) int {
	return HeaderSize + itemCount*RowSize(s)
}

// EncodeRow appends one row's COPY-binary encoding to buf, reading
// column values directly out of row at their schema-declared offsets:
// a big-endian int16 field count, then for each non-auto column in
// declaration order a big-endian int32 byte length and the value
// re-encoded big-endian from row's little-endian byte order. row must be
// exactly s.RowSize bytes, the packed payload the wire protocol
// delivered.
func EncodeRow(buf []byte, s *schema.Schema, row []byte, unit TimestampUnit) ([]byte, error) {
	if len(row) != s.RowSize {
		return nil, fmt.Errorf("copyenc: row is %d bytes, schema %s expects %d", len(row), s.TableName, s.RowSize)
	}

	buf = binary.BigEndian.AppendUint16(buf, uint16(s.ColumnCountEffective))

	for _, c := range s.Columns {
		if c.IsAutoIncrement {
			continue
		}
		field := row[c.Offset : c.Offset+c.WireLength]

		switch c.Type {
		case schema.TypeInt2:
			buf = binary.BigEndian.AppendUint32(buf, 2)
			buf = binary.BigEndian.AppendUint16(buf, binary.LittleEndian.Uint16(field))
		case schema.TypeInt4:
			buf = binary.BigEndian.AppendUint32(buf, 4)
			buf = binary.BigEndian.AppendUint32(buf, binary.LittleEndian.Uint32(field))
		case schema.TypeInt8:
			buf = binary.BigEndian.AppendUint32(buf, 8)
			buf = binary.BigEndian.AppendUint64(buf, binary.LittleEndian.Uint64(field))
		case schema.TypeFloat4:
			buf = binary.BigEndian.AppendUint32(buf, 4)
			buf = binary.BigEndian.AppendUint32(buf, binary.LittleEndian.Uint32(field))
		case schema.TypeFloat8:
			buf = binary.BigEndian.AppendUint32(buf, 8)
			buf = binary.BigEndian.AppendUint64(buf, binary.LittleEndian.Uint64(field))
		case schema.TypeTimestamp:
			unixValue := int64(binary.LittleEndian.Uint64(field))
			pg := UnixToPgTimestamp(unixValue, unit)
			buf = binary.BigEndian.AppendUint32(buf, 8)
			buf = binary.BigEndian.AppendUint64(buf, uint64(pg))
		case schema.TypeText:
			buf = encodeText(buf, field)
		case schema.TypeBool:
			buf = binary.BigEndian.AppendUint32(buf, 1)
			buf = append(buf, field[0])
		default:
			return nil, fmt.Errorf("copyenc: column %q has unhandled type oid %v", c.Name, c.Type)
		}
	}

	return buf, nil
}

// encodeText writes a TypeText field as the raw UTF-8 bytes of field
// with trailing NULs trimmed: field is a fixed-width, NUL-padded source
// slot, and the COPY field length written is the trimmed byte length,
// not the full slot width.
func encodeText(buf []byte, field []byte) []byte {
	n := len(field)
	for n > 0 && field[n-1] == 0 {
		n--
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(n))
	buf = append(buf, field[:n]...)
	return buf
}
