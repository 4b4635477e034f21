package copyenc

import (
	"fmt"

	"github.com/sensorbridge/sensorbridge/internal/schema"
)

// EncodeBatch encodes a full binary COPY stream for data, a buffer of
// itemCount packed rows back-to-back, preallocating the result at its
// upper-bound size (19 + items*(2 + Σ(4+len_i))). The resulting byte slice is
// intended for one put_copy_data-equivalent call (pgconn.PgConn.CopyFrom
// reading the whole slice as one io.Reader).
func EncodeBatch(s *schema.Schema, data []byte, itemCount int, unit TimestampUnit) ([]byte, error) {
	if itemCount*s.RowSize != len(data) {
		return nil, fmt.Errorf("copyenc: data is %d bytes, expected %d for %d rows of size %d", len(data), itemCount*s.RowSize, itemCount, s.RowSize)
	}

	buf := make([]byte, 0, BufferSize(s, itemCount))
	buf = WriteHeader(buf)

	for i := 0; i < itemCount; i++ {
		row := data[i*s.RowSize : (i+1)*s.RowSize]
		var err error
		buf, err = EncodeRow(buf, s, row, unit)
		if err != nil {
			return nil, fmt.Errorf("copyenc: encode row %d: %w", i, err)
		}
	}

	return buf, nil
}
