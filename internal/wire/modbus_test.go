package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sensorbridge/sensorbridge/internal/errs"
)

// buildFrame constructs a wire frame including the trailing pad byte
// ReceiveFrame/ParseFrame expect after the data-length-byte's payload.
func buildFrame(txID, protoID uint16, unitID, functionCode, dataLength byte, data []byte) []byte {
	buf := make([]byte, 0, HeaderLen+3+len(data))
	buf = binary.BigEndian.AppendUint16(buf, txID)
	buf = binary.BigEndian.AppendUint16(buf, protoID)
	buf = binary.BigEndian.AppendUint16(buf, uint16(dataLength)+3)
	buf = append(buf, unitID, functionCode, dataLength)
	buf = append(buf, data...)
	buf = append(buf, 0) // trailing pad byte
	return buf
}

func TestReceiveFrameAndParseRoundTrip(t *testing.T) {
	data := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	raw := buildFrame(7, 0, 3, ReadHoldingRegisters, byte(len(data)), data)

	r := bytes.NewReader(raw)
	buf := make([]byte, MaxFrameSize)
	got, err := ReceiveFrame(r, buf)
	require.NoError(t, err)
	require.Equal(t, raw, got)

	frame, err := ParseFrame(got)
	require.NoError(t, err)
	require.Equal(t, uint16(7), frame.TransactionID)
	require.Equal(t, uint8(3), frame.UnitID)
	require.Equal(t, uint8(ReadHoldingRegisters), frame.FunctionCode)
	require.Equal(t, data, frame.Data)
}

func TestReceiveFrameShortBufferErrors(t *testing.T) {
	r := bytes.NewReader(make([]byte, HeaderLen))
	_, err := ReceiveFrame(r, make([]byte, HeaderLen))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ResourceExhausted))
}

func TestReceiveFrameTruncatedBodyErrors(t *testing.T) {
	raw := buildFrame(1, 0, 1, ReadHoldingRegisters, 4, []byte{1, 2, 3, 4})
	r := bytes.NewReader(raw[:len(raw)-1]) // drop the last byte of the body

	buf := make([]byte, MaxFrameSize)
	_, err := ReceiveFrame(r, buf)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestParseFrameInconsistentLengthErrors(t *testing.T) {
	raw := buildFrame(1, 0, 1, ReadHoldingRegisters, 4, []byte{1, 2, 3, 4})
	raw[5] = 0xFF // corrupt the length field so it no longer matches dataLength+3

	_, err := ParseFrame(raw)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ProtocolInvalid))
}

func TestParseFrameTooShortErrors(t *testing.T) {
	_, err := ParseFrame(make([]byte, HeaderLen))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ProtocolInvalid))
}

func TestParseFrameBodyLengthMismatchErrors(t *testing.T) {
	raw := buildFrame(1, 0, 1, ReadHoldingRegisters, 4, []byte{1, 2, 3, 4})
	raw = raw[:len(raw)-1] // body one byte short of dataLength, but length field left consistent with dataLength

	_, err := ParseFrame(raw)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ProtocolInvalid))
}
