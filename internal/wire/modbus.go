// Package wire implements the Modbus TCP-like frame protocol sensors
// speak over their socket connection: a 7-byte header, a function
// code and data-length byte, and the payload itself.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sensorbridge/sensorbridge/internal/errs"
)

const (
	// HeaderLen is the length of the fixed Modbus TCP header: transaction
	// id (2), protocol id (2), length (2), unit id (1).
	HeaderLen = 7
	// MaxFrameSize bounds a complete frame (header + function code +
	// data-length byte + payload).
	MaxFrameSize = 260
	// ReadHoldingRegisters is the only function code this pipeline
	// accepts; frames with any other code are parsed but dropped.
	ReadHoldingRegisters = 0x03
)

// Frame is one fully received and validated Modbus frame.
type Frame struct {
	TransactionID uint16
	ProtocolID    uint16
	UnitID        uint8
	FunctionCode  uint8
	Data          []byte
}

// ReceiveFrame performs a two-phase read: read the fixed header to learn
// the frame's total length, then read exactly that many remaining bytes. buf must be at least MaxFrameSize bytes;
// the returned slice aliases it.
func ReceiveFrame(r io.Reader, buf []byte) ([]byte, error) {
	if len(buf) < MaxFrameSize {
		return nil, errs.New(errs.ResourceExhausted, "wire: receive buffer smaller than MaxFrameSize")
	}

	if _, err := io.ReadFull(r, buf[:HeaderLen]); err != nil {
		return nil, errs.Wrap(errs.IOFatal, fmt.Errorf("wire: read header: %w", err))
	}

	length := binary.BigEndian.Uint16(buf[4:6])
	total := HeaderLen + int(length)
	if total > len(buf) {
		return nil, errs.New(errs.ProtocolInvalid, "wire: frame too large for buffer: total=%d", total)
	}

	if total > HeaderLen {
		if _, err := io.ReadFull(r, buf[HeaderLen:total]); err != nil {
			return nil, errs.Wrap(errs.IOFatal, fmt.Errorf("wire: read frame body: %w", err))
		}
	}

	return buf[:total], nil
}

// ParseFrame validates and decodes a complete frame received by
// ReceiveFrame. It returns errs.ProtocolInvalid for any frame whose
// Length field is inconsistent with its DataLength byte, or whose total
// size does not match HeaderLen plus its Length field.
func ParseFrame(raw []byte) (*Frame, error) {
	if len(raw) < HeaderLen+2 {
		return nil, errs.New(errs.ProtocolInvalid, "wire: frame shorter than minimum header: %d bytes", len(raw))
	}

	length := binary.BigEndian.Uint16(raw[4:6])
	unitID := raw[6]
	functionCode := raw[7]
	dataLength := raw[8]

	if int(length) != int(dataLength)+3 {
		return nil, errs.New(errs.ProtocolInvalid, "wire: inconsistent frame lengths: length=%d dataLength=%d", length, dataLength)
	}
	if len(raw) != HeaderLen+int(length) {
		return nil, errs.New(errs.ProtocolInvalid, "wire: frame body length %d does not match dataLength %d", len(raw)-HeaderLen-2, dataLength)
	}

	return &Frame{
		TransactionID: binary.BigEndian.Uint16(raw[0:2]),
		ProtocolID:    binary.BigEndian.Uint16(raw[2:4]),
		UnitID:        unitID,
		FunctionCode:  functionCode,
		Data:          raw[9 : 9+int(dataLength)],
	}, nil
}
