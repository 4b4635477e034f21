// Package deadletter appends batches that failed to insert into the
// database to a per-table, per-day file so operators can inspect or
// replay them offline. This does not provide automatic retry; it is
// forensics only, consistent with the ingestion pipeline's best-effort
// at-most-once delivery contract.
package deadletter

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Write appends one failed batch to dir/deadletter_<table>_<YYYYMMDD>.bin,
// framed the same way a pipe snapshot frames each buffer: an 8-byte
// little-endian length prefix followed by the raw packet-aligned bytes.
func Write(dir, table string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("deadletter: create dir %s: %w", dir, err)
	}

	name := fmt.Sprintf("deadletter_%s_%s.bin", table, time.Now().UTC().Format("20060102"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("deadletter: open %s: %w", path, err)
	}
	defer f.Close()

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(data)))
	if _, err := f.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("deadletter: write length prefix to %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("deadletter: write payload to %s: %w", path, err)
	}
	return nil
}
