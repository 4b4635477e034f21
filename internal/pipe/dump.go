package pipe

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Dump writes a binary snapshot of the pipe's ring to dir/pipe_dump_<ts>.bin:
// a header {buf_count, buffer_max_fill, packet_size, items_per_buffer}
// (all little-endian uint64), followed by, per buffer in index order,
// {used uint64, bytes[used]}. Used by the fatal-signal handler so a
// post-mortem can replay in-flight data.
func (p *Pipe) Dump(dir string, ts string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("pipe: create dump dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("pipe_dump_%s.bin", ts))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("pipe: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeUint64(w, uint64(p.bufCount)); err != nil {
		return "", err
	}
	if err := writeUint64(w, uint64(p.BufferMaxFill)); err != nil {
		return "", err
	}
	if err := writeUint64(w, uint64(p.PacketSize)); err != nil {
		return "", err
	}
	if err := writeUint64(w, uint64(p.ItemMaxCount)); err != nil {
		return "", err
	}

	for _, buf := range p.buffers {
		used := buf.Pos()
		if err := writeUint64(w, used); err != nil {
			return "", err
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", fmt.Errorf("pipe: write buffer bytes to %s: %w", path, err)
		}
	}

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("pipe: flush %s: %w", path, err)
	}
	return path, nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
