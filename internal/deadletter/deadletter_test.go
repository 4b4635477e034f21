package deadletter

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteAppendsLengthPrefixedFrame(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("a failed batch of encoded rows")

	require.NoError(t, Write(dir, "sensor_1", payload))

	name := "deadletter_sensor_1_" + time.Now().UTC().Format("20060102") + ".bin"
	raw, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	require.Len(t, raw, 8+len(payload))

	gotLen := binary.LittleEndian.Uint64(raw[:8])
	require.Equal(t, uint64(len(payload)), gotLen)
	require.Equal(t, payload, raw[8:])
}

func TestWriteAppendsMultipleBatchesToSameFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "sensor_1", []byte("first")))
	require.NoError(t, Write(dir, "sensor_1", []byte("second-batch")))

	name := "deadletter_sensor_1_" + time.Now().UTC().Format("20060102") + ".bin"
	raw, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	firstLen := binary.LittleEndian.Uint64(raw[0:8])
	require.Equal(t, uint64(len("first")), firstLen)
	require.Equal(t, []byte("first"), raw[8:8+firstLen])

	secondOff := 8 + firstLen
	secondLen := binary.LittleEndian.Uint64(raw[secondOff : secondOff+8])
	require.Equal(t, uint64(len("second-batch")), secondLen)
	require.Equal(t, []byte("second-batch"), raw[secondOff+8:secondOff+8+secondLen])
}

func TestWriteCreatesDirIfMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deadletters")
	require.NoError(t, Write(dir, "sensor_2", []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteSeparatesFilesPerTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "sensor_a", []byte("a")))
	require.NoError(t, Write(dir, "sensor_b", []byte("b")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
