package signals

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseMapsLineValid(t *testing.T) {
	start, end, perms, ok := parseMapsLine("55a1b2c00000-55a1b2c21000 r--p 00000000 00:1f 123 /usr/bin/foo")
	require.True(t, ok)
	require.Equal(t, uint64(0x55a1b2c00000), start)
	require.Equal(t, uint64(0x55a1b2c21000), end)
	require.Equal(t, "r--p", perms)
}

func TestParseMapsLineAnonymousRegion(t *testing.T) {
	start, end, perms, ok := parseMapsLine("7f0000000000-7f0000021000 rw-p 00000000 00:00 0")
	require.True(t, ok)
	require.Equal(t, uint64(0x7f0000000000), start)
	require.Equal(t, uint64(0x7f0000021000), end)
	require.Equal(t, "rw-p", perms)
}

func TestParseMapsLineMalformed(t *testing.T) {
	_, _, _, ok := parseMapsLine("not a maps line")
	require.False(t, ok)
}

func TestParseMapsLineEmpty(t *testing.T) {
	_, _, _, ok := parseMapsLine("")
	require.False(t, ok)
}

func TestDumpTimestampFormat(t *testing.T) {
	ts := dumpTimestamp()
	_, err := time.Parse("20060102_150405", ts)
	require.NoError(t, err)
}

func TestWriteCrashDumpCreatesFileWithExpectedContents(t *testing.T) {
	dir := t.TempDir()
	path, err := writeCrashDump(dir, 11, 4242)
	require.NoError(t, err)
	require.FileExists(t, path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "signal: 11\n")
	require.Contains(t, string(content), "pid: 4242\n")
	require.Contains(t, string(content), "Memory Regions:\n")
}
