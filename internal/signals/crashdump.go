package signals

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const maxRegionSize = 1 << 20 // 1 MiB

// writeCrashDump writes dir/sdb_dump_<YYYYMMDD_HHMMSS>_sig<N>_thread<TID>.dump:
// a text header, a goroutine stack trace, then "Memory Regions:" followed
// by one "Region:" entry per /proc/self/maps line, skipping regions
// larger than 1 MiB and copying bytes only for regions actually
// readable from this process.
func writeCrashDump(dir string, sig, pid int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("signals: create dump dir %s: %w", dir, err)
	}

	tid := unix.Gettid()
	name := fmt.Sprintf("sdb_dump_%s_sig%d_thread%d.dump", dumpTimestamp(), sig, tid)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("signals: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "signal: %d\npid: %d\nthread: %d\ntime: %s\n\n", sig, pid, tid, time.Now().UTC().Format(time.RFC3339))

	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	w.Write(buf[:n])
	w.WriteString("\n")

	w.WriteString("Memory Regions:\n")
	writeMemoryRegions(w)

	return path, w.Flush()
}

func writeMemoryRegions(w *bufio.Writer) {
	maps, err := os.Open("/proc/self/maps")
	if err != nil {
		fmt.Fprintf(w, "Region: unavailable (%s)\n", err)
		return
	}
	defer maps.Close()

	sc := bufio.NewScanner(maps)
	for sc.Scan() {
		line := sc.Text()
		start, end, perms, ok := parseMapsLine(line)
		if !ok {
			continue
		}
		size := end - start
		fmt.Fprintf(w, "Region: %s size=%d\n", line, size)

		if size > maxRegionSize || !strings.Contains(perms, "r") {
			continue
		}
		mem, err := os.ReadFile(fmt.Sprintf("/proc/self/map_files/%x-%x", start, end))
		if err != nil {
			continue
		}
		w.Write(mem)
		w.WriteString("\n")
	}
}

// parseMapsLine extracts the start/end address range and permission
// string from one /proc/self/maps line, e.g.
// "55a1b2c00000-55a1b2c21000 r--p 00000000 00:1f 123 /usr/bin/foo".
func parseMapsLine(line string) (start, end uint64, perms string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, 0, "", false
	}
	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return 0, 0, "", false
	}
	s, err1 := strconv.ParseUint(addrs[0], 16, 64)
	e, err2 := strconv.ParseUint(addrs[1], 16, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, "", false
	}
	return s, e, fields[1], true
}

func dumpTimestamp() string {
	return time.Now().UTC().Format("20060102_150405")
}
