package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
)

// ByteSize wraps datasize.ByteSize with a size-string grammar accepting
// decimal suffixes "K"/"M"/"G" and their power-of-two equivalents.
// datasize.ByteSize's own UnmarshalText only understands
// the "KB"/"MB"/"GB"/"KiB"/"MiB"/"GiB" family (and is itself
// binary-based under decimal-looking names), so ByteSize normalizes the
// shorthand before delegating.
type ByteSize datasize.ByteSize

// Bytes returns the size in bytes.
func (b ByteSize) Bytes() uint64 { return uint64(b) }

// UnmarshalJSON accepts either a JSON number (bytes) or a size string
// such as "64K", "16M", "1G", "64Ki", "16Mi", "1Gi".
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		*b = ByteSize(uint64(v))
		return nil
	case string:
		parsed, err := ParseSize(v)
		if err != nil {
			return err
		}
		*b = parsed
		return nil
	default:
		return fmt.Errorf("config: size value must be a number or string, got %T", raw)
	}
}

// ParseSize parses a size string of the form "<number><suffix>" where
// suffix is one of "", "B", "K", "M", "G" (decimal, base 1000) or "Ki",
// "Mi", "Gi" (binary, base 1024).
func ParseSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("config: empty size string")
	}

	// Find where the numeric prefix ends.
	i := 0
	for i < len(s) && (s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("config: size string %q has no numeric value", s)
	}

	numPart, suffix := s[:i], strings.TrimSpace(s[i:])
	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid size value %q: %w", s, err)
	}

	var mult float64
	switch strings.ToUpper(suffix) {
	case "", "B":
		mult = 1
	case "K":
		mult = 1000
	case "M":
		mult = 1000 * 1000
	case "G":
		mult = 1000 * 1000 * 1000
	case "KI", "KIB":
		mult = float64(datasize.KB)
	case "MI", "MIB":
		mult = float64(datasize.MB)
	case "GI", "GIB":
		mult = float64(datasize.GB)
	default:
		return 0, fmt.Errorf("config: unrecognized size suffix %q in %q", suffix, s)
	}

	return ByteSize(uint64(value * mult)), nil
}
