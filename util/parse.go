package util

import (
	"strconv"
	"strings"
)

// sizeSuffixes maps a unit suffix to its multiplier in bytes.
var sizeSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
}

// ParseSize parses a human-readable size such as "1MB" or "512KB" into
// bytes. A bare number is taken as bytes. Unparseable input falls back
// to defaultBytes, so a bad request-body limit can never disable the
// limit entirely.
func ParseSize(s string, defaultBytes int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return defaultBytes
	}

	var multiplier int64 = 1
	for _, unit := range sizeSuffixes {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.multiplier
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultBytes
	}
	return val * multiplier
}

// MaskSecret keeps the first visiblePrefix characters of a sensitive
// string and masks the rest. DSNs and client secrets go through this
// before they reach a log line. Strings no longer than the prefix are
// fully masked.
func MaskSecret(s string, visiblePrefix int) string {
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}
