package internal

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize parses sizes such as "4M", "128k", "64KiB" or "1048576". Single
// letter suffixes are binary (k = 1024), matching the chunk method syntax.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	switch s[len(s)-1] {
	case 'k', 'K', 'm', 'M', 'g', 'G', 't', 'T':
		s += "iB"
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}

// FormatBytes renders n in IEC units for log and CLI output.
func FormatBytes(n uint64) string {
	return humanize.IBytes(n)
}
