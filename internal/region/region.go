// Package region parses the address and size arguments given on the
// command line.
//
// A region is written as START, START-END or START+SIZE. Every number is
// decimal, octal with a leading 0, or hex with a 0x prefix, and may carry a
// k, K, M or G suffix for Kibibyte, Mebibyte or Gibibyte.
//
//	0x1000-0x2000 -> start = 0x1000, size = 0x1001
//	0x1000+0x1000 -> start = 0x1000, size = 0x1000
//	0x1000        -> start = 0x1000, size = SizeMax
//	1M+1k         -> start = 0x100000, size = 0x400
package region

import (
	"fmt"
	"strconv"

	"memtool/internal/common"
	"memtool/internal/memtool"
)

// SizeMax is the size of a region given without end or size term: everything
// from the start address on.
const SizeMax = ^uint64(0)

// Area is a parsed region.
type Area struct {
	Start uint64
	Size  uint64
}

// End returns the last address inside the area.
func (a Area) End() uint64 {
	if a.Size == 0 {
		return a.Start
	}
	if a.Size > SizeMax-a.Start {
		return SizeMax
	}
	return a.Start + a.Size - 1
}

func (a Area) String() string {
	if a.Size == SizeMax {
		return fmt.Sprintf("0x%x", a.Start)
	}
	return fmt.Sprintf("0x%x+0x%x", a.Start, a.Size)
}

// ParseArea parses a region specifier.
func ParseArea(spec string) (Area, error) {
	var a Area

	if spec == "" || !isDigit(spec[0]) {
		return a, common.NewError(memtool.ErrSyntax, "", "region must start with a number")
	}

	start, rest, err := ParseUint(spec)
	if err != nil {
		return a, err
	}
	a.Start = start

	if rest == "" {
		// beginning given, but no size, assume maximum size
		a.Size = SizeMax
		return a, nil
	}

	switch rest[0] {
	case '-':
		end, _, err := ParseUint(rest[1:])
		if err != nil {
			return a, err
		}
		if end < start {
			return a, common.NewErrorf(memtool.ErrRange, "", "end < start (0x%x < 0x%x)", end, start)
		}
		a.Size = end - start + 1
		if a.Size == 0 {
			// 0-0xffffffffffffffff wraps around
			a.Size = SizeMax
		}
		return a, nil
	case '+':
		size, _, err := ParseUint(rest[1:])
		if err != nil {
			return a, err
		}
		a.Size = size
		return a, nil
	}

	return a, common.NewErrorf(memtool.ErrSyntax, "", "unexpected %q after start address", rest)
}

// ParseUint parses the leading numeral of s with an optional scale suffix
// and returns the value together with the unparsed remainder.
//
// The suffixes cascade: G scales by 1024 three times, M twice, k and K once.
func ParseUint(s string) (uint64, string, error) {
	val, rest, err := parseNumeral(s)
	if err != nil {
		return 0, s, err
	}

	if rest == "" {
		return val, rest, nil
	}

	ok := true
	switch rest[0] {
	case 'G':
		val, ok = scale(val, ok)
		fallthrough
	case 'M':
		val, ok = scale(val, ok)
		fallthrough
	case 'k', 'K':
		val, ok = scale(val, ok)
		rest = rest[1:]
	}
	if !ok {
		return 0, s, common.NewErrorf(memtool.ErrRange, "", "value out of range: %s", s)
	}

	return val, rest, nil
}

// ParseValue parses a complete data value: a numeral without suffix,
// optionally negative. Negative values wrap to their two's complement.
func ParseValue(s string) (uint64, error) {
	neg := false
	num := s
	if num != "" && (num[0] == '-' || num[0] == '+') {
		neg = num[0] == '-'
		num = num[1:]
	}

	val, rest, err := parseNumeral(num)
	if err != nil {
		return 0, err
	}
	if rest != "" {
		return 0, common.NewErrorf(memtool.ErrSyntax, "", "invalid number %q", s)
	}

	if neg {
		val = -val
	}
	return val, nil
}

// parseNumeral scans the longest numeral prefix of s, auto-detecting the base
// from its prefix.
func parseNumeral(s string) (uint64, string, error) {
	base := 10
	i := 0
	if len(s) > 0 && s[0] == '0' {
		if len(s) > 2 && (s[1] == 'x' || s[1] == 'X') && digitVal(s[2]) < 16 {
			base = 16
			i = 2
		} else {
			base = 8
		}
	}

	start := i
	for i < len(s) && digitVal(s[i]) < base {
		i++
	}
	if i == start {
		return 0, s, common.NewErrorf(memtool.ErrSyntax, "", "invalid number %q", s)
	}

	val, err := strconv.ParseUint(s[start:i], base, 64)
	if err != nil {
		return 0, s, common.NewErrorf(memtool.ErrRange, "", "value out of range: %s", s[:i])
	}

	return val, s[i:], nil
}

func scale(val uint64, ok bool) (uint64, bool) {
	if val > SizeMax/1024 {
		return 0, false
	}
	return val * 1024, ok
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func digitVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 99
}
