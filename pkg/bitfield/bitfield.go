// Package bitfield implements extraction and injection of contiguous bit
// ranges within 32-bit register values, plus parsing of the textual
// "start[-end]" bit specification used in register specs and definition
// files.
package bitfield

import (
	"fmt"
	"strconv"
	"strings"
)

// Extract returns the value of the count-bit field starting at bit start
// within raw. The caller guarantees 1 <= count <= 32-start.
func Extract(raw uint32, start, count uint) uint32 {
	return (raw >> start) & Max(count)
}

// Inject returns raw with the count-bit field starting at bit start replaced
// by value. Bits of value beyond the field width are discarded. The caller
// guarantees 1 <= count <= 32-start; validating value against the field's
// representable range is also the caller's job.
func Inject(raw uint32, start, count uint, value uint32) uint32 {
	m := Max(count) << start
	return (raw &^ m) | ((value << start) & m)
}

// Max returns the largest value representable in a count-bit field.
func Max(count uint) uint32 {
	if count >= 32 {
		return ^uint32(0)
	}
	return 1<<count - 1
}

// ParseRange parses a bit specification of the form "start[-end]" with both
// numbers in decimal. A reversed range such as "7-4" is accepted and
// normalized. The result always satisfies start <= 31 and
// 1 <= count <= 32-start.
func ParseRange(spec string) (start, count uint, err error) {
	first, second, ranged := strings.Cut(spec, "-")

	lo, err := strconv.ParseUint(first, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bitfield: invalid bit range %q: use decimal start[-end]", spec)
	}
	hi := lo
	if ranged {
		hi, err = strconv.ParseUint(second, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("bitfield: invalid bit range %q: use decimal start[-end]", spec)
		}
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	if lo > 31 || hi > 31 {
		return 0, 0, fmt.Errorf("bitfield: bit range %q out of bounds: bits are numbered 0-31", spec)
	}
	return uint(lo), uint(hi - lo + 1), nil
}
