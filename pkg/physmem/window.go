// Package physmem provides width-typed access to physical memory through a
// memory device such as /dev/mem, mapping one page at a time.
package physmem

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the physical memory device on Linux.
const DefaultDevice = "/dev/mem"

// PageSize is the span of a single mapping.
const PageSize = 4096

// Window maps one page of a memory device at a time for synchronous
// read/write. Requesting an address on a different page unmaps the previous
// mapping first, so at most one mapping is ever live. Hardware registers
// have side effects on access, so every read and write goes through the
// mapping exactly once, at the requested width.
//
// A Window is not safe for concurrent use.
type Window struct {
	file    *os.File
	mapping []byte
	page    uint64
	mapped  bool
}

// Open opens the memory device for uncached synchronous access. The device
// stays open until Close.
func Open(device string) (*Window, error) {
	f, err := os.OpenFile(device, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("physmem: failed to open %s: %w", device, err)
	}
	return &Window{file: f}, nil
}

// Close unmaps the current page, if any, and closes the device.
func (w *Window) Close() error {
	if w.mapped {
		if err := unix.Munmap(w.mapping); err != nil {
			return fmt.Errorf("physmem: munmap failed: %w", err)
		}
		w.mapped = false
	}
	return w.file.Close()
}

// Read performs a single access of the given width (1, 2 or 4 bytes) at the
// physical address and returns the value zero-extended to 32 bits.
func (w *Window) Read(addr uint64, width uint) (uint32, error) {
	p, err := w.slot(addr, width)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint32(*(*uint8)(p)), nil
	case 2:
		return uint32(*(*uint16)(p)), nil
	default:
		return atomic.LoadUint32((*uint32)(p)), nil
	}
}

// Write performs a single store of the given width (1, 2 or 4 bytes) at the
// physical address.
func (w *Window) Write(addr uint64, width uint, value uint32) error {
	p, err := w.slot(addr, width)
	if err != nil {
		return err
	}
	switch width {
	case 1:
		*(*uint8)(p) = uint8(value)
	case 2:
		*(*uint16)(p) = uint16(value)
	default:
		atomic.StoreUint32((*uint32)(p), value)
	}
	return nil
}

// slot maps the page containing addr, remapping if the current mapping
// covers a different page, and returns a pointer to the addressed slot.
func (w *Window) slot(addr uint64, width uint) (unsafe.Pointer, error) {
	switch width {
	case 1, 2, 4:
	default:
		return nil, fmt.Errorf("physmem: unsupported access width %d", width)
	}
	if addr%uint64(width) != 0 {
		return nil, fmt.Errorf("physmem: address 0x%08x not aligned for width %d", addr, width)
	}

	page := addr &^ uint64(PageSize-1)
	if !w.mapped || page != w.page {
		if w.mapped {
			if err := unix.Munmap(w.mapping); err != nil {
				return nil, fmt.Errorf("physmem: munmap failed: %w", err)
			}
			w.mapped = false
		}
		m, err := unix.Mmap(int(w.file.Fd()), int64(page), PageSize,
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return nil, fmt.Errorf("physmem: mmap of page 0x%08x failed: %w", page, err)
		}
		w.mapping = m
		w.page = page
		w.mapped = true
	}
	return unsafe.Pointer(&w.mapping[addr&(PageSize-1)]), nil
}
