// Package wasmmem implements the two growable-buffer abstractions the
// interpreter shares across calls: linear memory (Wasm-addressable,
// page-granular) and the scratch heap (a bump-allocator arena backing
// per-frame operand slots).
package wasmmem

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/edsrzf/mmap-go"
)

// PageSize is the unit of linear-memory growth: 64 KiB.
const PageSize = 65536

// Memory is a growable byte buffer whose length is always a multiple of
// PageSize. It is backed by an anonymous mmap region so that growth
// within the declared ceiling never needs to copy the existing pages in
// the common case — the region is reserved up front at MaxPages and the
// live length just advances within it, the approach go-interpreter/wagon
// uses its mmap-go dependency for.
type Memory struct {
	region   mmap.MMap
	lenBytes uint64
	maxPages uint32
	// reserved is the number of pages the backing mmap region covers.
	reserved uint32
}

// defaultReserveCeilingPages bounds how much address space NewMemory will
// try to reserve up front when the module declares no maximum; growth
// past this still works, it just falls back to remap-and-copy.
const defaultReserveCeilingPages = 4096 // 256 MiB

// NewMemory allocates a linear memory with an initial size of minPages
// and an optional declared maximum (-1 for none).
func NewMemory(minPages uint32, maxPagesOrNeg int64) (*Memory, error) {
	reserve := minPages
	var maxPages uint32
	if maxPagesOrNeg >= 0 {
		maxPages = uint32(maxPagesOrNeg)
		reserve = maxPages
	} else {
		maxPages = math.MaxUint32
		reserve = minPages
		if reserve < defaultReserveCeilingPages {
			reserve = defaultReserveCeilingPages
		}
	}
	if reserve == 0 {
		reserve = 1
	}
	region, err := mmap.MapRegion(nil, int(reserve)*PageSize, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("wasmmem: reserving %d pages: %w", reserve, err)
	}
	return &Memory{
		region:   region,
		lenBytes: uint64(minPages) * PageSize,
		maxPages: maxPages,
		reserved: reserve,
	}, nil
}

// SizePages returns the current size in pages.
func (m *Memory) SizePages() uint32 { return uint32(m.lenBytes / PageSize) }

// Len returns the current size in bytes.
func (m *Memory) Len() uint64 { return m.lenBytes }

// Grow grows the memory by delta pages. It returns the previous page
// count on success, or false if the declared maximum would be exceeded
// or the allocator refuses — memory.grow never traps, it signals
// failure to its caller with -1 (0xFFFFFFFF) at the IR level.
func (m *Memory) Grow(delta uint32) (previous uint32, ok bool) {
	previous = m.SizePages()
	newPages := previous + delta
	if delta != 0 && newPages < previous { // overflow
		return previous, false
	}
	if newPages > m.maxPages {
		return previous, false
	}
	if newPages > m.reserved {
		if err := m.regrow(newPages); err != nil {
			return previous, false
		}
	}
	m.lenBytes = uint64(newPages) * PageSize
	return previous, true
}

// regrow remaps a larger anonymous region and copies the live bytes over,
// used only when growth exceeds the region reserved by NewMemory.
func (m *Memory) regrow(newPages uint32) error {
	newReserve := newPages * 2
	if newReserve < newPages {
		newReserve = newPages
	}
	region, err := mmap.MapRegion(nil, int(newReserve)*PageSize, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return err
	}
	copy(region, m.region[:m.lenBytes])
	_ = m.region.Unmap()
	m.region = region
	m.reserved = newReserve
	return nil
}

func (m *Memory) checkBounds(offset, index uint32, size uint64) (ea uint64, ok bool) {
	ea = uint64(offset) + uint64(index)
	if ea+size > m.lenBytes {
		return 0, false
	}
	return ea, true
}

// ReadByte, ReadU16, ReadU32, ReadU64 load unaligned little-endian
// integers at offset+index, trapping (returning ok=false) when
// ea+sizeof(T) > len.

func (m *Memory) ReadByte(offset, index uint32) (byte, bool) {
	ea, ok := m.checkBounds(offset, index, 1)
	if !ok {
		return 0, false
	}
	return m.region[ea], true
}

func (m *Memory) ReadU16(offset, index uint32) (uint16, bool) {
	ea, ok := m.checkBounds(offset, index, 2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(m.region[ea : ea+2]), true
}

func (m *Memory) ReadU32(offset, index uint32) (uint32, bool) {
	ea, ok := m.checkBounds(offset, index, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.region[ea : ea+4]), true
}

func (m *Memory) ReadU64(offset, index uint32) (uint64, bool) {
	ea, ok := m.checkBounds(offset, index, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(m.region[ea : ea+8]), true
}

func (m *Memory) WriteByte(offset, index uint32, v byte) bool {
	ea, ok := m.checkBounds(offset, index, 1)
	if !ok {
		return false
	}
	m.region[ea] = v
	return true
}

func (m *Memory) WriteU16(offset, index uint32, v uint16) bool {
	ea, ok := m.checkBounds(offset, index, 2)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint16(m.region[ea:ea+2], v)
	return true
}

func (m *Memory) WriteU32(offset, index uint32, v uint32) bool {
	ea, ok := m.checkBounds(offset, index, 4)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint32(m.region[ea:ea+4], v)
	return true
}

func (m *Memory) WriteU64(offset, index uint32, v uint64) bool {
	ea, ok := m.checkBounds(offset, index, 8)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint64(m.region[ea:ea+8], v)
	return true
}

// Copy implements memory.copy: copies n bytes from src to dst, bounds
// checking both endpoints and handling overlap correctly. Zero-length
// operations succeed even at the boundary (dst or src == len).
func (m *Memory) Copy(dst, src, n uint32) bool {
	if _, ok := m.checkBounds(dst, 0, uint64(n)); !ok && n != 0 {
		return false
	}
	if _, ok := m.checkBounds(src, 0, uint64(n)); !ok && n != 0 {
		return false
	}
	if uint64(dst)+uint64(n) > m.lenBytes || uint64(src)+uint64(n) > m.lenBytes {
		return false
	}
	if n == 0 {
		return true
	}
	copy(m.region[dst:uint64(dst)+uint64(n)], m.region[src:uint64(src)+uint64(n)])
	return true
}

// Fill implements memory.fill: sets n bytes starting at dst to val.
func (m *Memory) Fill(dst uint32, val byte, n uint32) bool {
	if uint64(dst)+uint64(n) > m.lenBytes {
		return false
	}
	if n == 0 {
		return true
	}
	region := m.region[dst : uint64(dst)+uint64(n)]
	for i := range region {
		region[i] = val
	}
	return true
}

// InitData writes a data segment's bytes at absolute address offset,
// used during data-segment initialization at instantiation time.
func (m *Memory) InitData(offset uint32, data []byte) bool {
	if uint64(offset)+uint64(len(data)) > m.lenBytes {
		return false
	}
	copy(m.region[offset:], data)
	return true
}

// Slice exposes a raw view of the live bytes, used by wami.Memory.Read
// and by host calls that need a contiguous []byte.
func (m *Memory) Slice() []byte { return m.region[:m.lenBytes] }

// Close releases the backing mmap region.
func (m *Memory) Close() error { return m.region.Unmap() }
