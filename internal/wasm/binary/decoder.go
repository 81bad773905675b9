// Package binary implements the section dispatcher and per-section
// parsers that turn a raw Wasm byte slice into a *wasm.Module: the
// 8-byte header check, the (id, length, bytes) section loop, and each
// section-specific parser that updates the in-progress module.
package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/wami-rt/wami/internal/leb128"
	"github.com/wami-rt/wami/internal/wasm"
	"github.com/wami-rt/wami/internal/wasmdebug"
)

// Section ids, per spec.md section 6.
const (
	SectionCustom    = 0
	SectionType      = 1
	SectionImport    = 2
	SectionFunction  = 3
	SectionTable     = 4
	SectionMemory    = 5
	SectionGlobal    = 6
	SectionExport    = 7
	SectionStart     = 8
	SectionElement   = 9
	SectionCode      = 10
	SectionData      = 11
	SectionDataCount = 12
)

var magic = [4]byte{0x00, 0x61, 0x73, 0x6d}

const version = uint32(1)

// reader is the byte cursor every section parser reads from. It wraps
// bytes.Reader so it can report the current offset for diagnostics.
type reader struct {
	*bytes.Reader
	base int // absolute file offset this reader's zero corresponds to
}

func newReader(b []byte, base int) *reader {
	return &reader{Reader: bytes.NewReader(b), base: base}
}

func (r *reader) pos() int { return r.base + int(r.Size()) - r.Len() }

func (r *reader) readByte() (byte, error) { return r.ReadByte() }

func (r *reader) readBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, wrapEOF(err)
	}
	return buf, nil
}

func (r *reader) readVarU32() (uint32, error) {
	v, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return 0, wrapEOF(err)
	}
	return v, nil
}

func (r *reader) readVarU64() (uint64, error) {
	v, _, err := leb128.DecodeUint64(r)
	if err != nil {
		return 0, wrapEOF(err)
	}
	return v, nil
}

func (r *reader) readVarI32() (int32, error) {
	v, _, err := leb128.DecodeInt32(r)
	if err != nil {
		return 0, wrapEOF(err)
	}
	return v, nil
}

func (r *reader) readVarI64() (int64, error) {
	v, _, err := leb128.DecodeInt64(r)
	if err != nil {
		return 0, wrapEOF(err)
	}
	return v, nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readVarU32()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func wrapEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return wasmdebug.New(wasmdebug.UnexpectedEOF, "unexpected end of input")
	}
	return err
}

// DecodeModule verifies the 8-byte header and consumes the section
// sequence, delegating to a section-specific parser for each, updating
// m in place. resolver is consulted for every function import.
func DecodeModule(b []byte, resolver wasm.Resolver) (*wasm.Module, error) {
	if len(b) < 8 {
		return nil, wasmdebug.New(wasmdebug.BadExecutable, "module too short for header")
	}
	if !bytes.Equal(b[0:4], magic[:]) {
		return nil, wasmdebug.New(wasmdebug.BadExecutable, "bad magic")
	}
	if binary.LittleEndian.Uint32(b[4:8]) != version {
		return nil, wasmdebug.New(wasmdebug.BadExecutable, "unsupported version")
	}

	d := &decoder{m: &wasm.Module{}, resolver: resolver}
	r := newReader(b[8:], 8)

	var lastID = -1
	for r.Len() > 0 {
		id, err := r.readByte()
		if err != nil {
			return nil, err
		}
		size, err := r.readVarU32()
		if err != nil {
			return nil, err
		}
		payload, err := r.readBytes(int(size))
		if err != nil {
			return nil, err
		}

		if int(id) != SectionCustom {
			if int(id) <= lastID {
				return nil, wasmdebug.New(wasmdebug.UnexpectedToken, "sections out of order").WithSection(sectionName(int(id)))
			}
			lastID = int(id)
		}

		sr := newReader(payload, r.pos()-len(payload))
		if err := d.decodeSection(int(id), sr); err != nil {
			if de, ok := err.(*wasmdebug.DecodeError); ok {
				return nil, de.WithSection(sectionName(int(id)))
			}
			return nil, err
		}
	}

	d.m.BuildExportIndex()
	return d.m, nil
}

type decoder struct {
	m        *wasm.Module
	resolver wasm.Resolver

	// firstInternalIndex is the absolute function index of the first
	// internally-defined function (set by decodeFunctionSection);
	// internalFuncIndex walks forward from there as decodeCodeSection
	// fills in each placeholder descriptor in order.
	firstInternalIndex uint32
	internalFuncIndex  uint32
}

func (d *decoder) decodeSection(id int, r *reader) error {
	switch id {
	case SectionCustom:
		return d.decodeCustomSection(r)
	case SectionType:
		return d.decodeTypeSection(r)
	case SectionImport:
		return d.decodeImportSection(r)
	case SectionFunction:
		return d.decodeFunctionSection(r)
	case SectionTable:
		return d.decodeTableSection(r)
	case SectionMemory:
		return d.decodeMemorySection(r)
	case SectionGlobal:
		return d.decodeGlobalSection(r)
	case SectionExport:
		return d.decodeExportSection(r)
	case SectionStart:
		return d.decodeStartSection(r)
	case SectionElement:
		return d.decodeElementSection(r)
	case SectionCode:
		return d.decodeCodeSection(r)
	case SectionData:
		return d.decodeDataSection(r)
	case SectionDataCount:
		return d.decodeDataCountSection(r)
	default:
		return wasmdebug.New(wasmdebug.UnexpectedToken, fmt.Sprintf("unknown section id %d", id))
	}
}

func sectionName(id int) string {
	names := []string{"custom", "type", "import", "function", "table", "memory", "global",
		"export", "start", "element", "code", "data", "data count"}
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return fmt.Sprintf("section(%d)", id)
}
