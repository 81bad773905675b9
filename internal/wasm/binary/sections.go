package binary

import (
	"github.com/wami-rt/wami/internal/wasm"
	"github.com/wami-rt/wami/internal/wasmdebug"
	"github.com/wami-rt/wami/internal/wazeroir"
)

// decodeCustomSection parses the name subsection (id 0: module name,
// id 1: function names, id 7: global names) and ignores every other
// custom section by name, matching the "custom sections are inert
// unless specifically understood" rule.
func (d *decoder) decodeCustomSection(r *reader) error {
	name, err := r.readString()
	if err != nil {
		return err
	}
	if name != "name" {
		return nil
	}
	if d.m.NameSection == nil {
		d.m.NameSection = wasm.NewNameSection()
	}
	for r.Len() > 0 {
		subID, err := r.readByte()
		if err != nil {
			return err
		}
		size, err := r.readVarU32()
		if err != nil {
			return err
		}
		payload, err := r.readBytes(int(size))
		if err != nil {
			return err
		}
		sr := newReader(payload, r.pos()-len(payload))
		switch subID {
		case 0:
			s, err := sr.readString()
			if err != nil {
				return err
			}
			d.m.NameSection.ModuleName = s
		case 1:
			if err := decodeNameMap(sr, d.m.NameSection.FunctionNames); err != nil {
				return err
			}
		case 7:
			if err := decodeNameMap(sr, d.m.NameSection.GlobalNames); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeNameMap(r *reader, into interface {
	Put(uint32, string)
}) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		idx, err := r.readVarU32()
		if err != nil {
			return err
		}
		name, err := r.readString()
		if err != nil {
			return err
		}
		into.Put(idx, name)
	}
	return nil
}

func valueTypeFromByte(b byte) (wasm.ValueType, error) {
	switch wasm.ValueType(b) {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return wasm.ValueType(b), nil
	default:
		return 0, wasmdebug.New(wasmdebug.InvalidType, "invalid value type byte")
	}
}

func (d *decoder) decodeTypeSection(r *reader) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	d.m.TypeSection = make([]*wasm.FunctionType, 0, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.readByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return wasmdebug.New(wasmdebug.InvalidType, "function type must start with 0x60")
		}
		params, err := decodeValueTypeVec(r)
		if err != nil {
			return err
		}
		results, err := decodeValueTypeVec(r)
		if err != nil {
			return err
		}
		if len(results) > 1 {
			return wasmdebug.New(wasmdebug.UnsupportedOpCode, "multi-value results are not supported")
		}
		d.m.TypeSection = append(d.m.TypeSection, &wasm.FunctionType{Params: params, Results: results})
	}
	return nil
}

func decodeValueTypeVec(r *reader) ([]wasm.ValueType, error) {
	n, err := r.readVarU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.ValueType, n)
	for i := uint32(0); i < n; i++ {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		t, err := valueTypeFromByte(b)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func decodeLimits(r *reader) (wasm.Limits, error) {
	flag, err := r.readByte()
	if err != nil {
		return wasm.Limits{}, err
	}
	min, err := r.readVarU32()
	if err != nil {
		return wasm.Limits{}, err
	}
	l := wasm.Limits{Min: min, Max: -1}
	if flag == 1 {
		max, err := r.readVarU32()
		if err != nil {
			return wasm.Limits{}, err
		}
		l.Max = int64(max)
	}
	return l, nil
}

// decodeImportSection resolves every function import through d.resolver
// immediately (rather than deferring), appending a fully-bound
// FunctionDescriptor in declaration order so internal function indices
// start right after the last import. Table and memory imports bind
// directly since this core supports at most one of each; a global
// import is rejected — this core's Global model assumes an initializer
// known at decode time, so an imported (host-supplied) global has no
// constant value to record.
func (d *decoder) decodeImportSection(r *reader) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		moduleName, err := r.readString()
		if err != nil {
			return err
		}
		importName, err := r.readString()
		if err != nil {
			return err
		}
		kindByte, err := r.readByte()
		if err != nil {
			return err
		}
		kind := wasm.ExternKind(kindByte)
		imp := &wasm.Import{Kind: kind, Module: moduleName, Name: importName}

		switch kind {
		case wasm.ExternKindFunc:
			typeIdx, err := r.readVarU32()
			if err != nil {
				return err
			}
			imp.DescFunc = typeIdx
			if typeIdx >= uint32(len(d.m.TypeSection)) {
				return wasmdebug.New(wasmdebug.InvalidType, "import function type index out of range")
			}
			sig := d.m.TypeSection[typeIdx]
			result := d.resolver.ResolveFunc(moduleName, importName, sig)
			if result.Kind != wasm.ResolvedOK {
				return &wasm.ImportError{Kind: result.Kind, ModuleName: moduleName, ImportName: importName}
			}
			fd := &wasm.FunctionDescriptor{
				Index:     uint32(len(d.m.FunctionSection)),
				TypeIndex: typeIdx,
				Origin:    wasm.OriginImported,
				BodyKind:  wasm.BodyHostFunction,
				Host:      result.Fn,
				Name:      importName,
			}
			d.m.FunctionSection = append(d.m.FunctionSection, fd)
		case wasm.ExternKindTable:
			if _, err := r.readByte(); err != nil { // elemtype, always funcref (0x70)
				return err
			}
			l, err := decodeLimits(r)
			if err != nil {
				return err
			}
			d.m.TableLimits = &l
		case wasm.ExternKindMemory:
			l, err := decodeLimits(r)
			if err != nil {
				return err
			}
			imp.DescMem = l
			d.m.MemoryLimits = &l
		case wasm.ExternKindGlobal:
			return wasmdebug.New(wasmdebug.UnsupportedGlobalType, "imported globals are not supported")
		default:
			return wasmdebug.New(wasmdebug.UnexpectedToken, "invalid import kind")
		}
		d.m.ImportSection = append(d.m.ImportSection, imp)
	}
	return nil
}

// decodeFunctionSection reserves a placeholder FunctionDescriptor (body
// kind Unresolved) for each internally-defined function, in order; the
// code section fills each one in by matching position.
func (d *decoder) decodeFunctionSection(r *reader) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	d.firstInternalIndex = uint32(len(d.m.FunctionSection))
	for i := uint32(0); i < count; i++ {
		typeIdx, err := r.readVarU32()
		if err != nil {
			return err
		}
		if typeIdx >= uint32(len(d.m.TypeSection)) {
			return wasmdebug.New(wasmdebug.InvalidType, "function type index out of range")
		}
		fd := &wasm.FunctionDescriptor{
			Index:     uint32(len(d.m.FunctionSection)),
			TypeIndex: typeIdx,
			Origin:    wasm.OriginInternal,
			BodyKind:  wasm.BodyUnresolved,
		}
		d.m.FunctionSection = append(d.m.FunctionSection, fd)
	}
	return nil
}

func (d *decoder) decodeTableSection(r *reader) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if count > 1 || d.m.TableLimits != nil {
		return wasmdebug.New(wasmdebug.UnsupportedOpCode, "multi-table is not supported")
	}
	if _, err := r.readByte(); err != nil { // elemtype
		return err
	}
	l, err := decodeLimits(r)
	if err != nil {
		return err
	}
	d.m.TableLimits = &l
	return nil
}

func (d *decoder) decodeMemorySection(r *reader) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if count > 1 || d.m.MemoryLimits != nil {
		return wasmdebug.New(wasmdebug.UnsupportedOpCode, "multi-memory is not supported")
	}
	l, err := decodeLimits(r)
	if err != nil {
		return err
	}
	d.m.MemoryLimits = &l
	return nil
}

// decodeConstExpr parses a restricted constant expression: a single
// i32.const/i64.const/f32.const/f64.const immediate followed by `end`.
// global.get of an imported global is deliberately not supported since
// imported globals themselves are rejected at import time.
func decodeConstExpr(r *reader) (wasm.TypedValue, error) {
	op, err := r.readByte()
	if err != nil {
		return wasm.TypedValue{}, err
	}
	var tv wasm.TypedValue
	switch op {
	case 0x41: // i32.const
		v, err := r.readVarI32()
		if err != nil {
			return wasm.TypedValue{}, err
		}
		tv = wasm.TypedValue{Type: wasm.ValueTypeI32, Bits: uint64(uint32(v))}
	case 0x42: // i64.const
		v, err := r.readVarI64()
		if err != nil {
			return wasm.TypedValue{}, err
		}
		tv = wasm.TypedValue{Type: wasm.ValueTypeI64, Bits: uint64(v)}
	case 0x43: // f32.const
		b, err := r.readBytes(4)
		if err != nil {
			return wasm.TypedValue{}, err
		}
		tv = wasm.TypedValue{Type: wasm.ValueTypeF32, Bits: uint64(le32(b))}
	case 0x44: // f64.const
		b, err := r.readBytes(8)
		if err != nil {
			return wasm.TypedValue{}, err
		}
		tv = wasm.TypedValue{Type: wasm.ValueTypeF64, Bits: le64(b)}
	default:
		return wasm.TypedValue{}, wasmdebug.New(wasmdebug.UnsupportedOpCode, "only const initializers are supported")
	}
	end, err := r.readByte()
	if err != nil {
		return wasm.TypedValue{}, err
	}
	if end != 0x0b {
		return wasm.TypedValue{}, wasmdebug.New(wasmdebug.UnexpectedToken, "constant expression must end with `end`")
	}
	return tv, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	return uint64(le32(b[0:4])) | uint64(le32(b[4:8]))<<32
}

// decodeConstExprI32 parses a constant expression and requires it to be
// i32-typed, used for element/data segment offsets.
func decodeConstExprI32(r *reader) (int32, error) {
	tv, err := decodeConstExpr(r)
	if err != nil {
		return 0, err
	}
	if tv.Type != wasm.ValueTypeI32 {
		return 0, wasmdebug.New(wasmdebug.TypeMismatch, "segment offset must be i32")
	}
	return int32(uint32(tv.Bits)), nil
}

func (d *decoder) decodeGlobalSection(r *reader) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		tb, err := r.readByte()
		if err != nil {
			return err
		}
		t, err := valueTypeFromByte(tb)
		if err != nil {
			return err
		}
		mutByte, err := r.readByte()
		if err != nil {
			return err
		}
		init, err := decodeConstExpr(r)
		if err != nil {
			return err
		}
		if init.Type != t {
			return wasmdebug.New(wasmdebug.TypeMismatch, "global initializer type mismatch")
		}
		d.m.GlobalSection = append(d.m.GlobalSection, &wasm.Global{Type: t, Mutable: mutByte == 1, Init: init})
	}
	return nil
}

func (d *decoder) decodeExportSection(r *reader) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.readString()
		if err != nil {
			return err
		}
		kindByte, err := r.readByte()
		if err != nil {
			return err
		}
		idx, err := r.readVarU32()
		if err != nil {
			return err
		}
		d.m.ExportSection = append(d.m.ExportSection, &wasm.Export{Name: name, Kind: wasm.ExternKind(kindByte), Index: idx})
	}
	return nil
}

func (d *decoder) decodeStartSection(r *reader) error {
	idx, err := r.readVarU32()
	if err != nil {
		return err
	}
	if idx >= uint32(len(d.m.FunctionSection)) {
		return wasmdebug.New(wasmdebug.InvalidType, "start function index out of range")
	}
	d.m.StartIndex = &idx
	return nil
}

func (d *decoder) decodeElementSection(r *reader) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		tableIdx, err := r.readVarU32()
		if err != nil {
			return err
		}
		if tableIdx != 0 {
			return wasmdebug.New(wasmdebug.UnsupportedOpCode, "multi-table is not supported")
		}
		offset, err := decodeConstExprI32(r)
		if err != nil {
			return err
		}
		n, err := r.readVarU32()
		if err != nil {
			return err
		}
		fns := make([]uint32, n)
		for j := uint32(0); j < n; j++ {
			idx, err := r.readVarU32()
			if err != nil {
				return err
			}
			fns[j] = idx
		}
		d.m.ElementSection = append(d.m.ElementSection, &wasm.ElementSegment{TableIndex: tableIdx, Offset: offset, FuncIndex: fns})
	}
	return nil
}

// decodeCodeSection fills in each Unresolved internal FunctionDescriptor
// reserved by decodeFunctionSection, compiling each body inline via
// wazeroir.Compile: by Wasm's section-ordering rule, every piece of
// module-level context Compile needs (types, globals, memory/table
// presence) is already fully parsed by the time the code section is
// reached, so a deferred second compilation pass buys nothing.
func (d *decoder) decodeCodeSection(r *reader) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	if int(count) != len(d.m.FunctionSection)-int(d.firstInternalIndex) {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "code section entry count does not match function section")
	}
	d.internalFuncIndex = d.firstInternalIndex
	for i := uint32(0); i < count; i++ {
		size, err := r.readVarU32()
		if err != nil {
			return err
		}
		body, err := r.readBytes(int(size))
		if err != nil {
			return err
		}
		bodyOffset := r.pos() - len(body)

		fd := d.m.FunctionSection[d.internalFuncIndex]
		sig := d.m.TypeSection[fd.TypeIndex]
		name := d.m.NameSection.FuncName(fd.Index)
		code, err := wazeroir.Compile(body, sig, int(fd.Index), name, bodyOffset, d.m)
		if err != nil {
			return err
		}
		fd.BodyKind = wasm.BodyCodeBlock
		fd.Code = code
		fd.Name = name
		d.internalFuncIndex++
	}
	return nil
}

func (d *decoder) decodeDataSection(r *reader) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		memIdx, err := r.readVarU32()
		if err != nil {
			return err
		}
		if memIdx != 0 {
			return wasmdebug.New(wasmdebug.UnsupportedOpCode, "multi-memory is not supported")
		}
		offset, err := decodeConstExprI32(r)
		if err != nil {
			return err
		}
		n, err := r.readVarU32()
		if err != nil {
			return err
		}
		init, err := r.readBytes(int(n))
		if err != nil {
			return err
		}
		d.m.DataSection = append(d.m.DataSection, &wasm.DataSegment{MemoryIndex: memIdx, Offset: offset, Init: init})
	}
	return nil
}

func (d *decoder) decodeDataCountSection(r *reader) error {
	n, err := r.readVarU32()
	if err != nil {
		return err
	}
	d.m.DataCount = &n
	return nil
}
