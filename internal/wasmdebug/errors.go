// Package wasmdebug defines the decode-time error taxonomy and the
// positional context every decode error carries: section, function
// index, byte offset within the function body, and — where known —
// the decoded bytecode mnemonic and declared function name.
package wasmdebug

import "fmt"

// Code enumerates the static decode-error kinds from the module decoder
// and function compiler.
type Code int

const (
	BadExecutable Code = iota
	UnexpectedEOF
	UnexpectedToken
	InvalidBytecode
	UnsupportedOpCode
	UnsupportedGlobalType
	InvalidParameter
	InvalidStackLevel
	InvalidType
	InvalidGlobal
	InvalidLocal
	OutOfStack
	OutOfBranch
	OutOfMemory
	TypeMismatch
	BlockMismatch
	ElseWithoutIf
	NoMethod
	NoModule
)

var codeNames = map[Code]string{
	BadExecutable:          "BadExecutable",
	UnexpectedEOF:          "UnexpectedEOF",
	UnexpectedToken:        "UnexpectedToken",
	InvalidBytecode:        "InvalidBytecode",
	UnsupportedOpCode:      "UnsupportedOpCode",
	UnsupportedGlobalType:  "UnsupportedGlobalType",
	InvalidParameter:       "InvalidParameter",
	InvalidStackLevel:      "InvalidStackLevel",
	InvalidType:            "InvalidType",
	InvalidGlobal:          "InvalidGlobal",
	InvalidLocal:           "InvalidLocal",
	OutOfStack:             "OutOfStack",
	OutOfBranch:            "OutOfBranch",
	OutOfMemory:            "OutOfMemory",
	TypeMismatch:           "TypeMismatch",
	BlockMismatch:          "BlockMismatch",
	ElseWithoutIf:          "ElseWithoutIf",
	NoMethod:               "NoMethod",
	NoModule:               "NoModule",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// DecodeError is the concrete error type returned by the decoder and the
// function compiler. It is immutable once constructed; the With* helpers
// return a copy with one more field filled in, mirroring the way the
// compiler's outer error path enriches an inner error while unwinding.
type DecodeError struct {
	Code Code
	// Detail is a short human-readable explanation, e.g. "expected i32, got i64".
	Detail string
	// Section names the module section being parsed, empty if not applicable.
	Section string
	// FuncIndex is the function index being compiled, -1 if not applicable.
	FuncIndex int
	// FuncName is the declared name of the function (from the name section), if known.
	FuncName string
	// Position is the byte offset within the function body or section payload.
	Position int
	// Mnemonic is the decoded opcode name at Position, if known.
	Mnemonic string
}

func New(code Code, detail string) *DecodeError {
	return &DecodeError{Code: code, Detail: detail, FuncIndex: -1}
}

func (e *DecodeError) Error() string {
	s := e.Code.String()
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	if e.Section != "" {
		s += fmt.Sprintf(" (section %s)", e.Section)
	}
	if e.FuncIndex >= 0 {
		if e.FuncName != "" {
			s += fmt.Sprintf(" (function %d %q", e.FuncIndex, e.FuncName)
		} else {
			s += fmt.Sprintf(" (function %d", e.FuncIndex)
		}
		if e.Mnemonic != "" {
			s += fmt.Sprintf(" at %s@%#x)", e.Mnemonic, e.Position)
		} else {
			s += fmt.Sprintf(" at %#x)", e.Position)
		}
	}
	return s
}

// WithSection returns a copy of e naming the section being parsed.
func (e *DecodeError) WithSection(name string) *DecodeError {
	c := *e
	c.Section = name
	return &c
}

// WithFunc returns a copy of e naming the function index/name/position/mnemonic.
// The compiler's outer error path calls it with an empty mnemonic; it does not
// re-decode the offending bytecode.
func (e *DecodeError) WithFunc(index int, name string, position int, mnemonic string) *DecodeError {
	c := *e
	c.FuncIndex = index
	c.FuncName = name
	c.Position = position
	c.Mnemonic = mnemonic
	return &c
}
