// Package trap defines the runtime trap taxonomy: the errors an
// invocation can fail with once execution has begun, as opposed to the
// static decode errors in wasmdebug.
package trap

import "fmt"

// Kind enumerates the runtime trap kinds from spec.md section 7.
type Kind int

const (
	Unreachable Kind = iota
	InvalidParameter
	NotSupported
	OutOfBounds
	OutOfMemory
	NoMethod
	DivideByZero
	TypeMismatch
	// Exit is a graceful termination requested by a host call; the caller
	// treats it as successful, not as an error to surface.
	Exit
)

var kindNames = [...]string{
	"Unreachable", "InvalidParameter", "NotSupported", "OutOfBounds",
	"OutOfMemory", "NoMethod", "DivideByZero", "TypeMismatch", "Exit",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Trap is the error type every interpreter dispatch failure is wrapped in
// before propagating to the outer invoke. It always carries enough
// positional context to point at the offending instruction.
type Trap struct {
	Kind Kind
	// FuncIndex is the function the trap occurred in.
	FuncIndex int
	// FuncName is the declared name of that function, if known.
	FuncName string
	// Position is the byte offset within the function body.
	Position int
	// Opcode is the mnemonic of the instruction that trapped.
	Opcode string
	// FilePos is the absolute file offset of the instruction, for diagnostics.
	FilePos int
	// ExitCode carries the exit code for Kind == Exit.
	ExitCode int
}

func New(kind Kind) *Trap { return &Trap{Kind: kind} }

func (t *Trap) Error() string {
	name := t.FuncName
	if name == "" {
		name = fmt.Sprintf("func[%d]", t.FuncIndex)
	}
	if t.Kind == Exit {
		return fmt.Sprintf("wasm: exit(%d)", t.ExitCode)
	}
	return fmt.Sprintf("wasm: %s trap in %s at %s@%#x (file offset %#x)",
		t.Kind, name, t.Opcode, t.Position, t.FilePos)
}

// WithSite returns a copy of t with the call-site context filled in.
func (t *Trap) WithSite(funcIndex int, funcName string, position int, opcode string, filePos int) *Trap {
	c := *t
	c.FuncIndex = funcIndex
	c.FuncName = funcName
	c.Position = position
	c.Opcode = opcode
	c.FilePos = filePos
	return &c
}

// IsGracefulExit reports whether err is an Exit trap, which the caller should
// treat as a successful termination rather than a failure to log.
func IsGracefulExit(err error) (int, bool) {
	if t, ok := err.(*Trap); ok && t.Kind == Exit {
		return t.ExitCode, true
	}
	return 0, false
}
