package cmd

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/wami-rt/wami/internal/trap"
)

// printTrap renders a runtime trap with its opcode and position picked out
// in red, the way a terminal diagnostic highlights the offending token.
func printTrap(t *trap.Trap) {
	name := t.FuncName
	if name == "" {
		name = fmt.Sprintf("func[%d]", t.FuncIndex)
	}
	red := color.New(color.FgRed, color.Bold)
	fmt.Printf("%s: %s trap in %s at %s\n",
		red.Sprint("trap"), t.Kind, name, red.Sprintf("%s@%#x", t.Opcode, t.Position))
}
