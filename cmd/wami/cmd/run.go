package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wami-rt/wami"
	"github.com/wami-rt/wami/internal/trap"
)

var invokeName string

var runCmd = &cobra.Command{
	Use:   "run <path to wasm file> [args...]",
	Short: "Instantiates a WebAssembly binary, running its start function",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&invokeName, "invoke", "", "name of an exported function to call after instantiation, instead of relying on the start function")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	wasmPath := args[0]
	callArgs := args[1:]

	bin, err := os.ReadFile(wasmPath)
	if err != nil {
		return fmt.Errorf("reading wasm binary: %w", err)
	}

	rt := wami.NewRuntime(ctx)
	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		return reportTrap(err)
	}

	instance, err := rt.Instantiate(ctx, compiled)
	if err != nil {
		return reportTrap(err)
	}

	if invokeName == "" {
		return nil
	}

	fn := instance.ExportedFunction(invokeName)
	if fn == nil {
		return fmt.Errorf("no exported function %q", invokeName)
	}
	cells, err := parseArgs(callArgs, len(fn.ParamTypes()))
	if err != nil {
		return err
	}
	results, err := fn.Call(ctx, cells...)
	if err != nil {
		return reportTrap(err)
	}
	for _, r := range results {
		fmt.Println(r)
	}
	return nil
}

func parseArgs(raw []string, want int) ([]uint64, error) {
	if len(raw) != want {
		return nil, fmt.Errorf("function takes %d args, %d given", want, len(raw))
	}
	out := make([]uint64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid argument %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// reportTrap prints a colorized diagnostic if err wraps a runtime trap,
// then returns err unchanged so Execute still reports a non-zero exit.
func reportTrap(err error) error {
	var t *trap.Trap
	if errors.As(err, &t) {
		printTrap(t)
	}
	return err
}
