package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wami-rt/wami"
)

var validateCmd = &cobra.Command{
	Use:   "validate <path to wasm file>",
	Short: "Decodes and compiles a WebAssembly binary without instantiating it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	bin, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading wasm binary: %w", err)
	}

	rt := wami.NewRuntime(ctx)
	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		return reportTrap(err)
	}
	name := compiled.Name()
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Printf("ok: %s compiles\n", name)
	return nil
}
