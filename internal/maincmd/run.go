package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/just-dont/OpenXcom/lang/compiler"
	"github.com/just-dont/OpenXcom/lang/machine"
	"github.com/just-dont/OpenXcom/lang/symtab"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFiles(ctx, stdio, args...)
}

// RunFiles compiles each file against the CLI's built-in demo catalog (see
// catalog.go), executes it on a fresh Worker, and dumps the register file's
// first NumSlots int64 words — there being no declared host
// outputs outside of lang/scriptapi's typed façade, this is the CLI's only
// window into what a script did.
func RunFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	cat, reg, handlers := demoCatalog()

	var errored bool
	for _, fname := range files {
		src, err := os.ReadFile(fname)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			errored = true
			continue
		}

		st := symtab.New(reg, machine.Capacity, nil)
		p := compiler.New(cat, st)
		container, err := p.Parse(fname, src)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			errored = true
			continue
		}

		w := machine.NewWorker(handlers, machine.DefaultInstructionBudget)
		if err := w.Execute(container); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", fname, err)
			errored = true
			continue
		}

		fmt.Fprintf(stdio.Stdout, "%s:\n", fname)
		rf := w.Registers()
		for off := 0; off < machine.Capacity; off += machine.WordSize {
			fmt.Fprintf(stdio.Stdout, "  [%3d] %d\n", off, machine.RegGet[int64](rf, off))
		}
	}
	if errored {
		return fmt.Errorf("run: one or more files failed")
	}
	return nil
}
