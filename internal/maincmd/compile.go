package maincmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/just-dont/OpenXcom/lang/compiler"
	"github.com/just-dont/OpenXcom/lang/machine"
	"github.com/just-dont/OpenXcom/lang/symtab"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(ctx, stdio, args...)
}

// CompileFiles runs the compiler phase over each file against the CLI's
// built-in demo catalog (see catalog.go) and prints either its compiled
// bytecode, hex-encoded, or its diagnostics.
func CompileFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	cat, reg, _ := demoCatalog()

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
		fmt.Fprintf(stdio.Stdout, "%s: %s\n", fname, hex.EncodeToString(container.Code))
	}
	if errored {
		return fmt.Errorf("compile: one or more files failed")
	}
	return nil
}
