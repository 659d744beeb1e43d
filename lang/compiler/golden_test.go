package compiler_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/just-dont/OpenXcom/internal/scripttest"
	"github.com/just-dont/OpenXcom/lang/machine"
	"github.com/just-dont/OpenXcom/lang/symtab"
)

var updateGolden = flag.Bool("test.update-compiler-tests", false, "update lang/compiler golden files")

// TestGolden drives every testdata/*.hs script through CompileAndDump and
// diffs the result against its golden .err file, the same
// pattern the teacher's internal/filetest-based tests use.
func TestGolden(t *testing.T) {
	const dir = "testdata"
	for _, fi := range scripttest.SourceFiles(t, dir, ".hs") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			cat, reg, _ := newTestCatalog()
			st := symtab.New(reg, machine.Capacity, nil)

			src, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}

			out := scripttest.CompileAndDump(fi.Name(), cat, st, src)
			scripttest.DiffErrors(t, fi, out, dir, updateGolden)
		})
	}
}
