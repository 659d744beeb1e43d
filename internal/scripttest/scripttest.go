// Package scripttest provides the golden-file test harness used by
// lang/compiler's golden tests, adapted from the
// teacher's internal/filetest: the same SourceFiles/DiffOutput/DiffCustom
// shape, plus CompileAndDump, which renders a script's compile outcome
// (either its diagnostics or a hex dump of its bytecode) as the text a
// golden file records.
package scripttest

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/diff"

	"github.com/just-dont/OpenXcom/lang/catalog"
	"github.com/just-dont/OpenXcom/lang/compiler"
	"github.com/just-dont/OpenXcom/lang/symtab"
)

var testUpdateAllTests = flag.Bool("test.update-all-tests", false, "If set, sets all test.update-*-tests.")

// SourceFiles returns the list of source files in dir with the given
// extension (e.g. ".hs").
func SourceFiles(t *testing.T, dir, ext string) []os.FileInfo {
	t.Helper()

	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}

	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	res := make([]os.FileInfo, 0, len(dents))
	for _, dent := range dents {
		if !dent.Type().IsRegular() {
			continue
		}
		if ext != "" && filepath.Ext(dent.Name()) != ext {
			continue
		}
		fi, err := dent.Info()
		if err != nil {
			t.Fatal(err)
		}
		res = append(res, fi)
	}
	return res
}

// DiffOutput validates that output matches the golden "fi.want" file
// (updating it instead, if updateFlag is set).
func DiffOutput(t *testing.T, fi os.FileInfo, output, resultDir string, updateFlag *bool) {
	t.Helper()
	DiffCustom(t, fi, "output", ".want", output, resultDir, updateFlag)
}

// DiffErrors is DiffOutput for a script's diagnostics, golden-filed as
// "fi.err".
func DiffErrors(t *testing.T, fi os.FileInfo, output, resultDir string, updateFlag *bool) {
	t.Helper()
	DiffCustom(t, fi, "errors", ".err", output, resultDir, updateFlag)
}

// DiffCustom is the general form behind DiffOutput/DiffErrors: label is
// used only in failure messages, ext is the golden file's suffix.
func DiffCustom(t *testing.T, fi os.FileInfo, label, ext, output, resultDir string, updateFlag *bool) {
	t.Helper()

	wantFile := filepath.Join(resultDir, fi.Name()+ext)
	diffOrUpdate(t, label, wantFile, output, updateFlag)
}

func diffOrUpdate(t *testing.T, label, goldFile, output string, updateFlag *bool) {
	if *updateFlag || *testUpdateAllTests {
		if err := os.WriteFile(goldFile, []byte(output), 0o600); err != nil {
			t.Fatal(err)
		}
		return
	}

	wantb, err := os.ReadFile(goldFile)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	want := string(wantb)
	if testing.Verbose() {
		t.Logf("got %s:\n%s\n", label, output)
	}
	if patch := diff.Diff(want, output); patch != "" {
		if testing.Verbose() {
			t.Logf("want %s:\n%s\n", label, want)
		}
		t.Errorf("diff %s:\n%s\n", label, patch)
	}
}

// CompileAndDump compiles src against cat/st and renders the outcome as a
// single text block suitable for a golden file: either "errors:" followed
// by one line per diagnostic, or "code:" followed by a hex dump of the
// compiled bytecode.
func CompileAndDump(name string, cat *catalog.Catalog, st *symtab.SymbolTable, src []byte) string {
	p := compiler.New(cat, st)
	c, err := p.Parse(name, src)
	var b strings.Builder
	if err != nil {
		fmt.Fprintln(&b, "errors:")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		return b.String()
	}
	fmt.Fprintln(&b, "code:")
	fmt.Fprintln(&b, hex.EncodeToString(c.Code))
	return b.String()
}
