package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/just-dont/OpenXcom/lang/scanner"
	"github.com/just-dont/OpenXcom/lang/token"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, args...)
}

// TokenizeFiles runs the scanner phase over each file and prints one line
// per token: its position, token kind, and literal text if any.
func TokenizeFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	var errored bool
	for _, fname := range files {
		src, err := os.ReadFile(fname)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			errored = true
			continue
		}
		if err := tokenizeOne(stdio, fname, src); err != nil {
			errored = true
		}
	}
	if errored {
		return fmt.Errorf("tokenize: one or more files failed")
	}
	return nil
}

func tokenizeOne(stdio mainer.Stdio, fname string, src []byte) error {
	file := token.NewFile(fname, len(src))
	var serr error
	s := &scanner.Scanner{}
	s.Init(file, src, func(pos token.Position, msg string) {
		serr = fmt.Errorf("%s: %s", pos, msg)
		fmt.Fprintln(stdio.Stderr, serr)
	})

	for {
		var val token.Value
		tok := s.Scan(&val)
		pos := file.Position(val.Pos)
		fmt.Fprintf(stdio.Stdout, "%s: %s", pos, tok)
		if val.Raw != "" && tok != token.EOF {
			fmt.Fprintf(stdio.Stdout, " %q", val.Raw)
		}
		fmt.Fprintln(stdio.Stdout)
		if tok == token.EOF {
			break
		}
	}
	return serr
}
