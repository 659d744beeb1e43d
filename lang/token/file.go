package token

import "sort"

// Position is a human-readable source location, used in compile
// diagnostics (spec.md §4.3, §6 "Diagnostics").
type Position struct {
	Filename string
	Line     int // 1-based
	Col      int // 1-based
}

func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return p.Filename
	}
	if p.Filename == "" {
		return posString(p.Line, p.Col)
	}
	return p.Filename + ":" + posString(p.Line, p.Col)
}

func posString(line, col int) string {
	b := make([]byte, 0, 8)
	b = appendInt(b, line)
	b = append(b, ':')
	b = appendInt(b, col)
	return string(b)
}

func appendInt(b []byte, n int) []byte {
	if n == 0 {
		return append(b, '0')
	}
	start := len(b)
	for n > 0 {
		b = append(b, byte('0'+n%10))
		n /= 10
	}
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

// File tracks the line-break offsets of a single scanned script, so that a
// byte offset can be translated into a Position on demand. Scripts in this
// engine are short, free-standing texts (spec.md §6) so a File never spans
// more than one script.
type File struct {
	name  string
	size  int
	lines []int // byte offsets of the start of each line after the first
}

// NewFile creates a File for a script named name with the given byte size.
func NewFile(name string, size int) *File {
	return &File{name: name, size: size}
}

func (f *File) Name() string { return f.name }
func (f *File) Size() int    { return f.size }

// AddLine records that a new line begins at the given byte offset. Offsets
// must be added in increasing order, exactly once per line break, matching
// the teacher scanner's incremental bookkeeping.
func (f *File) AddLine(offset int) {
	if n := len(f.lines); n == 0 || f.lines[n-1] < offset {
		f.lines = append(f.lines, offset)
	}
}

// Pos returns the Pos for a given byte offset into the file.
func (f *File) Pos(offset int) Pos {
	line, col := f.lineCol(offset)
	if line > MaxLines {
		line = MaxLines
	}
	if col > MaxCols {
		col = MaxCols
	}
	return MakePos(line, col)
}

// Position returns the human-readable Position for a Pos produced by this
// File.
func (f *File) Position(p Pos) Position {
	line, col := p.LineCol()
	return Position{Filename: f.name, Line: line, Col: col}
}

func (f *File) lineCol(offset int) (line, col int) {
	// lines[i] is the offset of the first byte of line i+2 (line 1 starts at
	// offset 0 implicitly).
	i := sort.SearchInts(f.lines, offset+1) // number of line breaks strictly before offset+1
	line = i + 1
	lineStart := 0
	if i > 0 {
		lineStart = f.lines[i-1]
	}
	col = offset - lineStart + 1
	return line, col
}
