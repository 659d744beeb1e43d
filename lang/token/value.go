package token

// Value combines a scanned token's position with its literal text and, for
// INT and STRING tokens, the decoded value.
type Value struct {
	Pos Pos
	Raw string // exact source text, e.g. "0x7b", "\"foo\""

	Int    int64  // valid when the token is INT
	String string // decoded value, valid when the token is STRING
}
