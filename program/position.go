package program

// Position locates a byte in source text.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// PositionFor computes the line and column of offset within src. Offsets
// past the end of src map to the position just after the final byte.
func PositionFor(src []byte, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	pos := Position{Offset: offset, Line: 1, Column: 1}
	for _, b := range src[:offset] {
		if b == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}
	return pos
}
