// Package splitter implements recursive length-bounded text splitting for
// document indexing.
//
// Documents are cut into chunks of at most chunkSize characters. Chunk
// boundaries prefer natural separators (paragraph break, line break, space)
// and fall back to a hard cut when a single indivisible run of text is longer
// than the window. Consecutive chunks share up to overlap characters of
// context so that information near a boundary is retrievable from either
// side.
//
// Chunks are substrings of the original text at monotonically increasing
// positions: concatenating the chunks with the applied overlap removed
// reconstructs the document exactly, and splitting the same text twice
// produces identical chunks.
package splitter

// Character counts are rune counts, so multi-byte text never gets cut in the
// middle of a code point.

// separators tried in order when looking for a chunk boundary. A boundary is
// placed immediately after the separator, keeping it with the preceding
// chunk. The empty separator means "hard cut at the size limit".
var separators = []string{"\n\n", "\n", " "}

// Splitter splits text into overlapping, length-bounded chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a Splitter with the given target chunk size and overlap,
// both in characters. Invalid values fall back to safe ones: a non-positive
// size becomes 1, a negative overlap becomes 0, and an overlap at or above
// the chunk size is clamped below it so every chunk makes forward progress.
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split divides text into chunks of at most chunkSize characters, in
// document order. Returns nil for empty input.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.chunkSize {
		return []string{text}
	}

	var chunks []string
	pos := 0
	for pos < len(runes) {
		end := s.boundary(runes, pos)
		chunks = append(chunks, string(runes[pos:end]))
		if end == len(runes) {
			break
		}

		// Start the next chunk overlap characters before the cut. If this
		// chunk advanced less than the overlap, skip the overlap entirely
		// rather than re-emitting text we already covered.
		next := end - s.overlap
		if next <= pos {
			next = end
		}
		pos = next
	}

	return chunks
}

// boundary returns the end position (exclusive) for a chunk starting at pos.
// It prefers the latest separator within the size window and hard-cuts at
// the window edge when none is found.
func (s *Splitter) boundary(runes []rune, pos int) int {
	limit := pos + s.chunkSize
	if limit >= len(runes) {
		return len(runes)
	}

	for _, sep := range separators {
		if end, ok := lastBreak(runes, pos, limit, []rune(sep)); ok {
			return end
		}
	}

	// No separator in the window: an indivisible run, cut at the limit.
	return limit
}

// lastBreak finds the latest occurrence of sep such that the break placed
// after it stays within (pos, limit]. Returns the break position.
func lastBreak(runes []rune, pos, limit int, sep []rune) (int, bool) {
	for end := limit; end-len(sep) > pos; end-- {
		if hasSepBefore(runes, end, sep) {
			return end, true
		}
	}
	return 0, false
}

// hasSepBefore reports whether sep immediately precedes position end.
func hasSepBefore(runes []rune, end int, sep []rune) bool {
	start := end - len(sep)
	for i, r := range sep {
		if runes[start+i] != r {
			return false
		}
	}
	return true
}
