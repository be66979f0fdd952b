package splitter

import (
	"strings"
	"testing"
)

func TestSplitEmpty(t *testing.T) {
	s := New(100, 20)
	if got := s.Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
}

func TestSplitShortText(t *testing.T) {
	s := New(100, 20)
	text := "short document"
	got := s.Split(text)
	if len(got) != 1 || got[0] != text {
		t.Errorf("Split(%q) = %v, want single chunk equal to input", text, got)
	}
}

func TestSplitRespectsSizeBound(t *testing.T) {
	s := New(50, 10)
	text := strings.Repeat("word word word. ", 40)
	for i, chunk := range s.Split(text) {
		if n := len([]rune(chunk)); n > 50 {
			t.Errorf("chunk %d has %d characters, want <= 50", i, n)
		}
	}
}

func TestSplitHardCutsIndivisibleRun(t *testing.T) {
	s := New(10, 2)
	text := strings.Repeat("x", 35)
	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks for long indivisible input")
	}
	for i, chunk := range chunks {
		if n := len([]rune(chunk)); n > 10 {
			t.Errorf("chunk %d has %d characters, want <= 10", i, n)
		}
	}
	if got := reconstruct(chunks, 2); got != text {
		t.Errorf("reconstruction mismatch:\ngot  %q\nwant %q", got, text)
	}
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	s := New(30, 0)
	text := "first paragraph here\n\nsecond paragraph follows after"
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Errorf("first chunk %q should end at the paragraph break", chunks[0])
	}
}

func TestSplitOverlapSharesContext(t *testing.T) {
	s := New(20, 5)
	text := "aaaa bbbb cccc dddd eeee ffff gggg hhhh iiii jjjj"
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if overlapLen(chunks[i-1], chunks[i]) == 0 {
			// An overlap of zero only happens when the previous chunk was
			// too short to step back into, which cannot occur here.
			t.Errorf("chunks %d and %d share no overlap: %q | %q",
				i-1, i, chunks[i-1], chunks[i])
		}
	}
}

func TestSplitReconstructsOriginal(t *testing.T) {
	texts := []string{
		"one two three four five six seven eight nine ten eleven twelve",
		"line one\nline two\nline three\nline four\nline five\nline six here",
		"para one is short\n\npara two is a bit longer than the first one\n\npara three ends it",
		strings.Repeat("abcdefghij", 13),
		"多字节字符也要正确切分 多字节字符也要正确切分 多字节字符也要正确切分",
	}
	s := New(25, 7)
	for _, text := range texts {
		chunks := s.Split(text)
		if got := reconstruct(chunks, 7); got != text {
			t.Errorf("reconstruction mismatch for %q:\ngot  %q", text, got)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := New(40, 10)
	text := "the same input must always produce the same chunks, run after run, " +
		"because index identifiers are derived from chunk positions"
	first := s.Split(text)
	for range 5 {
		again := s.Split(text)
		if len(again) != len(first) {
			t.Fatalf("chunk count changed between runs: %d vs %d", len(first), len(again))
		}
		for i := range first {
			if again[i] != first[i] {
				t.Errorf("chunk %d changed between runs: %q vs %q", i, first[i], again[i])
			}
		}
	}
}

func TestNewClampsInvalidValues(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 10, -3},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.size, tt.overlap)
			// The splitter must terminate and cover the full input.
			text := "abc def ghi jkl mno pqr stu vwx"
			chunks := s.Split(text)
			if len(chunks) == 0 {
				t.Fatal("expected chunks")
			}
			if got := reconstruct(chunks, s.overlap); got != text {
				t.Errorf("reconstruction mismatch: got %q", got)
			}
		})
	}
}

// reconstruct rebuilds the original text by stripping the shared prefix of
// each chunk that duplicates the tail of the text assembled so far. The
// duplicated span is at most maxOverlap characters.
func reconstruct(chunks []string, maxOverlap int) string {
	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(trimOverlap(b.String(), chunk, maxOverlap))
	}
	return b.String()
}

// trimOverlap removes from chunk the longest prefix, up to maxOverlap
// characters, that is also a suffix of assembled.
func trimOverlap(assembled, chunk string, maxOverlap int) string {
	ar := []rune(assembled)
	cr := []rune(chunk)
	max := maxOverlap
	if max > len(ar) {
		max = len(ar)
	}
	if max > len(cr) {
		max = len(cr)
	}
	for n := max; n > 0; n-- {
		if string(ar[len(ar)-n:]) == string(cr[:n]) {
			return string(cr[n:])
		}
	}
	return chunk
}

// overlapLen returns the length of the longest suffix of prev that is a
// prefix of next.
func overlapLen(prev, next string) int {
	pr := []rune(prev)
	nr := []rune(next)
	max := len(pr)
	if len(nr) < max {
		max = len(nr)
	}
	for n := max; n > 0; n-- {
		if string(pr[len(pr)-n:]) == string(nr[:n]) {
			return n
		}
	}
	return 0
}
