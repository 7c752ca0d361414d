package answer

import "strings"

// labels are the field names the model tends to echo from the context block.
var labels = []string{"Title:", "Summary:", "Tags:", "URL:", "Description:"}

// Clean turns the raw streamed completion into display text: field labels
// are removed, blank lines and double spaces collapse, and each top-3
// enumerator ("1. ", "2. ", "3. ") starts on its own line.
func Clean(raw string) string {
	s := raw
	for _, l := range labels {
		s = strings.ReplaceAll(s, l+" ", "")
		s = strings.ReplaceAll(s, l, "")
	}
	s = collapse(s, "\n\n", "\n")
	s = collapse(s, "  ", " ")
	return breakEnumerators(s)
}

func collapse(s, from, to string) string {
	for strings.Contains(s, from) {
		s = strings.ReplaceAll(s, from, to)
	}
	return s
}

func breakEnumerators(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 3)
	for i := 0; i < len(s); i++ {
		if isEnumerator(s, i) {
			b.WriteByte('\n')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// isEnumerator reports whether a "1. ".."3. " marker starts at i and is not
// already at the start of a line or the tail of a larger number.
func isEnumerator(s string, i int) bool {
	if s[i] < '1' || s[i] > '3' || !strings.HasPrefix(s[i+1:], ". ") {
		return false
	}
	if i == 0 {
		return true
	}
	prev := s[i-1]
	return prev != '\n' && (prev < '0' || prev > '9')
}

// Stream accumulates completion tokens for one request.
// It is not safe for concurrent use.
type Stream struct {
	raw    strings.Builder
	tokens int
}

// Add appends a token and returns the cleaned text of everything received so far.
func (s *Stream) Add(token string) string {
	s.raw.WriteString(token)
	s.tokens++
	return Clean(s.raw.String())
}

// Raw returns the uncleaned accumulated completion.
func (s *Stream) Raw() string {
	return s.raw.String()
}

// Tokens returns the number of tokens added.
func (s *Stream) Tokens() int {
	return s.tokens
}
