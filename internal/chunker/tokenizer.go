package chunker

import "unicode"

// span is a half-open byte range [Start, End) into the tokenized text.
// Spans are contiguous and cover the whole input: each token's span begins
// where the previous one ended, so whitespace between tokens belongs to the
// span of the token that follows it and the last span runs to the end of
// the text. Concatenating spans reconstructs the input exactly.
type span struct {
	Start int
	End   int
}

type tokenClass int

const (
	classNone tokenClass = iota
	classWord
	classPunct
)

func classify(r rune) tokenClass {
	switch {
	case unicode.IsSpace(r):
		return classNone
	case unicode.IsLetter(r) || unicode.IsDigit(r):
		return classWord
	default:
		return classPunct
	}
}

// tokenize splits text into deterministic token spans. Word runs (letters
// and digits) and punctuation runs form separate tokens, so "ISO 14971."
// counts three tokens regardless of surrounding whitespace. The result is
// stable across runs and independent of any embedding model.
func tokenize(text string) []span {
	var tokens []span
	prevEnd := 0
	tokStart := -1
	var tokClass tokenClass

	flush := func(end int) {
		if tokStart < 0 {
			return
		}
		tokens = append(tokens, span{Start: prevEnd, End: end})
		prevEnd = end
		tokStart = -1
		tokClass = classNone
	}

	for i, r := range text {
		c := classify(r)
		if c == classNone {
			flush(i)
			continue
		}
		if tokStart < 0 {
			tokStart = i
			tokClass = c
			continue
		}
		if c != tokClass {
			flush(i)
			tokStart = i
			tokClass = c
		}
	}
	flush(len(text))

	// Trailing whitespace belongs to the final token.
	if n := len(tokens); n > 0 {
		tokens[n-1].End = len(text)
	}
	return tokens
}

// CountTokens returns the deterministic token count of text, as used for
// chunk sizing and context budgeting.
func CountTokens(text string) int {
	return len(tokenize(text))
}
