package premium

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxWords is the preview budget applied when the gate withholds a
// premium body.
const DefaultMaxWords = 150

// Ellipsis marks a cut-off preview.
const Ellipsis = "..."

const (
	tokenWord  = iota // run of non-whitespace
	tokenBreak        // run of newlines
)

type token struct {
	kind int
	text string
}

// tokenize splits a body into alternating non-whitespace runs and newline
// runs. Spaces and tabs act as separators only; newline runs are kept verbatim
// so the preview preserves block structure (headings, list items, paragraph
// gaps) in lightly marked-up text.
func tokenize(body string) []token {
	var (
		tokens []token
		start  = -1
	)
	flushWord := func(end int) {
		if start >= 0 {
			tokens = append(tokens, token{kind: tokenWord, text: body[start:end]})
			start = -1
		}
	}
	i := 0
	for i < len(body) {
		c := body[i]
		switch {
		case c == '\n' || c == '\r':
			flushWord(i)
			j := i
			for j < len(body) && (body[j] == '\n' || body[j] == '\r') {
				j++
			}
			tokens = append(tokens, token{kind: tokenBreak, text: body[i:j]})
			i = j
		case c == ' ' || c == '\t':
			flushWord(i)
			i++
		default:
			if start < 0 {
				start = i
			}
			i++
		}
	}
	flushWord(len(body))
	return tokens
}

// Truncate cuts a body down to at most maxWords non-whitespace runs,
// preserving interior newline runs. When the cut happens and the kept text
// does not already end in a newline, an ellipsis marker is appended. The
// second return is false when the body already fit the budget, in which case
// the body comes back untouched; re-truncating a truncated preview is
// therefore a no-op.
func Truncate(body string, maxWords int) (string, bool) {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	tokens := tokenize(body)

	total := 0
	for _, t := range tokens {
		if t.kind == tokenWord {
			total++
		}
	}
	if total <= maxWords {
		return body, false
	}

	var (
		b     strings.Builder
		words int
		prev  = -1 // kind of last appended token
	)
	for _, t := range tokens {
		if t.kind == tokenWord {
			if words == maxWords {
				break
			}
			if prev == tokenWord {
				b.WriteByte(' ')
			}
			b.WriteString(t.text)
			words++
			prev = tokenWord
			continue
		}
		// A break right after the final kept word closes the block; keep it
		// and stop rather than dangling an ellipsis after a paragraph end.
		b.WriteString(t.text)
		prev = tokenBreak
		if words == maxWords {
			break
		}
	}

	out := b.String()
	if !strings.HasSuffix(out, "\n") {
		out += Ellipsis
	}
	return out, true
}

// CountWords counts non-whitespace runs the same way Truncate budgets them.
func CountWords(body string) int {
	n := 0
	for _, t := range tokenize(body) {
		if t.kind == tokenWord {
			n++
		}
	}
	return n
}

// CountChars counts characters, not bytes.
func CountChars(body string) int {
	return utf8.RuneCountInString(body)
}
