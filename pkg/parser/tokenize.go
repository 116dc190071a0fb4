package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-shellwords"
)

const operators = "|;&<>"

// Tokenize splits line using shell quoting rules. Unquoted operators
// ('|', ';', '&', '<', '>') become tokens of their own. If line does not
// end in whitespace the last token is returned separately as the partial
// word being typed. Malformed quoting falls back to whitespace splitting.
func Tokenize(line string) (tokens []string, partial string, hasPartial bool) {
	words, last, hasPartial := tokenize(line)
	for _, w := range words {
		tokens = append(tokens, w.text)
	}
	return tokens, last.text, hasPartial
}

// word is a token that remembers whether it was an unquoted operator, so a
// quoted "|" stays an ordinary argument.
type word struct {
	text string
	op   bool
}

func tokenize(line string) (words []word, partial word, hasPartial bool) {
	for _, seg := range splitOperators(line) {
		if len(seg) == 1 && strings.Contains(operators, seg) {
			words = append(words, word{text: seg, op: true})
			continue
		}
		parts, err := shellwords.Parse(seg)
		if err != nil {
			parts = strings.Fields(seg)
		}
		for _, p := range parts {
			words = append(words, word{text: p})
		}
	}
	if len(words) == 0 {
		return nil, word{}, false
	}
	last, _ := utf8.DecodeLastRuneInString(line)
	if !unicode.IsSpace(last) {
		partial = words[len(words)-1]
		words = words[:len(words)-1]
		hasPartial = true
	}
	return words, partial, hasPartial
}

// splitOperators cuts line at every operator outside quotes. Operators are
// returned as single-character segments.
func splitOperators(line string) []string {
	var (
		out            []string
		start          int
		single, double bool
		escaped        bool
	)
	for i, r := range line {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && !single:
			escaped = true
		case r == '\'' && !double:
			single = !single
		case r == '"' && !single:
			double = !double
		case !single && !double && strings.ContainsRune(operators, r):
			if start < i {
				out = append(out, line[start:i])
			}
			out = append(out, string(r))
			start = i + 1
		}
	}
	if start < len(line) {
		out = append(out, line[start:])
	}
	return out
}
