package parser

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Kind classifies parse and validation errors.
type Kind string

const (
	// Command stage.
	KindUnknownToken   Kind = "unknown_token"
	KindIncompletePath Kind = "incomplete_path"

	// Option stage.
	KindUnknownOption           Kind = "unknown_option"
	KindMissingRequiredValue    Kind = "missing_required_value"
	KindMissingRequiredOption   Kind = "missing_required_option"
	KindAmbiguousGroup          Kind = "ambiguous_group"
	KindInvalidValue            Kind = "invalid_value"
	KindInsufficientOptionCount Kind = "insufficient_option_count"

	// Pipe stage.
	KindPipeNotAllowed          Kind = "pipe_not_allowed"
	KindUnknownModifier         Kind = "unknown_modifier"
	KindMissingModifier         Kind = "missing_modifier"
	KindMissingRequiredArgument Kind = "missing_required_argument"
	KindTooManyArguments        Kind = "too_many_arguments"
)

// Error is a parse or validation failure. Offset is the byte column of
// Token in the original line (its last occurrence), or -1 when the error
// is not tied to a token.
type Error struct {
	Kind       Kind
	Msg        string
	Token      string
	Offset     int
	Suggestion string // closest legal token, if any
	Validation bool   // raised by Validate rather than Parse
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind Kind, token, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
		Token:  token,
		Offset: -1,
	}
}

// suggest returns the candidate closest to token, or "".
func suggest(token string, candidates []string) string {
	if token == "" || len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(token, candidates)
	if len(ranks) == 0 {
		// Typos rarely form a subsequence; fall back to a prefix match of
		// the first two characters.
		for _, c := range candidates {
			if len(token) >= 2 && len(c) >= 2 && c[:2] == token[:2] {
				return c
			}
		}
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
