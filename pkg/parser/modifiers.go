package parser

import (
	"fmt"
	"strings"

	"github.com/psaab/vty/pkg/cmdtree"
)

// Modifier is an output filter usable after '|'. Command is the shell
// command it maps to; when Arg is set, "%s" in Command is replaced by the
// shell-quoted argument.
type Modifier struct {
	Name    string
	Help    string
	Command string
	Arg     *ModifierArg
}

// ModifierArg describes the single argument a modifier accepts.
type ModifierArg struct {
	Required    bool
	Placeholder string
	Help        string
	Default     string
}

// DefaultModifiers is the built-in modifier registry.
var DefaultModifiers = []Modifier{
	{
		Name:    "count",
		Help:    "Count occurrences",
		Command: "wc -l",
	},
	{
		Name:    "except",
		Help:    "Show only text that does not match a pattern",
		Command: "grep --line-buffered -v -- %s",
		Arg:     &ModifierArg{Required: true, Placeholder: "<pattern>", Help: "Pattern to exclude"},
	},
	{
		Name:    "grep",
		Help:    "Show only text that matches a pattern",
		Command: "grep --line-buffered -- %s",
		Arg:     &ModifierArg{Required: true, Placeholder: "<pattern>", Help: "Pattern to look for"},
	},
	{
		Name:    "last",
		Help:    "Display end of output only",
		Command: "tail -n %s",
		Arg:     &ModifierArg{Placeholder: "<lines>", Help: "Number of lines", Default: "10"},
	},
	{
		Name:    "match",
		Help:    "Show only text that matches a pattern, ignoring case",
		Command: "grep --line-buffered -i -- %s",
		Arg:     &ModifierArg{Required: true, Placeholder: "<pattern>", Help: "Pattern to look for"},
	},
	{
		Name:    "no-more",
		Help:    "Don't paginate output",
		Command: "cat",
	},
	{
		Name:    "tail",
		Help:    "Display last lines of output",
		Command: "tail -n %s",
		Arg:     &ModifierArg{Placeholder: "<lines>", Help: "Number of lines", Default: "10"},
	},
}

func (m *Modifier) render(arg string) string {
	if m.Arg == nil {
		return m.Command
	}
	return fmt.Sprintf(m.Command, shellQuote(arg))
}

func (m *Modifier) candidate() cmdtree.Candidate {
	return cmdtree.Candidate{Name: m.Name, Help: m.Help, CompleteOn: true}
}

func (m *Modifier) argCandidate() cmdtree.Candidate {
	return cmdtree.Candidate{Name: m.Arg.Placeholder, Help: m.Arg.Help}
}

// shellQuote quotes s for a POSIX shell unless it is made only of safe
// characters.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:,+=@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
