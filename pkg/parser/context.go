package parser

import (
	"strings"

	"github.com/psaab/vty/pkg/cmdtree"
)

// State is the stage currently consuming input.
type State int

const (
	StateNone State = iota
	StateCommand
	StateOption
	StatePipe
)

// optionState tracks where the option stage stopped.
type optionState int

const (
	optNone optionState = iota
	optSingleKey
	optMultiKey
	optValue // key given, value not yet typed
)

// pipeState tracks where the pipe stage stopped.
type pipeState int

const (
	pipeNone pipeState = iota
	pipeModifier
	pipeArgument
)

// Config tunes help text produced during completion.
type Config struct {
	AppendDefault bool // append " (default: X)" to option help
	AppendGroup   bool // append " (group: G)" to option help
}

// Context is the mutable state threaded through the stages for a single
// line. It is created fresh for every Parse or Complete call.
type Context struct {
	Line        string
	Tokens      []string // tokens not yet consumed
	PartialWord string
	HasPartial  bool
	Config      Config

	ops       []bool // ops[i] reports whether Tokens[i] is an unquoted operator
	partialOp bool

	State State
	Store cmdtree.Store
	Err   *Error

	// Command stage results.
	Path       []string
	Node       *cmdtree.Node // deepest node reached
	Executable bool
	Meta       cmdtree.Meta

	// Option stage results.
	Options     []*option // normalized options of the leaf
	SeenOptions []string
	SeenGroups  []string
	optState    optionState
	optionCount int
	current     *option
	multiSeen   []cmdtree.Candidate // entries for the multiple option in progress

	// Pipe stage results.
	Pipes       []string
	piped       bool
	pipeState   pipeState
	modifier    *Modifier
	pipePending *Error // incomplete final segment, reported by Validate
}

func newContext(line string, cfg Config) *Context {
	words, partial, hasPartial := tokenize(line)
	c := &Context{
		Line:        line,
		PartialWord: partial.text,
		HasPartial:  hasPartial,
		Config:      cfg,
		Store:       cmdtree.Store{},
		partialOp:   partial.op,
	}
	for _, w := range words {
		c.push(w.text, w.op)
	}
	return c
}

// push appends a token to the unconsumed input.
func (c *Context) push(t string, op bool) {
	c.Tokens = append(c.Tokens, t)
	c.ops = append(c.ops, op)
}

func (c *Context) next() string {
	t := c.Tokens[0]
	c.Tokens = c.Tokens[1:]
	c.ops = c.ops[1:]
	return t
}

func (c *Context) peek() (string, bool) {
	if len(c.Tokens) == 0 {
		return "", false
	}
	return c.Tokens[0], true
}

// atPipe reports whether the next token is the pipe operator.
func (c *Context) atPipe() bool {
	return len(c.Tokens) > 0 && c.ops[0] && c.Tokens[0] == PipeChar
}

func (c *Context) seen(name string) bool {
	return contains(c.SeenOptions, name)
}

func (c *Context) groupSeen(group string) bool {
	return group != "" && contains(c.SeenGroups, group)
}

// Stage is one step of the parsing pipeline. Stages hold no per-line state;
// everything lives in the Context.
type Stage interface {
	Parse(ctx *Context) *Error
	Validate(ctx *Context) *Error
	Complete(ctx *Context) []cmdtree.Candidate
}

func pathString(c *Context) string {
	return strings.Join(c.Path, " ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
