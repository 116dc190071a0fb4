// Package parser turns raw input lines into validated commands and
// completion candidates.
//
// A line goes through three stages in a fixed order: the command stage
// walks the tree to a leaf, the option stage consumes the leaf's options,
// and the pipe stage parses a trailing "| modifier" chain. All stages share
// one Context that is created per call, so an Engine is safe for
// concurrent use.
package parser

import (
	"strings"

	"github.com/psaab/vty/pkg/cmdtree"
)

// Engine parses and completes lines against a command tree.
type Engine struct {
	tree      *cmdtree.Tree
	cfg       Config
	modifiers []Modifier
	stages    []Stage
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConfig sets help-text options.
func WithConfig(cfg Config) EngineOption {
	return func(e *Engine) { e.cfg = cfg }
}

// WithModifiers replaces the pipe modifier registry.
func WithModifiers(mods []Modifier) EngineOption {
	return func(e *Engine) { e.modifiers = append([]Modifier(nil), mods...) }
}

// New returns an Engine for tree.
func New(tree *cmdtree.Tree, opts ...EngineOption) *Engine {
	e := &Engine{tree: tree, modifiers: DefaultModifiers}
	for _, o := range opts {
		o(e)
	}
	e.stages = []Stage{
		commandStage{tree: tree},
		optionStage{},
		pipeStage{modifiers: e.modifiers},
	}
	return e
}

// Modifiers returns the pipe modifier registry in use.
func (e *Engine) Modifiers() []Modifier {
	return e.modifiers
}

// Result is a parsed and validated line ready for execution.
type Result struct {
	Line    string
	Path    []string
	Command *cmdtree.Node
	Store   cmdtree.Store
	Pipes   []string // shell commands the output is piped through, in order
}

// Parse parses and validates line. The returned error is a *Error.
func (e *Engine) Parse(line string) (*Result, error) {
	ctx := newContext(line, e.cfg)
	if ctx.HasPartial {
		ctx.push(ctx.PartialWord, ctx.partialOp)
	}
	if err := e.parse(ctx); err != nil {
		return nil, err
	}
	for _, s := range e.stages {
		if err := s.Validate(ctx); err != nil {
			err.Validation = true
			err.Offset = offset(line, err.Token)
			ctx.Err = err
			return nil, err
		}
	}
	return &Result{
		Line:    line,
		Path:    ctx.Path,
		Command: ctx.Node,
		Store:   ctx.Store,
		Pipes:   ctx.Pipes,
	}, nil
}

// parse runs the stages in order and stops at the first failure.
func (e *Engine) parse(ctx *Context) *Error {
	for _, s := range e.stages {
		if err := s.Parse(ctx); err != nil {
			err.Offset = offset(ctx.Line, err.Token)
			ctx.Err = err
			return err
		}
	}
	return nil
}

// Complete returns the legal continuations of line, which holds the text
// up to the cursor. It never returns nil.
func (e *Engine) Complete(line string) []cmdtree.Candidate {
	ctx := newContext(line, e.cfg)
	partial, filter := ctx.PartialWord, ctx.HasPartial
	switch {
	case partial == "?":
		filter = false
	case partial == PipeChar && ctx.partialOp:
		ctx.push(PipeChar, true)
		filter = false
	}

	if err := e.parse(ctx); err != nil {
		return []cmdtree.Candidate{}
	}

	var list []cmdtree.Candidate
	for i := len(e.stages) - 1; i >= 0; i-- {
		if list = e.stages[i].Complete(ctx); len(list) > 0 {
			break
		}
	}
	if filter {
		list = cmdtree.FilterPrefix(list, partial)
	}
	if list == nil {
		list = []cmdtree.Candidate{}
	}
	return list
}

// AutoInsert returns the text to append when candidates hold a single
// entry that may be completed silently: the rest of its name after
// partial, followed by a space.
func AutoInsert(candidates []cmdtree.Candidate, partial string) (string, bool) {
	if len(candidates) != 1 {
		return "", false
	}
	c := candidates[0]
	if !c.CompleteOn || strings.HasPrefix(c.Name, "<") || !strings.HasPrefix(c.Name, partial) {
		return "", false
	}
	return c.Name[len(partial):] + " ", true
}

func offset(line, token string) int {
	if token == "" {
		return -1
	}
	return strings.LastIndex(line, token)
}
