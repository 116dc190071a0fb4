// Package cmdtree defines the declarative command tree consumed by the
// parser: internal nodes with children, executable leaves with options,
// and the completion candidates produced while walking them.
//
// A tree is declared as plain Go values and checked once with Compile.
package cmdtree

import (
	"context"
	"io"
	"regexp"
)

// Node is a named command tree node. A node is either internal (it has
// Children) or a leaf (it has a Handler), never both and never neither.
type Node struct {
	Name string
	Help string

	// Internal nodes.
	Children []*Node

	// Leaf nodes.
	Options []Option
	Handler Handler
	Meta    Meta
}

// IsLeaf reports whether n is an executable command.
func (n *Node) IsLeaf() bool {
	return n.Handler != nil
}

// Child returns the direct child named name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Meta holds per-leaf modifiers.
type Meta struct {
	Pipeable   bool // output may be piped through modifiers
	MinOptions int  // explicit options required when the leaf declares any
}

// Option is an option declared on a leaf.
type Option struct {
	Name     string
	Help     string
	Default  string
	Required bool
	Hidden   bool
	Bool     bool
	Multiple bool
	Primary  bool
	Group    string
	Flexible bool // accept any value regardless of Match

	Match     Match
	MatchName string // replaces "<value>" in completions
	MatchHelp string // replaces the placeholder help
}

// Handler runs a leaf command. Output goes to w; store holds the parsed
// option values keyed by option name.
type Handler interface {
	Run(ctx context.Context, w io.Writer, store Store) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, w io.Writer, store Store) error

// Run calls f(ctx, w, store).
func (f HandlerFunc) Run(ctx context.Context, w io.Writer, store Store) error {
	return f(ctx, w, store)
}

// Match declares the values an option accepts. It is a closed set: Values,
// Choices, ChoiceMap, Pattern, Generator and Validator. A nil Match accepts
// any value.
type Match interface {
	isMatch()
}

// Values is a fixed list of accepted values without help text.
type Values []string

// Choice is one accepted value with help text.
type Choice struct {
	Name string
	Help string
}

// Choices is a fixed, ordered list of accepted values with help text.
type Choices []Choice

// ChoiceMap maps accepted values to their help text. Completion lists them
// in sorted order.
type ChoiceMap map[string]string

// Pattern accepts values matching a regular expression.
type Pattern struct {
	Re *regexp.Regexp
}

// MatchPattern compiles expr into a Pattern. It panics if expr is invalid,
// like regexp.MustCompile, since trees are declared at init time.
func MatchPattern(expr string) Pattern {
	return Pattern{Re: regexp.MustCompile(expr)}
}

// Generator produces the accepted values when a line is parsed.
type Generator func() Match

// Validator decides whether a single value is acceptable.
type Validator func(value string) bool

func (Values) isMatch()    {}
func (Choices) isMatch()   {}
func (ChoiceMap) isMatch() {}
func (Pattern) isMatch()   {}
func (Generator) isMatch() {}
func (Validator) isMatch() {}
