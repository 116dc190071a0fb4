package parser

import (
	"github.com/psaab/vty/pkg/cmdtree"
)

// commandStage walks the tree by token until it reaches a leaf.
type commandStage struct {
	tree *cmdtree.Tree
}

func (s commandStage) Parse(ctx *Context) *Error {
	node := s.tree.Root()
	ctx.Node = node
	for len(ctx.Tokens) > 0 {
		ctx.State = StateCommand
		tok := ctx.next()
		child := node.Child(tok)
		if child == nil {
			err := newError(KindUnknownToken, tok, "unknown token: %s", tok)
			err.Suggestion = suggest(tok, childNames(node))
			return err
		}
		ctx.Path = append(ctx.Path, tok)
		node = child
		ctx.Node = node
		if node.IsLeaf() {
			ctx.Executable = true
			ctx.Meta = node.Meta
			break
		}
	}
	return nil
}

func (commandStage) Validate(ctx *Context) *Error {
	if !ctx.Executable {
		return newError(KindIncompletePath, "", "incomplete command `%s`", pathString(ctx))
	}
	return nil
}

func (commandStage) Complete(ctx *Context) []cmdtree.Candidate {
	if ctx.Node == nil {
		return nil
	}
	if !ctx.Executable {
		candidates := make([]cmdtree.Candidate, 0, len(ctx.Node.Children))
		for _, c := range ctx.Node.Children {
			candidates = append(candidates, cmdtree.Candidate{Name: c.Name, Help: c.Help, CompleteOn: true})
		}
		return candidates
	}
	candidates := []cmdtree.Candidate{cmdtree.CR}
	if ctx.Meta.Pipeable {
		candidates = append(candidates, cmdtree.Pipe)
	}
	return candidates
}

func childNames(n *cmdtree.Node) []string {
	names := make([]string, len(n.Children))
	for i, c := range n.Children {
		names[i] = c.Name
	}
	return names
}
