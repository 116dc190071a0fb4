package parser

import (
	"github.com/psaab/vty/pkg/cmdtree"
)

// PipeChar separates a command from its output modifiers.
const PipeChar = "|"

// pipeStage parses a trailing "| modifier [arg]" chain.
type pipeStage struct {
	modifiers []Modifier
}

func (s pipeStage) Parse(ctx *Context) *Error {
	if !ctx.atPipe() {
		return nil
	}
	ctx.State = StatePipe
	if !ctx.Meta.Pipeable {
		return newError(KindPipeNotAllowed, PipeChar, "pipe not allowed for `%s`", pathString(ctx))
	}
	ctx.piped = true
	ctx.next()

	segments := splitSegments(ctx.Tokens, ctx.ops)
	ctx.Tokens, ctx.ops = nil, nil
	for i, seg := range segments {
		last := i == len(segments)-1
		ctx.pipeState = pipeModifier
		ctx.modifier = nil
		if len(seg) == 0 {
			err := newError(KindMissingModifier, PipeChar, "missing modifier after `|`")
			if last {
				ctx.pipePending = err
				return nil
			}
			return err
		}

		name, args := seg[0], seg[1:]
		m := s.lookup(name)
		if m == nil {
			err := newError(KindUnknownModifier, name, "unknown modifier: %s", name)
			err.Suggestion = suggest(name, s.names())
			return err
		}
		ctx.modifier = m

		if m.Arg == nil {
			if len(args) > 0 {
				return newError(KindTooManyArguments, args[0], "modifier `%s` does not expect arguments", name)
			}
			ctx.Pipes = append(ctx.Pipes, m.render(""))
			ctx.pipeState = pipeNone
			continue
		}

		ctx.pipeState = pipeArgument
		if len(args) > 1 {
			return newError(KindTooManyArguments, args[1], "modifier `%s` only expects one argument", name)
		}
		arg := m.Arg.Default
		if len(args) == 1 {
			arg = args[0]
		}
		if arg == "" {
			err := newError(KindMissingRequiredArgument, name, "required argument for modifier `%s` not provided", name)
			if last {
				ctx.pipePending = err
				return nil
			}
			return err
		}
		ctx.Pipes = append(ctx.Pipes, m.render(arg))
		if len(args) == 1 {
			ctx.pipeState = pipeNone
		}
	}
	return nil
}

func (pipeStage) Validate(ctx *Context) *Error {
	return ctx.pipePending
}

func (s pipeStage) Complete(ctx *Context) []cmdtree.Candidate {
	if !ctx.piped {
		return nil
	}
	switch ctx.pipeState {
	case pipeModifier:
		candidates := make([]cmdtree.Candidate, 0, len(s.modifiers))
		for i := range s.modifiers {
			candidates = append(candidates, s.modifiers[i].candidate())
		}
		return candidates
	case pipeArgument:
		if ctx.pipePending != nil {
			return []cmdtree.Candidate{ctx.modifier.argCandidate()}
		}
		return []cmdtree.Candidate{ctx.modifier.argCandidate(), cmdtree.CR, cmdtree.Pipe}
	default:
		return []cmdtree.Candidate{cmdtree.CR, cmdtree.Pipe}
	}
}

func (s pipeStage) lookup(name string) *Modifier {
	for i := range s.modifiers {
		if s.modifiers[i].Name == name {
			return &s.modifiers[i]
		}
	}
	return nil
}

func (s pipeStage) names() []string {
	names := make([]string, len(s.modifiers))
	for i, m := range s.modifiers {
		names[i] = m.Name
	}
	return names
}

// splitSegments splits tokens at each pipe operator. n pipes give n+1
// segments, empty ones included.
func splitSegments(tokens []string, ops []bool) [][]string {
	segments := [][]string{{}}
	for i, t := range tokens {
		if ops[i] && t == PipeChar {
			segments = append(segments, []string{})
			continue
		}
		segments[len(segments)-1] = append(segments[len(segments)-1], t)
	}
	return segments
}
