package parser

import (
	"fmt"

	"github.com/psaab/vty/pkg/cmdtree"
)

// option is a normalized cmdtree.Option. Name is slugified, Primary is the
// effective primary flag and Help carries any configured suffixes.
type option struct {
	cmdtree.Option
	match matchSpec
}

// optionStage consumes the matched leaf's options.
type optionStage struct{}

func normalize(ctx *Context, decls []cmdtree.Option) []*option {
	var (
		opts         []*option
		primaryTaken bool
		names        = map[string]bool{}
	)
	for _, d := range decls {
		name := cmdtree.Slug(d.Name)
		if name == "" || names[name] {
			continue
		}
		names[name] = true

		o := &option{Option: d}
		o.Name = name
		o.Primary = !primaryTaken && d.Primary && !d.Bool && !d.Multiple && d.Group == ""
		if o.Primary {
			primaryTaken = true
		}
		o.match = resolveMatch(d.Match, d.MatchName, d.MatchHelp)
		if d.Default != "" && ctx.Config.AppendDefault {
			o.Help += fmt.Sprintf(" (default: %s)", d.Default)
		}
		if d.Group != "" && ctx.Config.AppendGroup {
			o.Help += fmt.Sprintf(" (group: %s)", d.Group)
		}

		switch {
		case d.Bool:
			ctx.Store[name] = false
		case d.Default != "" && d.Multiple:
			ctx.Store[name] = []string{d.Default}
		case d.Default != "":
			ctx.Store[name] = d.Default
		default:
			ctx.Store[name] = nil
		}
		opts = append(opts, o)
	}
	return opts
}

func (optionStage) Parse(ctx *Context) *Error {
	if !ctx.Executable {
		return nil
	}
	ctx.Options = normalize(ctx, ctx.Node.Options)
	ctx.optState = optSingleKey
	primary := ctx.primary()

	for len(ctx.Tokens) > 0 && !ctx.atPipe() {
		ctx.State = StateOption
		tok := ctx.next()

		opt := ctx.unseenOption(tok)
		if opt == nil {
			if primary != nil && !ctx.seen(primary.Name) && primary.match.accepts(tok) {
				ctx.Store[primary.Name] = tok
				ctx.markSeen(primary)
				ctx.optState = optSingleKey
				continue
			}
			err := newError(KindUnknownOption, tok, "unknown token: %s", tok)
			err.Suggestion = suggest(tok, ctx.availableNames())
			return err
		}

		if !opt.Primary {
			ctx.optionCount++
		}
		ctx.markSeen(opt)
		ctx.current = opt

		if opt.Bool {
			ctx.Store[opt.Name] = true
			ctx.optState = optSingleKey
			continue
		}

		// A named option drops its default: the value must come from input.
		ctx.Store[opt.Name] = nil
		if _, ok := ctx.peek(); !ok || ctx.atPipe() {
			ctx.optState = optValue
			break
		}

		if opt.Multiple {
			ctx.optState = optMultiKey
			consumeMultiple(ctx, opt)
			continue
		}
		ctx.optState = optSingleKey
		ctx.Store[opt.Name] = ctx.next()
	}
	return nil
}

// consumeMultiple takes values for opt while they match its candidate set.
// The first token that does not match, or that names another unseen
// option, is left for the caller.
func consumeMultiple(ctx *Context, opt *option) {
	values := []string{}
	for len(ctx.Tokens) > 0 && !ctx.atPipe() {
		tok, _ := ctx.peek()
		if ctx.unseenOption(tok) != nil || !opt.match.accepts(tok) {
			break
		}
		ctx.next()
		if !contains(values, tok) {
			values = append(values, tok)
		}
	}
	ctx.Store[opt.Name] = values

	ctx.multiSeen = ctx.multiSeen[:0]
	for _, v := range values {
		c, ok := cmdtree.Find(opt.match.candidates, v)
		if !ok {
			c = valueCandidate(v, "")
		}
		c.Tag = cmdtree.TagSelected
		ctx.multiSeen = append(ctx.multiSeen, c)
	}
	for _, c := range opt.match.candidates {
		if !contains(values, c.Name) {
			c.Tag = cmdtree.TagAvailable
			ctx.multiSeen = append(ctx.multiSeen, c)
		}
	}
}

func (optionStage) Validate(ctx *Context) *Error {
	if !ctx.Executable {
		return nil
	}
	checked := map[string]bool{}
	for _, o := range ctx.Options {
		if err := ctx.checkRequired(o, checked); err != nil {
			return err
		}
	}
	for _, o := range ctx.Options {
		if err := ctx.checkValue(o); err != nil {
			return err
		}
	}
	if len(ctx.Options) > 0 && ctx.optionCount < ctx.Meta.MinOptions {
		return newError(KindInsufficientOptionCount, "", "insufficient options (min: %d)", ctx.Meta.MinOptions)
	}
	return nil
}

func (c *Context) checkRequired(o *option, checkedGroups map[string]bool) *Error {
	if o.Group == "" {
		if o.Required && !c.Store.Has(o.Name) {
			return newError(KindMissingRequiredOption, "", "required option `%s` not supplied", o.Name)
		}
		return nil
	}
	if checkedGroups[o.Group] {
		return nil
	}
	checkedGroups[o.Group] = true

	required, count := false, 0
	for _, m := range c.Options {
		if m.Group != o.Group {
			continue
		}
		required = required || m.Required
		if c.Store.Has(m.Name) {
			count++
		}
	}
	switch {
	case !required || count == 1:
		return nil
	case count == 0:
		return newError(KindMissingRequiredOption, "", "required group option `%s` not supplied", o.Group)
	default:
		return newError(KindAmbiguousGroup, "", "required group option `%s` expects only one value", o.Group)
	}
}

func (c *Context) checkValue(o *option) *Error {
	if o.Bool {
		return nil
	}
	if !c.seen(o.Name) {
		if o.Default == "" || o.match.bypass || o.Flexible {
			return nil
		}
	} else if !c.Store.Has(o.Name) {
		return newError(KindMissingRequiredValue, o.Name, "value for option `%s` not supplied", o.Name)
	}
	if o.Flexible {
		return nil
	}
	for _, v := range c.Store.Strings(o.Name) {
		if !o.match.accepts(v) {
			return newError(KindInvalidValue, v, "value `%s` for option `%s` is not valid", v, o.Name)
		}
	}
	return nil
}

func (optionStage) Complete(ctx *Context) []cmdtree.Candidate {
	if !ctx.Executable {
		return nil
	}
	if ctx.optState == optValue {
		return ctx.current.match.completions()
	}

	var candidates []cmdtree.Candidate
	for _, o := range ctx.Options {
		if ctx.seen(o.Name) || ctx.groupSeen(o.Group) || o.Hidden {
			continue
		}
		c := cmdtree.Candidate{Name: o.Name, Help: o.Help, CompleteOn: true}
		if o.Primary {
			c.Name = "<" + o.Name + ">"
			c.CompleteOn = false
			c.Primary = true
		}
		candidates = append(candidates, c)
	}
	if ctx.optState == optMultiKey {
		candidates = append(candidates, ctx.multiSeen...)
	}
	if ctx.optionCount >= ctx.Meta.MinOptions || len(ctx.Options) == 0 {
		candidates = append(candidates, cmdtree.CR)
	}
	if ctx.Meta.Pipeable {
		candidates = append(candidates, cmdtree.Pipe)
	}
	// The <name> entry already stands for a predicate or empty set.
	if p := ctx.primary(); p != nil && !ctx.seen(p.Name) && p.match.enumerable {
		candidates = append(candidates, p.match.candidates...)
	}
	return candidates
}

func (c *Context) primary() *option {
	for _, o := range c.Options {
		if o.Primary {
			return o
		}
	}
	return nil
}

func (c *Context) unseenOption(name string) *option {
	for _, o := range c.Options {
		if o.Name == name && !c.seen(name) {
			return o
		}
	}
	return nil
}

func (c *Context) markSeen(o *option) {
	c.SeenOptions = append(c.SeenOptions, o.Name)
	if o.Group != "" && !c.groupSeen(o.Group) {
		c.SeenGroups = append(c.SeenGroups, o.Group)
	}
}

func (c *Context) availableNames() []string {
	var names []string
	for _, o := range c.Options {
		if !c.seen(o.Name) && !c.groupSeen(o.Group) && !o.Hidden {
			names = append(names, o.Name)
		}
	}
	return names
}
