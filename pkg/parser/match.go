package parser

import (
	"sort"
	"strings"

	"github.com/psaab/vty/pkg/cmdtree"
)

// matchSpec is a resolved cmdtree.Match: either an enumerable candidate
// set or a predicate.
type matchSpec struct {
	enumerable  bool
	candidates  []cmdtree.Candidate
	validate    func(string) bool
	bypass      bool // no constraint was declared
	placeholder cmdtree.Candidate
}

const maxGeneratorDepth = 8

func resolveMatch(m cmdtree.Match, name, help string) matchSpec {
	placeholder := cmdtree.Value
	if name != "" {
		placeholder.Name = name
	}
	if help != "" {
		placeholder.Help = help
	}
	return resolve(m, placeholder, 0)
}

func resolve(m cmdtree.Match, placeholder cmdtree.Candidate, depth int) matchSpec {
	switch m := m.(type) {
	case nil:
		return matchSpec{
			validate:    func(string) bool { return true },
			bypass:      true,
			placeholder: placeholder,
		}
	case cmdtree.Validator:
		if m == nil {
			return resolve(nil, placeholder, depth)
		}
		return matchSpec{validate: m, placeholder: placeholder}
	case cmdtree.Pattern:
		if m.Re == nil {
			return resolve(nil, placeholder, depth)
		}
		return matchSpec{validate: m.Re.MatchString, placeholder: placeholder}
	case cmdtree.Generator:
		if m == nil || depth >= maxGeneratorDepth {
			return matchSpec{enumerable: true, placeholder: placeholder}
		}
		return resolve(generate(m), placeholder, depth+1)
	case cmdtree.Values:
		spec := matchSpec{enumerable: true, placeholder: placeholder}
		for _, v := range m {
			spec.candidates = append(spec.candidates, valueCandidate(v, ""))
		}
		return spec
	case cmdtree.Choices:
		spec := matchSpec{enumerable: true, placeholder: placeholder}
		for _, c := range m {
			spec.candidates = append(spec.candidates, valueCandidate(c.Name, c.Help))
		}
		return spec
	case cmdtree.ChoiceMap:
		names := make([]string, 0, len(m))
		for k := range m {
			names = append(names, k)
		}
		sort.Strings(names)
		spec := matchSpec{enumerable: true, placeholder: placeholder}
		for _, n := range names {
			spec.candidates = append(spec.candidates, valueCandidate(n, m[n]))
		}
		return spec
	}
	return matchSpec{enumerable: true, placeholder: placeholder}
}

// generate calls g, treating a panic as an empty result.
func generate(g cmdtree.Generator) (m cmdtree.Match) {
	defer func() {
		if recover() != nil {
			m = cmdtree.Values{}
		}
	}()
	m = g()
	if m == nil {
		return cmdtree.Values{}
	}
	return m
}

func valueCandidate(name, help string) cmdtree.Candidate {
	return cmdtree.Candidate{
		Name:       name,
		Help:       help,
		CompleteOn: !strings.HasPrefix(name, "<"),
	}
}

func (m matchSpec) accepts(value string) (ok bool) {
	if m.enumerable {
		for _, c := range m.candidates {
			if c.Name == value {
				return true
			}
		}
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return m.validate(value)
}

func (m matchSpec) names() []string {
	return cmdtree.Names(m.candidates)
}

// completions lists the values to offer. An empty candidate set still
// offers the placeholder since a value is expected.
func (m matchSpec) completions() []cmdtree.Candidate {
	if m.enumerable && len(m.candidates) > 0 {
		return append([]cmdtree.Candidate(nil), m.candidates...)
	}
	return []cmdtree.Candidate{m.placeholder}
}
