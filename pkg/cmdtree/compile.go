package cmdtree

import (
	"fmt"
	"strings"
	"unicode"
)

// Tree is a checked command tree. The zero value is an empty tree.
type Tree struct {
	root Node
}

// Compile checks the declared top-level commands and returns a Tree built
// from copies of them. Names are slugified; sibling names must be unique and
// every node must be either internal or a leaf.
func Compile(commands ...*Node) (*Tree, error) {
	children, err := compileLevel(commands, "")
	if err != nil {
		return nil, err
	}
	return &Tree{root: Node{Children: children}}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(commands ...*Node) *Tree {
	t, err := Compile(commands...)
	if err != nil {
		panic(err)
	}
	return t
}

// Root returns the synthetic internal node holding the top-level commands.
func (t *Tree) Root() *Node {
	return &t.root
}

func compileLevel(nodes []*Node, path string) ([]*Node, error) {
	out := make([]*Node, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		name := Slug(n.Name)
		if name == "" {
			return nil, fmt.Errorf("command under %q has no name", strings.TrimSpace(path))
		}
		full := strings.TrimSpace(path + " " + name)
		if seen[name] {
			return nil, fmt.Errorf("duplicate command %q", full)
		}
		seen[name] = true

		hasChildren := len(n.Children) > 0
		switch {
		case hasChildren && n.Handler != nil:
			return nil, fmt.Errorf("command %q has both subcommands and a handler", full)
		case !hasChildren && n.Handler == nil:
			return nil, fmt.Errorf("command %q has neither subcommands nor a handler", full)
		}

		c := &Node{Name: name, Help: n.Help}
		if hasChildren {
			children, err := compileLevel(n.Children, full)
			if err != nil {
				return nil, err
			}
			c.Children = children
		} else {
			c.Options = append([]Option(nil), n.Options...)
			c.Handler = n.Handler
			c.Meta = n.Meta
		}
		out = append(out, c)
	}
	return out, nil
}

// Slug normalizes a command or option name: surrounding space is trimmed,
// inner whitespace runs become a single '-', control characters are
// dropped. Case is preserved since matching is case-sensitive.
func Slug(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r):
		default:
			if space {
				b.WriteByte('-')
				space = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
