package cmdtree

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Tag marks multi-value completion entries for separate display.
type Tag int

const (
	TagNone      Tag = iota
	TagSelected      // value already chosen for a multiple option
	TagAvailable     // value not chosen yet
)

// Candidate is one legal next token.
type Candidate struct {
	Name       string
	Help       string
	CompleteOn bool // may be inserted automatically when it is the only match
	Primary    bool
	Tag        Tag
}

// Pseudo-tokens offered by the parser.
var (
	CR    = Candidate{Name: "<cr>", Help: "Execute command"}
	Pipe  = Candidate{Name: "|", Help: "Output modifiers", CompleteOn: true}
	Value = Candidate{Name: "<value>", Help: "Insert option value"}
)

// Names returns the candidate names in order.
func Names(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}

// Find returns the candidate named name.
func Find(candidates []Candidate, name string) (Candidate, bool) {
	for _, c := range candidates {
		if c.Name == name {
			return c, true
		}
	}
	return Candidate{}, false
}

// WriteHelp prints aligned completion candidates to w under header.
// Multi-value entries are listed after the others with a selection marker.
// The entire output is built as a single string and written in one call
// so that readline's wrapWriter triggers only one Refresh cycle.
func WriteHelp(w io.Writer, header string, candidates []Candidate) {
	var plain, tagged []Candidate
	for _, c := range candidates {
		if c.Tag == TagNone {
			plain = append(plain, c)
		} else {
			tagged = append(tagged, c)
		}
	}
	sort.SliceStable(plain, func(i, j int) bool { return plain[i].Name < plain[j].Name })

	maxWidth := 20
	for _, c := range candidates {
		if len(c.Name)+4 > maxWidth {
			maxWidth = len(c.Name) + 4
		}
	}
	var sb strings.Builder
	if header != "" {
		sb.WriteString(header + "\n")
	}
	for _, c := range plain {
		if c.Help != "" {
			fmt.Fprintf(&sb, "  %-*s %s\n", maxWidth, c.Name, c.Help)
		} else {
			fmt.Fprintf(&sb, "  %s\n", c.Name)
		}
	}
	for _, c := range tagged {
		mark := "[ ]"
		if c.Tag == TagSelected {
			mark = "[x]"
		}
		fmt.Fprintf(&sb, "  %s %-*s %s\n", mark, maxWidth-4, c.Name, c.Help)
	}
	io.WriteString(w, sb.String())
}

// CommonPrefix returns the longest shared prefix among the given strings.
func CommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// FilterPrefix returns only candidates whose name starts with prefix.
func FilterPrefix(candidates []Candidate, prefix string) []Candidate {
	result := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.HasPrefix(c.Name, prefix) {
			result = append(result, c)
		}
	}
	return result
}
