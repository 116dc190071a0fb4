package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/psaab/vty/pkg/cmdtree"
)

func mustParse(t *testing.T, e *Engine, line string) *Result {
	t.Helper()
	res, err := e.Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", line, err)
	}
	return res
}

func parseError(t *testing.T, e *Engine, line string) *Error {
	t.Helper()
	_, err := e.Parse(line)
	if err == nil {
		t.Fatalf("Parse(%q) succeeded, want error", line)
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Parse(%q) error %T, want *Error", line, err)
	}
	return perr
}

func TestParsePath(t *testing.T) {
	e := testEngine()
	res := mustParse(t, e, "show hardware hard-drive fan")
	if diff := cmp.Diff([]string{"show", "hardware", "hard-drive", "fan"}, res.Path); diff != "" {
		t.Errorf("Path mismatch (-want +got):\n%s", diff)
	}
	if res.Command == nil || res.Command.Name != "fan" {
		t.Errorf("Command = %v, want fan", res.Command)
	}
}

func TestParsePrimaryPositional(t *testing.T) {
	e := testEngine()
	positional := mustParse(t, e, "ping 1.1.1.1")
	explicit := mustParse(t, e, "ping host 1.1.1.1")
	if diff := cmp.Diff(explicit.Store, positional.Store); diff != "" {
		t.Errorf("store mismatch (-explicit +positional):\n%s", diff)
	}
	if got := positional.Store.String("host"); got != "1.1.1.1" {
		t.Errorf("host = %q, want 1.1.1.1", got)
	}

	res := mustParse(t, e, "show ip trunk brief")
	if got := res.Store.String("interfaces"); got != "trunk" {
		t.Errorf("interfaces = %q, want trunk", got)
	}
	if !res.Store.Bool("brief") {
		t.Error("brief = false, want true")
	}
}

func TestParseStoreDefaults(t *testing.T) {
	res := mustParse(t, testEngine(), "ping 1.1.1.1 flood")
	want := cmdtree.Store{
		"host":      "1.1.1.1",
		"ttl":       "10",
		"size":      nil,
		"flood":     true,
		"timeout":   nil,
		"src-ip":    nil,
		"interface": nil,
		"fake":      false,
		"hiddenOpt": nil,
	}
	if diff := cmp.Diff(want, res.Store); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}

	res = mustParse(t, testEngine(), "ping 1.1.1.1 ttl 64")
	if got := res.Store.String("ttl"); got != "64" {
		t.Errorf("ttl = %q, want 64", got)
	}
}

func TestParseMultiple(t *testing.T) {
	e := testEngine()
	tests := []struct {
		line  string
		color []string
		width string
	}{
		{"show terminal color red", []string{"red"}, ""},
		{"show terminal color red blue green width 80", []string{"red", "blue", "green"}, "80"},
		{"show terminal width 80 color cyan", []string{"cyan"}, "80"},
		{"show terminal color red red blue", []string{"red", "blue"}, ""},
	}
	for _, tt := range tests {
		res := mustParse(t, e, tt.line)
		if diff := cmp.Diff(tt.color, res.Store.Strings("color")); diff != "" {
			t.Errorf("Parse(%q) color mismatch (-want +got):\n%s", tt.line, diff)
		}
		if got := res.Store.String("width"); got != tt.width {
			t.Errorf("Parse(%q) width = %q, want %q", tt.line, got, tt.width)
		}
	}

	// A non-matching token ends the value list and is parsed as an option.
	err := parseError(t, e, "show terminal color red bogus")
	if err.Kind != KindUnknownOption || err.Token != "bogus" {
		t.Errorf("got %s %q, want %s bogus", err.Kind, err.Token, KindUnknownOption)
	}
}

func TestParseRoundTrip(t *testing.T) {
	e := testEngine()
	for _, line := range []string{
		"ping 1.1.1.1 ttl 5 flood interface eth1",
		"show terminal color red blue width 120",
		"traceroute prefix 10.0.0.0/8 probes 2",
		"backup full incremental",
	} {
		a := mustParse(t, e, line)
		b := mustParse(t, e, line)
		if diff := cmp.Diff(a.Store, b.Store); diff != "" {
			t.Errorf("Parse(%q) not repeatable (-first +second):\n%s", line, diff)
		}
	}
}

func TestParseGroups(t *testing.T) {
	e := testEngine()
	mustParse(t, e, "traceroute hostname example.net")
	mustParse(t, e, "traceroute address 192.0.2.1 probes 3")
	mustParse(t, e, "ping 1.1.1.1")
	mustParse(t, e, "ping 1.1.1.1 fake")

	tests := []struct {
		line string
		kind Kind
	}{
		{"traceroute", KindMissingRequiredOption},
		{"traceroute probes 1", KindMissingRequiredOption},
		{"traceroute hostname a address b", KindAmbiguousGroup},
		{"ping", KindMissingRequiredOption},
	}
	for _, tt := range tests {
		err := parseError(t, e, tt.line)
		if err.Kind != tt.kind {
			t.Errorf("Parse(%q) kind = %s, want %s", tt.line, err.Kind, tt.kind)
		}
		if !err.Validation {
			t.Errorf("Parse(%q) Validation = false, want true", tt.line)
		}
	}

	// Exclusivity is only enforced for groups with a required member.
	res := mustParse(t, e, "ping 1.1.1.1 src-ip 10.0.0.1 interface eth0")
	if !res.Store.Has("src-ip") || !res.Store.Has("interface") {
		t.Errorf("store = %v, want src-ip and interface set", res.Store)
	}
}

func TestParseErrors(t *testing.T) {
	e := testEngine()
	tests := []struct {
		line       string
		kind       Kind
		token      string
		offset     int
		validation bool
	}{
		{"show hardware", KindIncompletePath, "", -1, true},
		{"shw version", KindUnknownToken, "shw", 0, false},
		{"show versoin", KindUnknownToken, "versoin", 5, false},
		{"show version extra", KindUnknownOption, "extra", 13, false},
		{"ping 1.1.1.1 ttl", KindMissingRequiredValue, "ttl", 13, true},
		{"ping 1.1.1.1 ttl abc", KindInvalidValue, "abc", 17, true},
		{"ping 1.1.1.1 interface eth9", KindInvalidValue, "eth9", 23, true},
		{"traceroute address 1.1.1.1 probes 4", KindInvalidValue, "4", 34, true},
		{"show terminal width -3", KindInvalidValue, "-3", 20, true},
		{"backup", KindInsufficientOptionCount, "", -1, true},
	}
	for _, tt := range tests {
		err := parseError(t, e, tt.line)
		if err.Kind != tt.kind || err.Token != tt.token || err.Offset != tt.offset || err.Validation != tt.validation {
			t.Errorf("Parse(%q) = {%s %q %d %v}, want {%s %q %d %v}", tt.line,
				err.Kind, err.Token, err.Offset, err.Validation,
				tt.kind, tt.token, tt.offset, tt.validation)
		}
	}
}

func TestParseSuggestion(t *testing.T) {
	e := testEngine()
	tests := []struct {
		line string
		want string
	}{
		{"shw version", "show"},
		{"show versoin", "version"},
		{"ping 1.1.1.1 tl 3", "ttl"},
		{"ping 1.1.1.1 | grpe x", "grep"},
	}
	for _, tt := range tests {
		if got := parseError(t, e, tt.line).Suggestion; got != tt.want {
			t.Errorf("Parse(%q) suggestion = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestParsePipes(t *testing.T) {
	e := testEngine()
	tests := []struct {
		line string
		want []string
	}{
		{"ping 1.1.1.1", nil},
		{"ping 1.1.1.1 | grep foo", []string{"grep --line-buffered -- foo"}},
		{"ping 1.1.1.1|count", []string{"wc -l"}},
		{"ping 1.1.1.1 | count | tail", []string{"wc -l", "tail -n 10"}},
		{"ping 1.1.1.1 | last 3", []string{"tail -n 3"}},
		{"ping 1.1.1.1 | match 'a b'", []string{"grep --line-buffered -i -- 'a b'"}},
		{"ping 1.1.1.1 | except \"it's\"", []string{`grep --line-buffered -v -- 'it'\''s'`}},
		{"show hardware hard-drive fan | no-more", []string{"cat"}},
		{`ping 1.1.1.1 | grep "|"`, []string{"grep --line-buffered -- '|'"}},
		{`ping "|" | count`, []string{"wc -l"}},
	}
	for _, tt := range tests {
		res := mustParse(t, e, tt.line)
		if diff := cmp.Diff(tt.want, res.Pipes); diff != "" {
			t.Errorf("Parse(%q) pipes mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func TestParsePipeErrors(t *testing.T) {
	e := testEngine()
	tests := []struct {
		line       string
		kind       Kind
		validation bool
	}{
		{"reboot | count", KindPipeNotAllowed, false},
		{"ping 1.1.1.1 | bogus", KindUnknownModifier, false},
		{"ping 1.1.1.1 | grep", KindMissingRequiredArgument, true},
		{"ping 1.1.1.1 | grep | count", KindMissingRequiredArgument, false},
		{"ping 1.1.1.1 | count x", KindTooManyArguments, false},
		{"ping 1.1.1.1 | grep a b", KindTooManyArguments, false},
		{"ping 1.1.1.1 |", KindMissingModifier, true},
		{"ping 1.1.1.1 | | count", KindMissingModifier, false},
	}
	for _, tt := range tests {
		err := parseError(t, e, tt.line)
		if err.Kind != tt.kind || err.Validation != tt.validation {
			t.Errorf("Parse(%q) = {%s %v}, want {%s %v}", tt.line, err.Kind, err.Validation, tt.kind, tt.validation)
		}
	}
}

func TestParseWithModifiers(t *testing.T) {
	e := testEngine(WithModifiers([]Modifier{{Name: "upper", Help: "Upper case", Command: "tr a-z A-Z"}}))
	res := mustParse(t, e, "ping 1.1.1.1 | upper")
	if diff := cmp.Diff([]string{"tr a-z A-Z"}, res.Pipes); diff != "" {
		t.Errorf("pipes mismatch (-want +got):\n%s", diff)
	}
	if err := parseError(t, e, "ping 1.1.1.1 | count"); err.Kind != KindUnknownModifier {
		t.Errorf("kind = %s, want %s", err.Kind, KindUnknownModifier)
	}
}

func TestParseFaultyMatchers(t *testing.T) {
	tree := cmdtree.MustCompile(&cmdtree.Node{
		Name:    "set",
		Handler: noop,
		Options: []cmdtree.Option{
			{Name: "gen", Match: cmdtree.Generator(func() cmdtree.Match { panic("boom") })},
			{Name: "check", Match: cmdtree.Validator(func(string) bool { panic("boom") })},
			{Name: "free", Flexible: true, Match: cmdtree.Values{"a", "b"}},
			{Name: "empty", Match: cmdtree.Values{}},
		},
	})
	e := New(tree)

	if diff := cmp.Diff([]string{"<value>"}, completeNames(e, "set gen ")); diff != "" {
		t.Errorf("panicking generator completion (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"<value>"}, completeNames(e, "set empty ")); diff != "" {
		t.Errorf("empty values completion (-want +got):\n%s", diff)
	}
	if err := parseError(t, e, "set check x"); err.Kind != KindInvalidValue {
		t.Errorf("panicking validator kind = %s, want %s", err.Kind, KindInvalidValue)
	}
	res := mustParse(t, e, "set free zzz")
	if got := res.Store.String("free"); got != "zzz" {
		t.Errorf("free = %q, want zzz", got)
	}
}

func TestErrorString(t *testing.T) {
	err := parseError(t, testEngine(), "show hardware")
	if got, want := err.Error(), "incomplete command `show hardware`"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseMultipleStopsAtOptionName(t *testing.T) {
	e := New(cmdtree.MustCompile(&cmdtree.Node{
		Name: "tag", Help: "Tag an object", Handler: noop,
		Options: []cmdtree.Option{
			{Name: "labels", Help: "Free-form labels", Multiple: true},
			{Name: "ports", Help: "Port numbers", Multiple: true, Match: cmdtree.MatchPattern(`^\d+$`)},
			{Name: "owners", Help: "Owner names", Multiple: true, Match: cmdtree.Validator(func(string) bool { return true })},
			{Name: "verbose", Help: "Verbose output", Bool: true},
		},
	}))

	tests := []struct {
		line    string
		labels  []string
		ports   []string
		owners  []string
		verbose bool
	}{
		{"tag labels a b verbose", []string{"a", "b"}, nil, nil, true},
		{"tag labels a b ports 1 2", []string{"a", "b"}, []string{"1", "2"}, nil, false},
		{"tag ports 1 2 verbose", nil, []string{"1", "2"}, nil, true},
		{"tag owners x y labels z verbose", []string{"z"}, nil, []string{"x", "y"}, true},
		{"tag verbose labels verbose", []string{"verbose"}, nil, nil, true},
	}
	for _, tt := range tests {
		res := mustParse(t, e, tt.line)
		if diff := cmp.Diff(tt.labels, res.Store.Strings("labels")); diff != "" {
			t.Errorf("Parse(%q) labels mismatch (-want +got):\n%s", tt.line, diff)
		}
		if diff := cmp.Diff(tt.ports, res.Store.Strings("ports")); diff != "" {
			t.Errorf("Parse(%q) ports mismatch (-want +got):\n%s", tt.line, diff)
		}
		if diff := cmp.Diff(tt.owners, res.Store.Strings("owners")); diff != "" {
			t.Errorf("Parse(%q) owners mismatch (-want +got):\n%s", tt.line, diff)
		}
		if got := res.Store.Bool("verbose"); got != tt.verbose {
			t.Errorf("Parse(%q) verbose = %v, want %v", tt.line, got, tt.verbose)
		}
	}

	err := parseError(t, e, "tag labels verbose")
	if err.Kind != KindMissingRequiredValue || err.Token != "labels" {
		t.Errorf("Parse(tag labels verbose) = %s %q, want %s %q", err.Kind, err.Token, KindMissingRequiredValue, "labels")
	}
}
