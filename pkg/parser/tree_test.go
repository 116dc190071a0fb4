package parser

import (
	"context"
	"io"
	"strconv"

	"github.com/psaab/vty/pkg/cmdtree"
)

var noop = cmdtree.HandlerFunc(func(context.Context, io.Writer, cmdtree.Store) error { return nil })

var topLevel = []string{
	"purge", "show", "exit", "reboot", "ping", "ssh", "backup", "health-stat", "traceroute",
}

// testTree is modelled on a switch management console.
func testTree() *cmdtree.Tree {
	return cmdtree.MustCompile(
		&cmdtree.Node{Name: "purge", Help: "Purge cached data", Children: []*cmdtree.Node{
			{Name: "mac-address-table", Help: "Flush MAC address table", Handler: noop},
			{Name: "log", Help: "Remove access log files", Handler: noop},
		}},
		&cmdtree.Node{Name: "show", Help: "Show system information", Children: []*cmdtree.Node{
			{Name: "mac-address-table", Help: "Show MAC address table", Handler: noop},
			{Name: "hardware", Help: "Show hardware information", Children: []*cmdtree.Node{
				{Name: "hard-drive", Help: "Hard drive status", Children: []*cmdtree.Node{
					{Name: "fan", Help: "Fan status", Handler: noop, Meta: cmdtree.Meta{Pipeable: true}},
					{Name: "controller", Help: "Controller status", Handler: noop},
					{Name: "errors", Help: "Error counters", Handler: noop},
					{Name: "pager", Help: "Pager status", Handler: noop},
				}},
				{Name: "network-card", Help: "Network card status", Handler: noop},
				{Name: "cpu", Help: "CPU status", Handler: noop},
			}},
			{Name: "clock", Help: "Show system clock", Handler: noop},
			{Name: "ip", Help: "Show IPv4 information", Handler: noop, Options: []cmdtree.Option{
				{Name: "interfaces", Help: "Interface type", Primary: true, Match: cmdtree.Generator(func() cmdtree.Match {
					return cmdtree.Values{"ethernet", "loopback", "management", "trunk", "ve"}
				})},
				{Name: "brief", Help: "Show minimum information", Bool: true},
			}},
			{Name: "terminal", Help: "Show terminal parameters", Handler: noop, Options: []cmdtree.Option{
				{Name: "color", Help: "Terminal colors", Multiple: true, Match: cmdtree.ChoiceMap{
					"red": "Red", "blue": "Blue", "green": "Green", "black": "Black",
					"white": "White", "magenta": "Magenta", "yellow": "Yellow", "cyan": "Cyan",
				}},
				{Name: "width", Help: "Terminal width", Match: cmdtree.Validator(func(v string) bool {
					n, err := strconv.Atoi(v)
					return err == nil && n > 0
				})},
			}},
			{Name: "interface", Help: "Show interface", Handler: noop, Options: []cmdtree.Option{
				{Name: "name", Help: "Interface name", Match: cmdtree.Values{"1/1", "1/2", "1/3"}},
			}},
			{Name: "log", Help: "Show system log", Handler: noop},
			{Name: "version", Help: "Show version", Handler: noop},
		}},
		&cmdtree.Node{Name: "exit", Help: "Exit the session", Handler: noop},
		&cmdtree.Node{Name: "reboot", Help: "Reboot machine", Handler: noop},
		&cmdtree.Node{Name: "ping", Help: "Send ICMP echo messages", Handler: noop, Meta: cmdtree.Meta{Pipeable: true}, Options: []cmdtree.Option{
			{Name: "host", Help: "Remote host", Primary: true, Required: true},
			{Name: "ttl", Help: "Time to live", Default: "10", Match: cmdtree.MatchPattern(`^\d+$`), MatchName: "NUM<length1-5>"},
			{Name: "size", Help: "Packet size"},
			{Name: "flood", Help: "Flood ping", Bool: true},
			{Name: "timeout", Help: "Timeout in seconds", Match: cmdtree.Generator(func() cmdtree.Match {
				return cmdtree.Values{"10", "1", "30", "60"}
			})},
			{Name: "src-ip", Help: "Source address", Group: "source"},
			{Name: "interface", Help: "Source interface", Group: "source", Match: cmdtree.Values{"eth0", "eth1", "eth2", "eth3", "34"}},
			{Name: "fake", Help: "Fake source", Group: "source", Bool: true},
			{Name: "hiddenOpt", Help: "Not listed", Hidden: true},
		}},
		&cmdtree.Node{Name: "ssh", Help: "Open an ssh connection", Handler: noop},
		&cmdtree.Node{Name: "backup", Help: "Backup configuration", Handler: noop, Meta: cmdtree.Meta{MinOptions: 1}, Options: []cmdtree.Option{
			{Name: "full", Help: "Full backup", Bool: true},
			{Name: "incremental", Help: "Incremental backup", Bool: true},
		}},
		&cmdtree.Node{Name: "health-stat", Help: "Health statistics", Handler: noop},
		&cmdtree.Node{Name: "traceroute", Help: "Trace route to host", Handler: noop, Options: []cmdtree.Option{
			{Name: "address", Help: "Target address", Group: "target", Required: true},
			{Name: "hostname", Help: "Target host name", Group: "target"},
			{Name: "prefix", Help: "Target prefix", Group: "target"},
			{Name: "probes", Help: "Probes per hop", Match: cmdtree.Values{"1", "2", "3"}},
		}},
	)
}

func testEngine(opts ...EngineOption) *Engine {
	return New(testTree(), opts...)
}
