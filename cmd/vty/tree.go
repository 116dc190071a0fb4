package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/vishvananda/netlink"

	"github.com/psaab/vty/pkg/cli"
	"github.com/psaab/vty/pkg/cmdtree"
	"github.com/psaab/vty/pkg/config"
)

var version = "dev"

var hostnameRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,62})(\.[A-Za-z0-9]([A-Za-z0-9-]{0,62}))*$`)

// demoTree builds the operational command tree served by the binary.
func demoTree(cfg *config.Config) *cmdtree.Tree {
	return cmdtree.MustCompile(
		&cmdtree.Node{Name: "show", Help: "Show system information", Children: []*cmdtree.Node{
			{Name: "version", Help: "Show software version", Meta: cmdtree.Meta{Pipeable: true}, Handler: cmdtree.HandlerFunc(showVersion)},
			{Name: "clock", Help: "Show system clock", Handler: cmdtree.HandlerFunc(showClock)},
			{
				Name: "interface", Help: "Show interface status", Meta: cmdtree.Meta{Pipeable: true},
				Options: []cmdtree.Option{
					{Name: "name", Help: "Interface name", Primary: true, Match: cmdtree.Generator(linkNames), MatchName: "<interface>"},
					{Name: "brief", Help: "Display brief output", Bool: true},
				},
				Handler: cmdtree.HandlerFunc(showInterface),
			},
			{Name: "terminal", Help: "Show terminal settings", Handler: showTerminal(cfg)},
		}},
		&cmdtree.Node{
			Name: "ping", Help: "Ping remote target", Meta: cmdtree.Meta{Pipeable: true},
			Options: []cmdtree.Option{
				{Name: "host", Help: "Hostname or IP address of remote host", Primary: true, Required: true,
					Match: cmdtree.Validator(validHost), MatchName: "<host>"},
				{Name: "count", Help: "Number of ping requests to send", Default: "5",
					Match: cmdtree.MatchPattern(`^[1-9][0-9]{0,4}$`), MatchName: "<count>", MatchHelp: "Number of requests (1..99999)"},
				{Name: "ttl", Help: "IP time-to-live value", Default: "64",
					Match: cmdtree.MatchPattern(`^([1-9][0-9]?|1[0-9]{2}|2[0-4][0-9]|25[0-5])$`), MatchName: "<ttl>", MatchHelp: "Time-to-live (1..255)"},
				{Name: "flood", Help: "Send requests without waiting", Bool: true},
				{Name: "interface", Help: "Source interface", Group: "source",
					Match: cmdtree.Generator(linkNames), MatchName: "<interface>"},
				{Name: "source", Help: "Source address", Group: "source",
					Match: cmdtree.Validator(validIP), MatchName: "<address>"},
			},
			Handler: cmdtree.HandlerFunc(ping),
		},
		&cmdtree.Node{Name: "purge", Help: "Remove stored data", Children: []*cmdtree.Node{
			{Name: "log", Help: "Clear command history", Handler: purgeHistory(cfg)},
		}},
		&cmdtree.Node{Name: "exit", Help: "Exit the command shell", Handler: cmdtree.HandlerFunc(
			func(context.Context, io.Writer, cmdtree.Store) error { return cli.ErrExit })},
	)
}

func validIP(s string) bool {
	return net.ParseIP(s) != nil
}

func validHost(s string) bool {
	return validIP(s) || hostnameRe.MatchString(s)
}

// linkNames lists the kernel's network interfaces. On failure the option
// offers no values.
func linkNames() cmdtree.Match {
	links, err := netlink.LinkList()
	if err != nil {
		return cmdtree.Values{}
	}
	choices := make(cmdtree.Choices, 0, len(links))
	for _, l := range links {
		a := l.Attrs()
		choices = append(choices, cmdtree.Choice{Name: a.Name, Help: a.OperState.String()})
	}
	return choices
}

func showVersion(_ context.Context, w io.Writer, _ cmdtree.Store) error {
	hostname, _ := os.Hostname()
	_, err := fmt.Fprintf(w, "Hostname: %s\nvty %s (%s %s/%s)\n", hostname, version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return err
}

func showClock(_ context.Context, w io.Writer, _ cmdtree.Store) error {
	_, err := fmt.Fprintf(w, "Current time: %s\n", time.Now().Format("2006-01-02 15:04:05 MST"))
	return err
}

func showInterface(_ context.Context, w io.Writer, store cmdtree.Store) error {
	var links []netlink.Link
	if name := store.String("name"); name != "" {
		l, err := netlink.LinkByName(name)
		if err != nil {
			return fmt.Errorf("interface %s: %w", name, err)
		}
		links = []netlink.Link{l}
	} else {
		all, err := netlink.LinkList()
		if err != nil {
			return fmt.Errorf("list interfaces: %w", err)
		}
		links = all
	}

	if store.Bool("brief") {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Interface\tState\tMTU")
		for _, l := range links {
			a := l.Attrs()
			fmt.Fprintf(tw, "%s\t%s\t%d\n", a.Name, a.OperState, a.MTU)
		}
		return tw.Flush()
	}

	for _, l := range links {
		a := l.Attrs()
		fmt.Fprintf(w, "Physical interface: %s, Index: %d, State: %s\n", a.Name, a.Index, a.OperState)
		fmt.Fprintf(w, "  Link type: %s, MTU: %d\n", l.Type(), a.MTU)
		if len(a.HardwareAddr) > 0 {
			fmt.Fprintf(w, "  Hardware address: %s\n", a.HardwareAddr)
		}
		addrs, err := netlink.AddrList(l, netlink.FAMILY_ALL)
		if err == nil {
			for _, addr := range addrs {
				fmt.Fprintf(w, "  Address: %s\n", addr.IPNet)
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func showTerminal(cfg *config.Config) cmdtree.Handler {
	return cmdtree.HandlerFunc(func(_ context.Context, w io.Writer, _ cmdtree.Store) error {
		_, err := fmt.Fprintf(w, "Prompt: %q\nHistory file: %s\nShow defaults: %t\nShow groups: %t\n",
			cfg.Prompt, cfg.HistoryFile, cfg.AppendDefault, cfg.AppendGroup)
		return err
	})
}

func purgeHistory(cfg *config.Config) cmdtree.Handler {
	return cmdtree.HandlerFunc(func(_ context.Context, w io.Writer, _ cmdtree.Store) error {
		if cfg.HistoryFile == "" {
			_, err := io.WriteString(w, "No history file configured\n")
			return err
		}
		if err := os.Truncate(cfg.HistoryFile, 0); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("purge history: %w", err)
		}
		_, err := io.WriteString(w, "Command history cleared\n")
		return err
	})
}

// ping prints simulated echo replies until count is reached or ctx is
// cancelled.
func ping(ctx context.Context, w io.Writer, store cmdtree.Store) error {
	host := store.String("host")
	count, _ := strconv.Atoi(store.String("count"))
	ttl := store.String("ttl")
	interval := time.Second
	if store.Bool("flood") {
		interval = 0
	}

	if _, err := fmt.Fprintf(w, "PING %s: 56 data bytes\n", host); err != nil {
		return err
	}
	for seq := 0; seq < count; seq++ {
		if seq > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "64 bytes from %s: icmp_seq=%d ttl=%s\n", host, seq, ttl); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "--- %s ping statistics ---\n%d packets transmitted, %d packets received, 0%% packet loss\n", host, count, count)
	return err
}
