package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// CategoryKey is the attribute that selects a record's syslog category.
const CategoryKey = "category"

// SyslogSlogHandler is an slog.Handler that forwards log records to remote
// syslog servers in addition to a wrapped base handler (typically stderr).
type SyslogSlogHandler struct {
	base   slog.Handler
	shared *clientSet
	attrs  []slog.Attr
	groups []string
}

// clientSet is shared by a handler and every handler derived from it with
// WithAttrs or WithGroup, so SetClients reaches all of them.
type clientSet struct {
	mu      sync.RWMutex
	clients []*SyslogClient
}

// NewSyslogSlogHandler wraps a base slog.Handler with syslog forwarding.
func NewSyslogSlogHandler(base slog.Handler) *SyslogSlogHandler {
	return &SyslogSlogHandler{base: base, shared: &clientSet{}}
}

// SetClients replaces the set of syslog clients. Old clients are closed.
func (h *SyslogSlogHandler) SetClients(clients []*SyslogClient) {
	h.shared.mu.Lock()
	old := h.shared.clients
	h.shared.clients = clients
	h.shared.mu.Unlock()

	for _, c := range old {
		c.Close()
	}
}

// Close closes all syslog clients.
func (h *SyslogSlogHandler) Close() {
	h.SetClients(nil)
}

// Enabled implements slog.Handler.
func (h *SyslogSlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SyslogSlogHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.base.Handle(ctx, r)

	h.shared.mu.RLock()
	clients := h.shared.clients
	h.shared.mu.RUnlock()

	if len(clients) > 0 {
		severity := slogLevelToSyslog(r.Level)
		cat := recordCategory(r, h.attrs)
		msg := formatRecord(r, h.attrs, h.groups)
		for _, c := range clients {
			if c.ShouldSendEvent(severity, cat) {
				c.Send(severity, msg)
			}
		}
	}

	return err
}

// WithAttrs implements slog.Handler.
func (h *SyslogSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SyslogSlogHandler{
		base:   h.base.WithAttrs(attrs),
		shared: h.shared,
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
		groups: h.groups,
	}
}

// WithGroup implements slog.Handler.
func (h *SyslogSlogHandler) WithGroup(name string) slog.Handler {
	return &SyslogSlogHandler{
		base:   h.base.WithGroup(name),
		shared: h.shared,
		attrs:  h.attrs,
		groups: append(append([]string{}, h.groups...), name),
	}
}

// slogLevelToSyslog maps slog levels to syslog severity values.
func slogLevelToSyslog(level slog.Level) int {
	switch {
	case level >= slog.LevelError:
		return SyslogError
	case level >= slog.LevelWarn:
		return SyslogWarning
	default:
		return SyslogInfo
	}
}

func recordCategory(r slog.Record, preAttrs []slog.Attr) Category {
	name := ""
	for _, a := range preAttrs {
		if a.Key == CategoryKey {
			name = a.Value.String()
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == CategoryKey {
			name = a.Value.String()
			return false
		}
		return true
	})
	if c := ParseCategories([]string{name}); c != 0 {
		return c
	}
	return CategorySystem
}

// formatRecord produces a compact text representation of a log record.
// Values containing spaces are quoted.
func formatRecord(r slog.Record, preAttrs []slog.Attr, groups []string) string {
	var b strings.Builder
	b.WriteString(r.Message)

	for _, a := range preAttrs {
		writeAttr(&b, a.Key, a.Value)
	}

	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if len(groups) > 0 {
			key = strings.Join(groups, ".") + "." + key
		}
		writeAttr(&b, key, a.Value)
		return true
	})

	return b.String()
}

func writeAttr(b *strings.Builder, key string, v slog.Value) {
	s := v.String()
	if strings.ContainsAny(s, " \t\"") {
		fmt.Fprintf(b, " %s=%q", key, s)
		return
	}
	fmt.Fprintf(b, " %s=%s", key, s)
}
