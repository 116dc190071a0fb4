// Package metrics exports shell activity counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Command statuses.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Stats accumulates counters for one process. A nil *Stats discards all
// updates.
type Stats struct {
	mu          sync.Mutex
	commands    map[string]uint64 // by status
	parseErrors map[string]uint64 // by error kind
	completions uint64
	sessions    int64
	duration    time.Duration
}

// NewStats returns empty counters.
func NewStats() *Stats {
	return &Stats{
		commands:    map[string]uint64{},
		parseErrors: map[string]uint64{},
	}
}

// CommandExecuted records one executed line.
func (s *Stats) CommandExecuted(status string, d time.Duration) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.commands[status]++
	s.duration += d
	s.mu.Unlock()
}

// ParseError records a rejected line.
func (s *Stats) ParseError(kind string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.parseErrors[kind]++
	s.mu.Unlock()
}

// Completion records one completion request.
func (s *Stats) Completion() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.completions++
	s.mu.Unlock()
}

// SessionOpened and SessionClosed track interactive sessions.
func (s *Stats) SessionOpened() { s.addSessions(1) }

func (s *Stats) SessionClosed() { s.addSessions(-1) }

func (s *Stats) addSessions(n int64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.sessions += n
	s.mu.Unlock()
}

// Snapshot is a consistent copy of Stats.
type Snapshot struct {
	Commands    map[string]uint64
	ParseErrors map[string]uint64
	Completions uint64
	Sessions    int64
	Duration    time.Duration
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Commands:    make(map[string]uint64, len(s.commands)),
		ParseErrors: make(map[string]uint64, len(s.parseErrors)),
		Completions: s.completions,
		Sessions:    s.sessions,
		Duration:    s.duration,
	}
	for k, v := range s.commands {
		snap.Commands[k] = v
	}
	for k, v := range s.parseErrors {
		snap.ParseErrors[k] = v
	}
	return snap
}

// vtyCollector implements prometheus.Collector, reading Stats on each scrape.
type vtyCollector struct {
	stats *Stats

	commandsTotal    *prometheus.Desc
	commandSeconds   *prometheus.Desc
	parseErrorsTotal *prometheus.Desc
	completionsTotal *prometheus.Desc
	sessionsActive   *prometheus.Desc
}

// NewCollector returns a collector exporting s.
func NewCollector(s *Stats) prometheus.Collector {
	return &vtyCollector{
		stats: s,

		commandsTotal: prometheus.NewDesc(
			"vty_commands_total",
			"Total command lines executed.",
			[]string{"status"}, nil,
		),
		commandSeconds: prometheus.NewDesc(
			"vty_command_seconds_total",
			"Total time spent executing commands.",
			nil, nil,
		),
		parseErrorsTotal: prometheus.NewDesc(
			"vty_parse_errors_total",
			"Total lines rejected by the parser.",
			[]string{"kind"}, nil,
		),
		completionsTotal: prometheus.NewDesc(
			"vty_completions_total",
			"Total completion requests.",
			nil, nil,
		),
		sessionsActive: prometheus.NewDesc(
			"vty_sessions_active",
			"Current number of interactive sessions.",
			nil, nil,
		),
	}
}

func (c *vtyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.commandsTotal
	ch <- c.commandSeconds
	ch <- c.parseErrorsTotal
	ch <- c.completionsTotal
	ch <- c.sessionsActive
}

func (c *vtyCollector) Collect(ch chan<- prometheus.Metric) {
	if c.stats == nil {
		return
	}
	snap := c.stats.Snapshot()

	for _, status := range sortedKeys(snap.Commands) {
		ch <- prometheus.MustNewConstMetric(c.commandsTotal, prometheus.CounterValue,
			float64(snap.Commands[status]), status)
	}
	ch <- prometheus.MustNewConstMetric(c.commandSeconds, prometheus.CounterValue,
		snap.Duration.Seconds())
	for _, kind := range sortedKeys(snap.ParseErrors) {
		ch <- prometheus.MustNewConstMetric(c.parseErrorsTotal, prometheus.CounterValue,
			float64(snap.ParseErrors[kind]), kind)
	}
	ch <- prometheus.MustNewConstMetric(c.completionsTotal, prometheus.CounterValue,
		float64(snap.Completions))
	ch <- prometheus.MustNewConstMetric(c.sessionsActive, prometheus.GaugeValue,
		float64(snap.Sessions))
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Handler returns an http.Handler serving s in the Prometheus text format.
func Handler(s *Stats) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(s))
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Serve serves GET /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, s *Stats) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler(s))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
