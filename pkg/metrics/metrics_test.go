package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestStatsSnapshot(t *testing.T) {
	s := NewStats()
	s.CommandExecuted(StatusOK, time.Second)
	s.CommandExecuted(StatusOK, time.Second)
	s.CommandExecuted(StatusError, 500*time.Millisecond)
	s.ParseError("unknown_token")
	s.Completion()
	s.SessionOpened()
	s.SessionOpened()
	s.SessionClosed()

	want := Snapshot{
		Commands:    map[string]uint64{StatusOK: 2, StatusError: 1},
		ParseErrors: map[string]uint64{"unknown_token": 1},
		Completions: 1,
		Sessions:    1,
		Duration:    2500 * time.Millisecond,
	}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestNilStats(t *testing.T) {
	var s *Stats
	s.CommandExecuted(StatusOK, time.Second)
	s.ParseError("unknown_token")
	s.Completion()
	s.SessionOpened()
	s.SessionClosed()
}

func TestHandler(t *testing.T) {
	s := NewStats()
	s.CommandExecuted(StatusCancelled, 0)
	s.ParseError("invalid_value")
	s.ParseError("invalid_value")

	srv := httptest.NewServer(Handler(s))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	for _, line := range []string{
		`vty_commands_total{status="cancelled"} 1`,
		`vty_parse_errors_total{kind="invalid_value"} 2`,
		`vty_completions_total 0`,
		`vty_sessions_active 0`,
	} {
		if !strings.Contains(string(body), line) {
			t.Errorf("metrics output missing %q:\n%s", line, body)
		}
	}
}
