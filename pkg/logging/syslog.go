package logging

import (
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// Syslog severity levels (RFC 3164).
const (
	SyslogError   = 3
	SyslogWarning = 4
	SyslogInfo    = 6
)

// Syslog facilities (RFC 3164).
const (
	FacilityKern   = 0
	FacilityUser   = 1
	FacilityDaemon = 3
	FacilityAuth   = 4
	FacilitySyslog = 5
	FacilityLocal0 = 16
	FacilityLocal1 = 17
	FacilityLocal2 = 18
	FacilityLocal3 = 19
	FacilityLocal4 = 20
	FacilityLocal5 = 21
	FacilityLocal6 = 22
	FacilityLocal7 = 23
)

// Category selects which records a client forwards. Records carry their
// category in the "category" attribute.
type Category uint8

const (
	CategoryAccounting Category = 1 << iota // executed command lines
	CategorySession                         // session open/close
	CategorySystem                          // everything else
)

// SyslogClient sends syslog messages (RFC 3164) over UDP or TCP.
type SyslogClient struct {
	mu       sync.Mutex
	conn     net.Conn
	addr     string
	protocol string
	hostname string

	Tag         string   // program name in the message header
	Facility    int      // FacilityLocal0 unless set
	MinSeverity int      // 0 = no filter, else SyslogError(3)/SyslogWarning(4)/SyslogInfo(6)
	Categories  Category // 0 = no filter
}

// NewSyslogClient creates a UDP syslog client connected to host:port.
func NewSyslogClient(host string, port int) (*SyslogClient, error) {
	return DialSyslog("udp", host, port)
}

// DialSyslog creates a syslog client using protocol "udp" or "tcp". An
// empty protocol means UDP.
func DialSyslog(protocol, host string, port int) (*SyslogClient, error) {
	if protocol == "" {
		protocol = "udp"
	}
	if protocol != "udp" && protocol != "tcp" {
		return nil, fmt.Errorf("syslog protocol %q not supported", protocol)
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout(protocol, addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial syslog %s: %w", addr, err)
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "vty"
	}
	return &SyslogClient{
		conn:     conn,
		addr:     addr,
		protocol: protocol,
		hostname: hostname,
		Tag:      "vty",
		Facility: FacilityLocal0,
	}, nil
}

// Send sends a syslog message with the given severity. TCP messages are
// newline framed and the connection is redialed once if the write fails.
func (s *SyslogClient) Send(severity int, msg string) error {
	priority := s.Facility*8 + severity
	ts := time.Now().Format(time.Stamp) // "Jan _2 15:04:05"
	line := fmt.Sprintf("<%d>%s %s %s: %s", priority, ts, s.hostname, s.Tag, msg)
	if s.protocol == "tcp" {
		line = strings.ReplaceAll(line, "\n", " ") + "\n"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Write([]byte(line))
	if err == nil || s.protocol != "tcp" {
		return err
	}
	conn, derr := net.DialTimeout(s.protocol, s.addr, 5*time.Second)
	if derr != nil {
		return fmt.Errorf("redial syslog %s: %w", s.addr, derr)
	}
	s.conn.Close()
	s.conn = conn
	_, err = s.conn.Write([]byte(line))
	return err
}

// ShouldSend returns true if the severity passes this client's filter.
// Lower severity number = higher priority (error=3 < warning=4 < info=6).
func (s *SyslogClient) ShouldSend(severity int) bool {
	return s.MinSeverity == 0 || severity <= s.MinSeverity
}

// ShouldSendEvent applies both the severity and the category filter.
func (s *SyslogClient) ShouldSendEvent(severity int, cat Category) bool {
	if !s.ShouldSend(severity) {
		return false
	}
	return s.Categories == 0 || s.Categories&cat != 0
}

// ParseSeverity converts a severity name to its numeric value.
// Returns 0 (no filter) for unrecognized names.
func ParseSeverity(name string) int {
	switch name {
	case "error":
		return SyslogError
	case "warning":
		return SyslogWarning
	case "info":
		return SyslogInfo
	default:
		return 0
	}
}

// ParseFacility converts a facility name to its numeric value, defaulting
// to local0.
func ParseFacility(name string) int {
	switch name {
	case "kern":
		return FacilityKern
	case "user":
		return FacilityUser
	case "daemon":
		return FacilityDaemon
	case "auth":
		return FacilityAuth
	case "syslog":
		return FacilitySyslog
	case "local1":
		return FacilityLocal1
	case "local2":
		return FacilityLocal2
	case "local3":
		return FacilityLocal3
	case "local4":
		return FacilityLocal4
	case "local5":
		return FacilityLocal5
	case "local6":
		return FacilityLocal6
	case "local7":
		return FacilityLocal7
	default:
		return FacilityLocal0
	}
}

// ParseCategories converts category names ("accounting", "session",
// "system") to a filter. Unknown names are ignored.
func ParseCategories(names []string) Category {
	var c Category
	for _, n := range names {
		switch n {
		case "accounting":
			c |= CategoryAccounting
		case "session":
			c |= CategorySession
		case "system":
			c |= CategorySystem
		}
	}
	return c
}

// Close closes the underlying connection.
func (s *SyslogClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}
