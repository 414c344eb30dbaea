package uplink

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/martazahmad1/bus-track/internal/report"
)

// TCPSink speaks the relay's ingest dialogue: a JSON report per line, an
// "OK" ack per report, with a welcome line consumed at connect time.
// The connection is dialed lazily and redialed on the next Publish after
// any failure.
type TCPSink struct {
	addr       string
	ackTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
	br   *bufio.Reader
}

func NewTCPSink(addr string, ackTimeout time.Duration) *TCPSink {
	if ackTimeout <= 0 {
		ackTimeout = 2 * time.Second
	}
	return &TCPSink{addr: addr, ackTimeout: ackTimeout}
}

func (s *TCPSink) Publish(ctx context.Context, rpt report.Report) error {
	b, err := rpt.Encode()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		if err := s.connectLocked(ctx); err != nil {
			return fmt.Errorf("uplink: connect %s: %w", s.addr, err)
		}
	}

	deadline := time.Now().Add(s.ackTimeout)
	_ = s.conn.SetWriteDeadline(deadline)
	if _, err := s.conn.Write(b); err != nil {
		s.dropLocked()
		return fmt.Errorf("uplink: write: %w", err)
	}

	_ = s.conn.SetReadDeadline(deadline)
	line, err := s.br.ReadString('\n')
	if err != nil {
		s.dropLocked()
		return fmt.Errorf("uplink: read ack: %w", err)
	}
	if ack := strings.TrimSpace(line); ack != "OK" {
		return fmt.Errorf("uplink: server rejected report: %s", ack)
	}
	return nil
}

func (s *TCPSink) connectLocked(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	br := bufio.NewReader(conn)

	// The relay greets every connection with one banner line.
	_ = conn.SetReadDeadline(time.Now().Add(s.ackTimeout))
	if _, err := br.ReadString('\n'); err != nil {
		_ = conn.Close()
		return fmt.Errorf("read welcome: %w", err)
	}

	s.conn = conn
	s.br = br
	return nil
}

func (s *TCPSink) dropLocked() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
		s.br = nil
	}
}

func (s *TCPSink) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *TCPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
	return nil
}
