package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/martazahmad1/bus-track/internal/report"
)

const (
	welcomeLine = `{"status":"connected","message":"Welcome to Bus Tracker Server"}` + "\n"
	ackOK       = "OK\n"
	ackBadJSON  = "ERROR: Invalid JSON\n"
)

// Ingest accepts tracker connections and feeds their reports into the hub.
// The wire dialogue matches the tracker uplink: one JSON report per line,
// one ack line per report.
type Ingest struct {
	hub    *Hub
	status *Status

	wg sync.WaitGroup
}

func NewIngest(hub *Hub, status *Status) *Ingest {
	return &Ingest{hub: hub, status: status}
}

// Serve accepts connections until ctx is cancelled or the listener fails.
// It closes the listener on return and waits for connection handlers.
func (s *Ingest) Serve(ctx context.Context, ln net.Listener) error {
	defer s.wg.Wait()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Ingest) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	remote := conn.RemoteAddr().String()
	sourceIP := remote
	if host, _, err := net.SplitHostPort(remote); err == nil {
		sourceIP = host
	}
	log.Printf("tracker connected addr=%s", remote)

	// Close the connection when the server shuts down so the scanner
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	if _, err := conn.Write([]byte(welcomeLine)); err != nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), 64*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rpt report.Report
		if err := json.Unmarshal(line, &rpt); err != nil {
			s.status.MarkRejected()
			if _, werr := conn.Write([]byte(ackBadJSON)); werr != nil {
				return
			}
			continue
		}

		now := time.Now().UTC()
		rpt.ServerTime = now.Format("15:04:05")
		rpt.SourceIP = sourceIP

		stamped, err := json.Marshal(rpt)
		if err != nil {
			s.status.MarkRejected()
			if _, werr := conn.Write([]byte(ackBadJSON)); werr != nil {
				return
			}
			continue
		}

		s.hub.Publish(stamped, rpt.Type == report.TypeGPS)
		s.status.MarkReport(now, remote)

		if _, err := conn.Write([]byte(ackOK)); err != nil {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Printf("tracker read stopped addr=%s: %v", remote, err)
	} else {
		log.Printf("tracker disconnected addr=%s", remote)
	}
}
