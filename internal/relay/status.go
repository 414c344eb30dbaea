package relay

import (
	"sync/atomic"
	"time"
)

// Status tracks relay counters for /api/status. All fields are updated with
// atomics so the ingest and HTTP goroutines never contend.
type Status struct {
	startUnixNano  int64
	reportsTotal   uint64
	rejectedTotal  uint64
	lastReportNano int64
	trackerAddr    atomic.Value // string
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.trackerAddr.Store("")
	return s
}

func (s *Status) MarkReport(nowUTC time.Time, sourceAddr string) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.AddUint64(&s.reportsTotal, 1)
	atomic.StoreInt64(&s.lastReportNano, nowUTC.UnixNano())
	s.trackerAddr.Store(sourceAddr)
}

func (s *Status) MarkRejected() {
	atomic.AddUint64(&s.rejectedTotal, 1)
}

type StatusSnapshot struct {
	Service          string `json:"service"`
	NowUTC           string `json:"now_utc"`
	UptimeSec        int64  `json:"uptime_sec"`
	ReportsTotal     uint64 `json:"reports_total"`
	RejectedTotal    uint64 `json:"rejected_total"`
	LastReportUTC    string `json:"last_report_utc,omitempty"`
	LastTrackerAddr  string `json:"last_tracker_addr,omitempty"`
	WebSocketClients int    `json:"websocket_clients"`
	HavePosition     bool   `json:"have_position"`
}

func (s *Status) Snapshot(nowUTC time.Time, clients int, havePosition bool) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	lastReport := atomic.LoadInt64(&s.lastReportNano)

	snap := StatusSnapshot{
		Service:          "bus-relay",
		NowUTC:           nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:        int64(nowUTC.Sub(start).Seconds()),
		ReportsTotal:     atomic.LoadUint64(&s.reportsTotal),
		RejectedTotal:    atomic.LoadUint64(&s.rejectedTotal),
		LastTrackerAddr:  s.trackerAddr.Load().(string),
		WebSocketClients: clients,
		HavePosition:     havePosition,
	}
	if lastReport != 0 {
		snap.LastReportUTC = time.Unix(0, lastReport).UTC().Format(time.RFC3339Nano)
	}
	return snap
}
