// Package tracker runs the device-side pipeline: serial GPS bytes through
// the NMEA parser, decoded fixes into position reports, reports into the
// uplink.
package tracker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/martazahmad1/bus-track/internal/nmea"
	"github.com/martazahmad1/bus-track/internal/replay"
	"github.com/martazahmad1/bus-track/internal/report"
	"github.com/martazahmad1/bus-track/internal/uplink"
)

type Config struct {
	Device string
	Baud   int

	LocalOffsetHours int

	// ReportInterval throttles uplink publishes; the receiver emits several
	// sentences per second and the relay only needs one report per interval.
	ReportInterval time.Duration

	// Source, when set, replaces the serial port. Used to replay recorded
	// sentence logs without hardware.
	Source io.ReadCloser

	// RecordPath, when set, tees every received sentence into a replay log.
	RecordPath string
}

// Snapshot is the tracker's externally visible state: the status block that
// rides inside every report, plus parser and uplink counters.
type Snapshot struct {
	Status report.Status `json:"status"`

	CleanSentences uint64 `json:"clean_sentences"`
	CRCFailures    uint64 `json:"crc_failures"`
	ReportsSent    uint64 `json:"reports_sent"`
	ReportsFailed  uint64 `json:"reports_failed"`

	LastError string `json:"last_error,omitempty"`
}

// Service drives the read loop. One goroutine owns the parser; everyone
// else reads through the atomic snapshot.
type Service struct {
	cfg  Config
	sink uplink.Sink

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Snapshot

	mu     sync.Mutex
	closer io.Closer
}

func New(cfg Config, sink uplink.Sink) *Service {
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = 1 * time.Second
	}
	s := &Service{cfg: cfg, sink: sink}
	s.last.Store(Snapshot{Status: report.Status{
		GPS:    report.GPSStatus{Status: "Initializing"},
		Uplink: report.UplinkStatus{Status: "Disconnected"},
	}})
	return s
}

// Start opens the serial device and launches the read loop.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	src := s.cfg.Source
	if src == nil {
		port, err := serial.Open(serial.OpenOptions{
			PortName:   s.cfg.Device,
			BaudRate:   uint(s.cfg.Baud),
			DataBits:   8,
			StopBits:   1,
			ParityMode: serial.PARITY_NONE,
			// Hand bytes over as they arrive; the parser wants them one at a
			// time, unbuffered.
			MinimumReadSize: 1,
		})
		if err != nil {
			return fmt.Errorf("tracker: open %s baud=%d: %w", s.cfg.Device, s.cfg.Baud, err)
		}
		src = port
	}
	s.closer = src

	var r io.Reader = src
	var rec *replay.Writer
	if s.cfg.RecordPath != "" {
		var err error
		rec, err = replay.CreateWriter(s.cfg.RecordPath)
		if err != nil {
			_ = src.Close()
			s.closer = nil
			return fmt.Errorf("tracker: record %s: %w", s.cfg.RecordPath, err)
		}
		r = replay.NewRecordingReader(src, rec)
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = src.Close() }()
		if rec != nil {
			defer func() { _ = rec.Close() }()
		}
		if s.cfg.Source != nil {
			log.Printf("gps enabled source=replay")
		} else {
			log.Printf("gps enabled device=%s baud=%d", s.cfg.Device, s.cfg.Baud)
		}
		s.run(childCtx, r)
	}()
	return nil
}

// run feeds the parser one byte at a time and publishes a report whenever a
// decoded sentence gives a fix and the report interval has elapsed.
func (s *Service) run(ctx context.Context, r io.Reader) {
	br := bufio.NewReaderSize(r, 256)
	parser := nmea.NewParser(s.cfg.LocalOffsetHours)

	var lastPublish time.Time
	var lastFixUTC string
	var sent, failed uint64
	uplinkStatus := report.UplinkStatus{Status: "Disconnected"}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c, err := br.ReadByte()
		if err != nil {
			if ctx.Err() == nil {
				s.storeError(fmt.Sprintf("gps read stopped: %v", err))
			}
			return
		}

		if parser.Update(c) == nmea.TypeNone {
			continue
		}

		fix := parser.Fix()
		now := time.Now().UTC()
		if fix.HasFix() {
			lastFixUTC = now.Format(time.RFC3339)
		}

		publishDue := fix.HasFix() && now.Sub(lastPublish) >= s.cfg.ReportInterval
		if publishDue {
			status := buildStatus(fix, lastFixUTC, uplinkStatus)
			rpt, err := report.Build(fix, status)
			if err == nil {
				err = s.sink.Publish(ctx, rpt)
			}
			if err != nil {
				failed++
				uplinkStatus = report.UplinkStatus{
					Status:      fmt.Sprintf("Error: %v", err),
					Connected:   s.sink.Connected(),
					LastSendUTC: uplinkStatus.LastSendUTC,
				}
				log.Printf("report publish failed: %v", err)
			} else {
				sent++
				uplinkStatus = report.UplinkStatus{
					Status:      "Connected",
					Connected:   true,
					LastSendUTC: now.Format(time.RFC3339),
				}
			}
			lastPublish = now
		}

		stats := parser.Stats()
		s.last.Store(Snapshot{
			Status: report.Status{
				GPS:    buildStatus(fix, lastFixUTC, uplinkStatus).GPS,
				Uplink: uplinkStatus,
			},
			CleanSentences: stats.CleanSentences,
			CRCFailures:    stats.CRCFailures,
			ReportsSent:    sent,
			ReportsFailed:  failed,
		})
	}
}

func buildStatus(fix nmea.Fix, lastFixUTC string, up report.UplinkStatus) report.Status {
	gpsStatus := "Wait fix"
	if fix.HasFix() {
		gpsStatus = "Fix OK"
	}
	return report.Status{
		GPS: report.GPSStatus{
			Status:     gpsStatus,
			Fix:        fix.HasFix(),
			Satellites: fix.Satellites,
			HDOP:       fix.HDOP,
			Altitude:   fix.AltitudeM,
			SpeedKMH:   fix.Speed.KMH,
			Course:     fix.CourseDeg,
			LastFixUTC: lastFixUTC,
		},
		Uplink: up,
	}
}

func (s *Service) storeError(msg string) {
	snap := s.Snapshot()
	snap.LastError = msg
	snap.Status.GPS.Status = "Error"
	s.last.Store(snap)
}

// Snapshot returns the most recent tracker state.
func (s *Service) Snapshot() Snapshot {
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	return v.(Snapshot)
}

// Close stops the read loop and releases the serial port.
func (s *Service) Close() {
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}
