// Package report builds the JSON position reports the tracker uplinks and
// the relay fans out.
package report

import (
	"encoding/json"
	"fmt"

	"github.com/martazahmad1/bus-track/internal/nmea"
)

// Report is one position update as it travels over the wire. The relay stamps
// ServerTime and SourceIP before fanning a report out; both are empty on the
// tracker side.
type Report struct {
	Type       string  `json:"type"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Timestamp  string  `json:"timestamp"`
	Status     Status  `json:"status"`
	ServerTime string  `json:"server_time,omitempty"`
	SourceIP   string  `json:"source_ip,omitempty"`
}

// TypeGPS marks a position report. Other values pass through the relay
// untouched (ping/pong control messages use their own types).
const TypeGPS = "gps"

// Status is the tracker's raw status block, carried verbatim inside every
// report so the browser can show device health alongside the position.
type Status struct {
	GPS    GPSStatus    `json:"gps"`
	Uplink UplinkStatus `json:"uplink"`
}

// GPSStatus describes the receiver and the last decoded fix.
type GPSStatus struct {
	Status     string  `json:"status"`
	Fix        bool    `json:"fix"`
	Satellites int     `json:"satellites"`
	HDOP       float64 `json:"hdop"`
	Altitude   float64 `json:"altitude"`
	SpeedKMH   float64 `json:"speed_kmh"`
	Course     float64 `json:"course"`
	LastFixUTC string  `json:"last_fix,omitempty"`
}

// UplinkStatus describes the report transport.
type UplinkStatus struct {
	Status      string `json:"status"`
	Connected   bool   `json:"connected"`
	LastSendUTC string `json:"last_send,omitempty"`
}

// Build converts a decoded fix into a position report. The fix must claim a
// position (GGA quality nonzero); reports without one are meaningless to the
// relay.
func Build(fix nmea.Fix, status Status) (Report, error) {
	if !fix.HasFix() {
		return Report{}, fmt.Errorf("report: no fix (quality=%d)", fix.FixQuality)
	}
	return Report{
		Type:      TypeGPS,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Timestamp: fix.Time.String(),
		Status:    status,
	}, nil
}

// Encode renders the report as a single JSON line, newline terminated, the
// framing both the TCP ingest and the tracker uplink speak.
func (r Report) Encode() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("report: marshal: %w", err)
	}
	return append(b, '\n'), nil
}
