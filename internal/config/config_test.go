package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "tracker: {}\nrelay: {}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tracker.GPS.Device != "/dev/ttyACM0" {
		t.Fatalf("device=%q want /dev/ttyACM0", cfg.Tracker.GPS.Device)
	}
	if cfg.Tracker.GPS.Baud != 9600 {
		t.Fatalf("baud=%d want 9600", cfg.Tracker.GPS.Baud)
	}
	if cfg.Tracker.GPS.ReportInterval != 1*time.Second {
		t.Fatalf("report_interval=%s want 1s", cfg.Tracker.GPS.ReportInterval)
	}
	if cfg.Tracker.Uplink.Mode != "tcp" {
		t.Fatalf("mode=%q want tcp", cfg.Tracker.Uplink.Mode)
	}
	if cfg.Tracker.Uplink.TCP.AckTimeout != 2*time.Second {
		t.Fatalf("ack_timeout=%s want 2s", cfg.Tracker.Uplink.TCP.AckTimeout)
	}
	if cfg.Relay.TCPListen != ":10000" || cfg.Relay.HTTPListen != ":8080" {
		t.Fatalf("relay listen defaults wrong: %+v", cfg.Relay)
	}
	if cfg.Relay.ClientBuffer != 8 {
		t.Fatalf("client_buffer=%d want 8", cfg.Relay.ClientBuffer)
	}
}

func TestLoad_EmptyFileGetsDefaults(t *testing.T) {
	// An all-defaults deployment is legal; the relay side needs no config.
	path := writeTempConfig(t, "relay:\n  http_listen: ':9090'\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Relay.HTTPListen != ":9090" {
		t.Fatalf("http_listen=%q want :9090", cfg.Relay.HTTPListen)
	}
	if cfg.Relay.TCPListen != ":10000" {
		t.Fatalf("tcp_listen=%q want default", cfg.Relay.TCPListen)
	}
}

func TestLoad_InvalidUplinkMode(t *testing.T) {
	path := writeTempConfig(t, "tracker:\n  uplink:\n    mode: carrier-pigeon\n")
	_, err := Load(path)
	requireErrEq(t, err, "tracker.uplink.mode must be 'tcp' or 'mqtt'")
}

func TestLoad_MQTTRequiresBroker(t *testing.T) {
	path := writeTempConfig(t, "tracker:\n  uplink:\n    mode: mqtt\n")
	_, err := Load(path)
	requireErrEq(t, err, "tracker.uplink.mqtt.broker is required when tracker.uplink.mode is 'mqtt'")
}

func TestLoad_MQTTDefaults(t *testing.T) {
	path := writeTempConfig(t, "tracker:\n  uplink:\n    mode: mqtt\n    mqtt:\n      broker: 'tcp://localhost:1883'\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tracker.Uplink.MQTT.ClientID != "bus-tracker" {
		t.Fatalf("client_id=%q want bus-tracker", cfg.Tracker.Uplink.MQTT.ClientID)
	}
	if cfg.Tracker.Uplink.MQTT.Topic != "bustrack/position" {
		t.Fatalf("topic=%q want bustrack/position", cfg.Tracker.Uplink.MQTT.Topic)
	}
}

func TestLoad_LocalOffsetRange(t *testing.T) {
	path := writeTempConfig(t, "tracker:\n  gps:\n    local_offset_hours: 24\n")
	_, err := Load(path)
	requireErrEq(t, err, "tracker.gps.local_offset_hours must be between -23 and 23")
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "tracker:\n  gps:\n    dvice: /dev/ttyUSB0\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
