package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tracker TrackerConfig `yaml:"tracker"`
	Relay   RelayConfig   `yaml:"relay"`
}

type TrackerConfig struct {
	GPS    GPSConfig    `yaml:"gps"`
	Uplink UplinkConfig `yaml:"uplink"`
}

type GPSConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	// LocalOffsetHours shifts decoded UTC hours into local time.
	LocalOffsetHours int `yaml:"local_offset_hours"`

	// ReportInterval is the minimum spacing between uplinked reports; fixes
	// that decode faster than this are kept locally but not sent.
	ReportInterval time.Duration `yaml:"report_interval"`
}

type UplinkConfig struct {
	// Mode selects the report transport: "tcp" or "mqtt".
	Mode string     `yaml:"mode"`
	TCP  TCPConfig  `yaml:"tcp"`
	MQTT MQTTConfig `yaml:"mqtt"`
}

type TCPConfig struct {
	Addr       string        `yaml:"addr"`
	AckTimeout time.Duration `yaml:"ack_timeout"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

type RelayConfig struct {
	// TCPListen accepts newline-delimited JSON reports from trackers.
	TCPListen string `yaml:"tcp_listen"`
	// HTTPListen serves the map UI, /api/status and /ws.
	HTTPListen string `yaml:"http_listen"`
	// ClientBuffer is the per-subscriber fanout queue depth.
	ClientBuffer int `yaml:"client_buffer"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	// Tracker defaults.
	if cfg.Tracker.GPS.Device == "" {
		cfg.Tracker.GPS.Device = "/dev/ttyACM0"
	}
	if cfg.Tracker.GPS.Baud == 0 {
		cfg.Tracker.GPS.Baud = 9600
	}
	if cfg.Tracker.GPS.ReportInterval <= 0 {
		cfg.Tracker.GPS.ReportInterval = 1 * time.Second
	}
	if cfg.Tracker.Uplink.Mode == "" {
		cfg.Tracker.Uplink.Mode = "tcp"
	}
	if cfg.Tracker.Uplink.TCP.Addr == "" {
		cfg.Tracker.Uplink.TCP.Addr = "127.0.0.1:10000"
	}
	if cfg.Tracker.Uplink.TCP.AckTimeout <= 0 {
		cfg.Tracker.Uplink.TCP.AckTimeout = 2 * time.Second
	}
	if cfg.Tracker.Uplink.MQTT.ClientID == "" {
		cfg.Tracker.Uplink.MQTT.ClientID = "bus-tracker"
	}
	if cfg.Tracker.Uplink.MQTT.Topic == "" {
		cfg.Tracker.Uplink.MQTT.Topic = "bustrack/position"
	}

	switch cfg.Tracker.Uplink.Mode {
	case "tcp":
	case "mqtt":
		if cfg.Tracker.Uplink.MQTT.Broker == "" {
			return Config{}, fmt.Errorf("tracker.uplink.mqtt.broker is required when tracker.uplink.mode is 'mqtt'")
		}
	default:
		return Config{}, fmt.Errorf("tracker.uplink.mode must be 'tcp' or 'mqtt'")
	}

	if cfg.Tracker.GPS.LocalOffsetHours < -23 || cfg.Tracker.GPS.LocalOffsetHours > 23 {
		return Config{}, fmt.Errorf("tracker.gps.local_offset_hours must be between -23 and 23")
	}

	// Relay defaults.
	if cfg.Relay.TCPListen == "" {
		cfg.Relay.TCPListen = ":10000"
	}
	if cfg.Relay.HTTPListen == "" {
		cfg.Relay.HTTPListen = ":8080"
	}
	if cfg.Relay.ClientBuffer <= 0 {
		cfg.Relay.ClientBuffer = 8
	}

	return cfg, nil
}
