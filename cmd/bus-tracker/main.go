package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/martazahmad1/bus-track/internal/config"
	"github.com/martazahmad1/bus-track/internal/replay"
	"github.com/martazahmad1/bus-track/internal/tracker"
	"github.com/martazahmad1/bus-track/internal/uplink"
)

func main() {
	var configPath string
	var replayPath string
	var replaySpeed float64
	var replayLoop bool
	var recordPath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.StringVar(&replayPath, "replay", "", "Replay a recorded sentence log instead of reading the serial port")
	flag.Float64Var(&replaySpeed, "replay-speed", 1.0, "Replay speed multiplier")
	flag.BoolVar(&replayLoop, "replay-loop", false, "Loop the replay log")
	flag.StringVar(&recordPath, "record", "", "Record received sentences to a replay log")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var sink uplink.Sink
	switch cfg.Tracker.Uplink.Mode {
	case "mqtt":
		sink, err = uplink.NewMQTTSink(cfg.Tracker.Uplink.MQTT.Broker, cfg.Tracker.Uplink.MQTT.ClientID, cfg.Tracker.Uplink.MQTT.Topic)
		if err != nil {
			log.Fatalf("mqtt uplink init failed: %v", err)
		}
		log.Printf("uplink mode=mqtt broker=%s topic=%s", cfg.Tracker.Uplink.MQTT.Broker, cfg.Tracker.Uplink.MQTT.Topic)
	default:
		sink = uplink.NewTCPSink(cfg.Tracker.Uplink.TCP.Addr, cfg.Tracker.Uplink.TCP.AckTimeout)
		log.Printf("uplink mode=tcp addr=%s", cfg.Tracker.Uplink.TCP.Addr)
	}
	defer func() { _ = sink.Close() }()

	trackerCfg := tracker.Config{
		Device:           cfg.Tracker.GPS.Device,
		Baud:             cfg.Tracker.GPS.Baud,
		LocalOffsetHours: cfg.Tracker.GPS.LocalOffsetHours,
		ReportInterval:   cfg.Tracker.GPS.ReportInterval,
		RecordPath:       recordPath,
	}
	if replayPath != "" {
		src, err := replay.Open(replayPath, replaySpeed, replayLoop)
		if err != nil {
			log.Fatalf("replay open failed: %v", err)
		}
		trackerCfg.Source = src
		log.Printf("replay file=%s speed=%.1f loop=%t", replayPath, replaySpeed, replayLoop)
	}
	svc := tracker.New(trackerCfg, sink)

	log.Printf("bus-tracker starting")
	if err := svc.Start(ctx); err != nil {
		log.Fatalf("tracker start failed: %v", err)
	}
	defer svc.Close()

	<-ctx.Done()
	log.Printf("bus-tracker stopping")
}
