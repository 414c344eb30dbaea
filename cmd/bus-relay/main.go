package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/martazahmad1/bus-track/internal/config"
	"github.com/martazahmad1/bus-track/internal/relay"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hub := relay.NewHub(cfg.Relay.ClientBuffer)
	status := relay.NewStatus()

	ln, err := net.Listen("tcp", cfg.Relay.TCPListen)
	if err != nil {
		log.Fatalf("tcp listen failed: %v", err)
	}

	log.Printf("bus-relay starting")
	log.Printf("tcp ingest listen=%s", cfg.Relay.TCPListen)
	log.Printf("http listen=%s", cfg.Relay.HTTPListen)

	ingest := relay.NewIngest(hub, status)
	go func() {
		if err := ingest.Serve(ctx, ln); err != nil && ctx.Err() == nil {
			log.Printf("tcp ingest stopped: %v", err)
			cancel()
		}
	}()

	go func() {
		if err := relay.Serve(ctx, cfg.Relay.HTTPListen, status, hub); err != nil && ctx.Err() == nil {
			log.Printf("http server stopped: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Printf("bus-relay stopping")
}
