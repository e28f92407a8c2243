package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bzz/radicle-peer/clock"
	"github.com/bzz/radicle-peer/config"
	"github.com/bzz/radicle-peer/peer"
	"github.com/bzz/radicle-peer/persist"
	"github.com/bzz/radicle-peer/runtime"
	"github.com/bzz/radicle-peer/transport"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file; defaults are used when omitted")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persist.Open(cfg.Persist.Path)
	if err != nil {
		logger.Error("failed to open waiting room store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	state := peer.New(cfg.PeerConfig(), clock.Real{}, logger)

	rt := runtime.New(ctx, state, runtime.DefaultConfig(), runtime.Dependencies{
		Store: store,
	}, logger)

	host, err := transport.NewHost(transport.HostConfig{ListenAddrs: cfg.Transport.ListenAddrs})
	if err != nil {
		logger.Error("failed to create libp2p host", "error", err)
		os.Exit(1)
	}

	node, err := transport.NewNode(ctx, host, rt, logger)
	if err != nil {
		logger.Error("failed to create transport node", "error", err)
		os.Exit(1)
	}
	rt.Wire(runtime.Dependencies{
		Announcer: node,
		Syncer:    node,
		Requests:  node,
		Stats:     node,
	})

	for _, pi := range transport.ParseBootstrapPeers(cfg.Transport.Bootnodes) {
		if err := host.Connect(ctx, pi); err != nil {
			logger.Warn("failed to connect to bootnode", "peer", pi.ID, "error", err)
		} else {
			logger.Info("connected to bootnode", "peer", pi.ID)
		}
	}

	rt.Start()
	node.Start(ctx)
	rt.Submit(peer.ProtocolInput{Event: peer.ProtocolEvent{Kind: peer.ProtocolEndpointUp}})

	logger.Info("radicle-peer running", "peer_id", host.ID(), "addrs", host.Addrs())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	rt.Submit(peer.ProtocolInput{Event: peer.ProtocolEvent{Kind: peer.ProtocolEndpointDown}})
	node.Stop()
	rt.Stop()
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
