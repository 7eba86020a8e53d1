// Command quantcoind runs a QuantCoin node: it loads its config,
// starts the raw-TCP protocol listener, optionally mines, and
// optionally serves a read-only status websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/quantcoin/quantcoind/internal/logging"
	"github.com/quantcoin/quantcoind/internal/miner"
	"github.com/quantcoin/quantcoind/internal/monitor"
	"github.com/quantcoin/quantcoind/internal/netaddr"
	"github.com/quantcoin/quantcoind/internal/netclient"
	"github.com/quantcoin/quantcoind/internal/node"
	"github.com/quantcoin/quantcoind/internal/nodeconfig"
	"github.com/quantcoin/quantcoind/internal/store"
	"github.com/quantcoin/quantcoind/internal/validator"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.quantcoin", "Data directory")
		configFile  = flag.String("config", "", "Config file path (default: <data-dir>/config.yaml)")
		listenPort  = flag.Int("listen-port", 0, "Listen port, overrides config")
		statusAddr  = flag.String("status-addr", "", "Optional status websocket address, e.g. 127.0.0.1:8090")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("quantcoind %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = filepath.Join(expandPath(*dataDir), "config.yaml")
	}

	cfg, err := loadOrInitConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *listenPort != 0 {
		cfg.Network.ListenPort = *listenPort
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)
	log.Info("config loaded", "path", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain := store.New()
	client := netclient.New(chain)

	var m *miner.Miner
	var handlers node.HandlerSet
	if cfg.Mining.Enabled {
		m = miner.New(cfg.Mining.Wallet, chain, client)
		handlers = m.Handlers()
		log.Info("mining enabled", "wallet", cfg.Mining.Wallet)
	} else {
		handlers = node.DefaultHandlers(chain, validator.Difficulty(chain.Height()))
	}

	n, err := node.New(fmt.Sprintf(":%d", cfg.Network.ListenPort), chain, handlers)
	if err != nil {
		log.Fatal("failed to bind listener", "error", err)
	}
	log.Info("listening", "addr", n.Addr().String())

	for _, peerAddr := range cfg.Network.BootstrapPeers {
		addr, err := netaddr.Parse(peerAddr)
		if err != nil {
			log.Warn("skipping malformed bootstrap peer", "peer", peerAddr, "error", err)
			continue
		}
		chain.StorePeer(addr)
	}
	// Advertised loopback by default; there's no config field for a
	// node's externally-reachable address (§1 carries no NAT/discovery
	// story), so bootstrap peers are expected to be reachable directly.
	client.Register("127.0.0.1", cfg.Network.ListenPort)

	go func() {
		if err := n.Serve(); err != nil {
			log.Warn("listener stopped", "error", err)
		}
	}()

	if m != nil {
		go m.Mine(ctx, cfg.Mining.MinTxCount, cfg.Mining.MinCommission)
	}

	if *statusAddr != "" {
		hub := monitor.NewHub(monitor.NodeSource{Chain: chain, Miner: m})
		stop := make(chan struct{})
		go hub.Run(stop)
		defer close(stop)

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.ServeHTTP)
		srv := &http.Server{Addr: *statusAddr, Handler: mux}
		go func() {
			log.Info("status feed listening", "addr", *statusAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("status feed stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	if m != nil {
		m.StopMining()
	}
	n.Close()
}

func loadOrInitConfig(path string) (*nodeconfig.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := nodeconfig.DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return nodeconfig.Load(path)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

