package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/core"
	"github.com/muurk/sccpd/internal/discovery"
	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/logging"
	"github.com/muurk/sccpd/internal/metrics"
	"github.com/muurk/sccpd/internal/server"
	"github.com/muurk/sccpd/internal/version"
)

// Serve command flags
var (
	bindAddress    string
	port           int
	monitorAddress string
	logLevel       string
	logFormat      string
	enableMDNS     bool
	watchConfig    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SCCP server",
	Long: `Start accepting phone connections.

Flags override the matching server settings in the configuration file. The
configuration is watched and reloaded on change unless --watch=false is given;
removed devices and lines are retired once nothing uses them.`,
	Example: `  # Start with the default configuration file
  sccpd serve

  # Debug logging with the monitor endpoints on port 9120
  sccpd serve --config ./sccpd.yaml --log-level debug --monitor :9120

  # Announce the server over mDNS
  sccpd serve --mdns`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&bindAddress, "bind", "", "Address to listen on (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", config.DefaultPort, "SCCP listen port")
	serveCmd.Flags().StringVar(&monitorAddress, "monitor", "", "Address for /metrics, /events, /sessions and /healthz (disabled if empty)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&logFormat, "log-format", "", "Log format (console, json)")
	serveCmd.Flags().BoolVar(&enableMDNS, "mdns", false, "Advertise the server over mDNS")
	serveCmd.Flags().BoolVar(&watchConfig, "watch", true, "Reload the configuration file when it changes")
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("bind") {
		cfg.Server.BindAddress = bindAddress
	}
	if flags.Changed("port") {
		cfg.Server.Port = port
	}
	if flags.Changed("monitor") {
		cfg.Server.MonitorAddress = monitorAddress
	}
	if flags.Changed("log-level") {
		cfg.Server.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Server.LogFormat = logFormat
	}
	if flags.Changed("mdns") {
		cfg.Server.MDNS = enableMDNS
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	path := config.ResolvePath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Server.LogLevel
	if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		level = "info"
	}
	if err := logging.InitializeWithOptions(logging.Options{Level: level, Format: cfg.Server.LogFormat}); err != nil {
		return err
	}
	defer logging.Sync()
	log := logging.GetLogger()

	log.Info("Starting sccpd",
		zap.String("version", version.Full()),
		zap.String("config", path),
		zap.Int("lines", len(cfg.Lines)),
		zap.Int("devices", len(cfg.Devices)),
	)

	m := metrics.New()
	c, err := core.New(cfg,
		core.WithMetrics(m),
		core.WithLogger(log.Named("core")),
	)
	if err != nil {
		return fmt.Errorf("failed to create core: %w", err)
	}
	defer c.Close()
	c.Bus().SetLogger(log.Named("events"))

	opts := []server.Option{server.WithLogger(log.Named("server"))}
	if cfg.Server.TLSPort != 0 {
		tlsConfig, err := server.NewTLSConfig(cfg.Server.TLSCert, cfg.Server.TLSKey)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithTLSConfig(tlsConfig))
	}
	srv := server.New(c, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.MDNS {
		adv, err := advertise(c, cfg)
		if err != nil {
			log.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			defer adv.Shutdown()
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Scheduler().Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	if addr := cfg.Server.MonitorAddress; addr != "" {
		g.Go(func() error { return server.NewMonitor(srv).ListenAndServe(ctx, addr) })
	}
	if watchConfig {
		g.Go(func() error {
			return config.Watch(ctx, path, config.DefaultDebounce, func(next *config.Config) {
				applyFlags(cmd, next)
				if err := c.Reload(next); err != nil {
					log.Warn("Configuration rejected", zap.Error(err))
				}
			})
		})
	}

	err = g.Wait()
	log.Info("sccpd stopped")
	return err
}

// advertise announces the server over mDNS and keeps the registered device
// count in the TXT record current.
func advertise(c *core.Core, cfg *config.Config) (*discovery.Advertiser, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	text := func() []string {
		return discovery.TXTRecords(version.Version, c.Config().Server.ProtocolVersion, registeredDevices(c))
	}
	adv, err := discovery.Advertise(discovery.Advertisement{
		Instance: "sccpd on " + host,
		Port:     cfg.Server.Port,
		Text:     text(),
	})
	if err != nil {
		return nil, err
	}
	c.Bus().Subscribe(event.DeviceRegistered|event.DeviceUnregistered, func(event.Event) {
		adv.SetText(text())
	})
	return adv, nil
}

func registeredDevices(c *core.Core) int {
	n := 0
	for _, name := range c.DeviceNames() {
		ref, ok := c.Device(name)
		if !ok {
			continue
		}
		if ref.Value().State() == core.DeviceRegistered {
			n++
		}
		ref.Release()
	}
	return n
}
