// Command hcsr04 takes measurements with an HC-SR04 module and optionally
// exports them to Prometheus.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asjoyner/hcsr04"
	"github.com/asjoyner/hcsr04/internal/config"
	"github.com/asjoyner/hcsr04/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "once":
		err = onceCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		logrus.Fatalf("hcsr04 %s: %v", cmd, err)
	}
}

func loadConfig(name string, args []string) (*config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfgPath := fs.String("config", "./hcsr04.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", *cfgPath, err)
	}
	return cfg, nil
}

func openSensor(cfg *config.Config, log *logrus.Logger) (*hcsr04.Sensor, error) {
	s, err := cfg.Open()
	if err != nil {
		return nil, err
	}
	s.SetLogger(log)
	return s, nil
}

func runCommand(args []string) error {
	cfg, err := loadConfig("run", args)
	if err != nil {
		return err
	}
	log := cfg.Logger()
	sensor, err := openSensor(cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg, log)
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.WithField("interval", cfg.Interval).Info("measuring")
	for {
		start := time.Now()
		m, err := sensor.Measure()
		if err != nil {
			return err
		}
		rec.Observe(m, time.Since(start))
		logMeasurement(log, m)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func onceCommand(args []string) error {
	cfg, err := loadConfig("once", args)
	if err != nil {
		return err
	}
	sensor, err := openSensor(cfg, cfg.Logger())
	if err != nil {
		return err
	}
	m, err := sensor.Measure()
	if err != nil {
		return err
	}
	fmt.Println(m)
	return nil
}

func validateCommand(args []string) error {
	cfg, err := loadConfig("validate", args)
	if err != nil {
		return err
	}
	fmt.Printf("config looks good: %+v\n", cfg.Sensor)
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *logrus.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")
	return srv
}

func logMeasurement(log *logrus.Logger, m hcsr04.Measurement) {
	if m.CooldownActive {
		log.Debug("sensor cooling down, measurement skipped")
		return
	}
	entry := log.WithFields(logrus.Fields{
		"distance":          m.Distance,
		"unit":              m.Unit.String(),
		"valid":             m.Valid(),
		"samples":           m.Samples,
		"response_timeouts": m.ResponseTimeouts,
		"signal_timeouts":   m.SignalTimeouts,
		"too_far":           m.MaxDistanceExceeded,
	})
	if m.Valid() == 0 {
		entry.Warn("no valid samples")
		return
	}
	entry.Info("measurement")
}

func printUsage() {
	fmt.Printf(`hcsr04 CLI

Usage:
  hcsr04 <command> [flags]

Commands:
  run        Measure every interval until interrupted, exporting metrics if configured
  once       Take a single measurement and print it
  validate   Load and validate a config file without touching the pins

Examples:
  hcsr04 run -config ./hcsr04.yaml
  hcsr04 once -config ./hcsr04.yaml
  hcsr04 validate -config ./hcsr04.yaml
`)
}
