// Command dxsend reads a block device or disk image and transmits it over
// a serial link using the diskxfer sliding-window protocol.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cherryhomes/diskxfer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
)

func main() {
	var (
		device      = pflag.StringP("device", "d", "", "Path to the block device or disk image to send.")
		serialPath  = pflag.StringP("serial", "p", "", "Serial device to send over, e.g. /dev/ttyUSB0.")
		startSector = pflag.IntP("start-sector", "s", 0, "First linear sector to send.")
		baud        = pflag.IntP("baud", "b", 115200, "Baud rate. One of 1200,2400,4800,9600,19200,38400,57600,115200.")
		cylinders   = pflag.Int("cylinders", 0, "Device geometry: cylinder count.")
		heads       = pflag.Int("heads", 0, "Device geometry: head count.")
		sectors     = pflag.Int("sectors-per-track", 0, "Device geometry: sectors per track.")
		reportPath  = pflag.StringP("report", "r", "", "Optional path to append the final transfer report to.")
		metricsAddr = pflag.String("metrics-addr", "", "Optional host:port to serve Prometheus metrics on.")
		logLevel    = pflag.String("log-level", "info", "Log level: debug, info, warn, or error.")
		help        = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: dxsend --device PATH --serial PATH --cylinders N --heads N --sectors-per-track N [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}
	if *device == "" || *serialPath == "" {
		fmt.Fprintln(os.Stderr, "dxsend: --device and --serial are required")
		pflag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))

	geometry := diskxfer.Geometry{Cylinders: *cylinders, Heads: *heads, SectorsPerTrack: *sectors}
	dev, err := diskxfer.NewFileBlockDevice(*device, geometry)
	if err != nil {
		logger.Error("open device", "err", err)
		os.Exit(1)
	}

	serial, err := diskxfer.OpenTermSerial(*serialPath, *baud)
	if err != nil {
		logger.Error("open serial", "err", err)
		os.Exit(1)
	}
	defer serial.Close()

	cfg := diskxfer.Config{
		Role:        diskxfer.RoleSender,
		DevicePath:  *device,
		SerialPath:  *serialPath,
		StartSector: *startSector,
		Baud:        *baud,
		Geometry:    geometry,
		Logger:      logger,
	}

	transfer, err := diskxfer.NewTransfer(cfg, serial, dev)
	if err != nil {
		logger.Error("configure transfer", "err", err)
		os.Exit(1)
	}
	defer transfer.Close()

	diskxfer.PrintWelcome(os.Stdout, cfg)

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(diskxfer.NewProgressCollector(transfer.Ledger()))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", "err", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if kb, kerr := diskxfer.NewKeyboardAbort("/dev/tty"); kerr == nil {
		defer kb.Close()
		go kb.Watch(ctx, cancel, 100*time.Millisecond)
	} else {
		logger.Debug("keyboard abort unavailable", "err", kerr)
	}

	sum, err := transfer.RunSender(ctx)
	snap := transfer.Ledger().Snapshot()
	diskxfer.FinalReport(os.Stdout, snap, sum, transfer.ReadLog())
	if *reportPath != "" {
		if rerr := diskxfer.AppendReport(*reportPath, snap, sum, transfer.ReadLog()); rerr != nil {
			logger.Warn("append report", "err", rerr)
		}
	}
	if err != nil {
		logger.Error("transfer failed", "err", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
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
