// Command dxrecv receives a diskxfer transfer over a serial link and
// writes the reassembled byte stream to a file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/cherryhomes/diskxfer"
	"github.com/spf13/pflag"
)

func main() {
	var (
		serialPath = pflag.StringP("serial", "p", "", "Serial device to receive on, e.g. /dev/ttyUSB0.")
		outputPath = pflag.StringP("output", "o", "", "Output file path for the reassembled image.")
		baud       = pflag.IntP("baud", "b", 115200, "Baud rate. One of 1200,2400,4800,9600,19200,38400,57600,115200.")
		logLevel   = pflag.String("log-level", "info", "Log level: debug, info, warn, or error.")
		help       = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: dxrecv --serial PATH --output PATH [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}
	if *serialPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "dxrecv: --serial and --output are required")
		pflag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))

	serial, err := diskxfer.OpenTermSerial(*serialPath, *baud)
	if err != nil {
		logger.Error("open serial", "err", err)
		os.Exit(1)
	}
	defer serial.Close()

	out, err := os.OpenFile(*outputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Error("open output", "err", err)
		os.Exit(1)
	}
	defer out.Close()

	cfg := diskxfer.Config{
		Role:       diskxfer.RoleReceiver,
		SerialPath: *serialPath,
		OutputPath: *outputPath,
		Baud:       *baud,
		Logger:     logger,
	}

	transfer, err := diskxfer.NewTransfer(cfg, serial, nil)
	if err != nil {
		logger.Error("configure transfer", "err", err)
		os.Exit(1)
	}

	diskxfer.PrintWelcome(os.Stdout, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := transfer.RunReceiver(ctx, out); err != nil {
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
