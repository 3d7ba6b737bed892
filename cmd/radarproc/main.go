// Command radarproc is the demo entrypoint wiring a configured Pipeline to
// the synthetic simulator (--sim). It does not open a real capture device:
// without --sim it logs an error and exits with status 1. Config loading
// and flags follow the teacher's cmd/direwolf/main.go split between a
// config file and pflag flags.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/kgrobelny/radarproc/adc/simadc"
	"github.com/kgrobelny/radarproc/internal/adc"
	"github.com/kgrobelny/radarproc/internal/config"
	"github.com/kgrobelny/radarproc/internal/pipeline"
)

const (
	exitOK             = 0
	exitConfigIOFailed = 1
	exitAllocFailed    = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = pflag.StringP("config", "c", "", "path to radar configuration YAML file")
		useSim     = pflag.Bool("sim", false, "use the synthetic ADC source instead of a real capture device")
		targetBin  = pflag.Int("sim-target-bin", -1, "synthetic target Doppler bin (-1 disables)")
		verbose    = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: radarproc [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	logger := log.New(os.Stderr)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "err", err)
			return exitConfigIOFailed
		}
		cfg = loaded
	}

	var source adc.BlockSource
	if *useSim {
		source = simadc.New(simadc.Config{
			SampleRate: cfg.SampleRate, SamplesPerWRI: cfg.S, WRIsPerBlock: cfg.B,
			Channels: cfg.NumRadars, RealOnly: cfg.ReceiveRealOnly,
			TargetBin: *targetBin, TargetWindow: cfg.W,
			AmplitudeDB: cfg.Simulation.AmplitudeDB, NoiseFloorDB: cfg.Simulation.NoiseFloorDB,
		})
	} else {
		logger.Error("real ADC capture requires a configured portaudio device; pass --sim for the demo source")
		return exitConfigIOFailed
	}
	defer source.Close()

	p, err := pipeline.New(cfg, source, logger)
	if err != nil {
		logger.Error("failed to construct pipeline", "err", err)
		return exitAllocFailed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown requested")
		cancel()
	}()

	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("pipeline exited with error", "err", err)
		return exitConfigIOFailed
	}

	return exitOK
}
