package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/esimov/qrstyle"
	"github.com/esimov/qrstyle/internal/config"
	"github.com/esimov/qrstyle/internal/logger"
	"github.com/esimov/qrstyle/utils"
	"go.uber.org/zap"
)

const HelpBanner = `
┌─┐┬─┐┌─┐┌┬┐┬ ┬┬  ┌─┐
│─┼┼┬┘└─┐ │ └┬┘│  ├┤
└─┘┴└─└─┘ ┴  ┴ ┴─┘└─┘

Styled QR code renderer.
    Version: %s

A job is a JSON file of the form:
    {"content": {"type": "link", "url": "example.com"}, "style": {...}, "format": "png"}

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

var (
	// Flags
	source      = flag.String("in", pipeName, "Job file or directory of job files")
	destination = flag.String("out", pipeName, "Destination image or directory")
	format      = flag.String("format", "", "Output format: png, jpeg, bmp, tiff or gif (default: from the destination)")
	quality     = flag.Int("quality", 0, "JPEG quality (1-100)")
	bestEffort  = flag.Bool("best-effort", false, "Render without the logo when it cannot be loaded")
	assetRoot   = flag.String("assets", "", "Directory local logo references are resolved against")
	timeout     = flag.Duration("timeout", 0, "Timeout of logo downloads")
	workers     = flag.Int("conc", 0, "Number of jobs to render concurrently")
	envFile     = flag.String("env", "", "Environment file to load (default: .env when present)")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *envFile != "" {
		if err := config.LoadEnv(*envFile); err != nil {
			log.Fatalf(utils.DecorateText("Unable to load the environment file: %v", utils.ErrorMessage), err)
		}
	} else {
		// The default .env file is optional.
		_ = config.LoadEnv()
	}

	lg, err := logger.New(os.Getenv(config.LogEnvKey), os.Getenv(config.LogLevelKey))
	if err != nil {
		log.Fatalf(utils.DecorateText("Unable to initialize the logger: %v", utils.ErrorMessage), err)
	}
	defer lg.Sync()

	cfg, err := config.Load(lg)
	if err != nil {
		lg.Fatal("invalid configuration", zap.Error(err))
	}
	if *assetRoot != "" {
		cfg.AssetRoot = *assetRoot
	}
	if *timeout > 0 {
		cfg.HTTPTimeout = *timeout
	}
	if *quality > 0 {
		cfg.JPEGQuality = *quality
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	proc := qrstyle.NewProcessor(nil, lg)
	proc.Assets = cfg.Store()
	proc.JPEGQuality = cfg.JPEGQuality
	proc.BestEffortLogo = *bestEffort || cfg.BestEffortLogo
	if *format != "" {
		if proc.Format, err = qrstyle.ParseFormat(*format); err != nil {
			log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
		}
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("▣ QRSTYLE", utils.StatusMessage),
		utils.DecorateText("is rendering the code...", utils.DefaultMessage))
	spinner := utils.NewSpinner(os.Stderr, spinnerText, time.Millisecond*200, true)
	spinner.StopMsg = fmt.Sprintf("%s %s",
		utils.DecorateText("▣ QRSTYLE", utils.StatusMessage),
		utils.DecorateText("is rendering the code... ✔", utils.DefaultMessage))

	// Capture CTRL-C and restore the cursor visibility back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		spinner.RestoreCursor()
	}()

	lg.Info("qrstyle started",
		zap.String("version", Version),
		zap.String("src", *source),
		zap.String("dst", *destination),
	)
	err = proc.Execute(ctx, &qrstyle.Ops{
		Src:      *source,
		Dst:      *destination,
		PipeName: pipeName,
		Workers:  cfg.Workers,
		Status:   os.Stderr,
		Spinner:  spinner,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		lg.Sync()
		os.Exit(1)
	}
}
