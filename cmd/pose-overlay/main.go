package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof" // Enable pprof
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/dj-oyu/pose-overlay/internal/config"
	"github.com/dj-oyu/pose-overlay/internal/console"
	"github.com/dj-oyu/pose-overlay/internal/inference/tflite"
	"github.com/dj-oyu/pose-overlay/internal/logger"
	"github.com/dj-oyu/pose-overlay/internal/metrics"
	"github.com/dj-oyu/pose-overlay/internal/overlay"
	"github.com/dj-oyu/pose-overlay/internal/pipeline"
	"github.com/dj-oyu/pose-overlay/internal/pose"
	"github.com/dj-oyu/pose-overlay/internal/raster"
	"github.com/dj-oyu/pose-overlay/internal/vision"
)

var (
	// Command-line flags. Explicitly set flags override the config file.
	configPath  = flag.String("config", "", "YAML config file")
	device      = flag.Int("device", 0, "V4L2 capture device index")
	stillPath   = flag.String("still", "", "Replay a JPEG/PNG image instead of the camera")
	repeat      = flag.Int("repeat", 0, "Still frames before end of stream (0 = forever)")
	displayMode = flag.String("display", "window", "Display mode (window, console)")
	modelDir    = flag.String("model-dir", "models", "Directory holding <model>.tflite")
	threads     = flag.Int("threads", 0, "Inference threads (0 = runtime default)")
	decodeAux   = flag.Bool("decode-aux", false, "Decode depth, visibility and presence channels")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor    = flag.Bool("log-color", true, "Enable colored log output")
	metricsAddr = flag.String("metrics", "", "Metrics server address (empty = disabled)")
	pprofAddr   = flag.String("pprof", "", "pprof server address (empty = disabled)")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	os.Exit(run(cfg))
}

// loadConfig reads the config file and applies the flags given on the command line.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Capture.Device = *device
		case "still":
			cfg.Capture.Still = *stillPath
		case "repeat":
			cfg.Capture.Repeat = *repeat
		case "display":
			cfg.Display.Mode = *displayMode
		case "model-dir":
			cfg.Model.Dir = *modelDir
		case "threads":
			cfg.Model.Threads = *threads
		case "decode-aux":
			cfg.Model.DecodeAuxiliaryChannels = *decodeAux
		case "log-level":
			cfg.Observability.LogLevel = *logLevel
		case "log-color":
			cfg.Observability.LogColor = *logColor
		case "metrics":
			cfg.Observability.MetricsAddr = *metricsAddr
		case "pprof":
			cfg.Observability.PprofAddr = *pprofAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// run executes the pipeline and returns the process exit code.
func run(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logOut := io.Writer(os.Stderr)
	fpsOut := io.Writer(os.Stdout)

	// The console display owns the terminal, so it is opened before anything logs.
	var con *console.Console
	if cfg.Display.Mode == "console" {
		var err error
		con, err = console.Open(os.Stdin, stop)
		if err != nil {
			fmt.Println(err)
			return 1
		}
		defer con.Close()
		logOut = con.Output(logOut)
		fpsOut = con.Output(fpsOut)
	}

	level, err := logger.ParseLevel(cfg.Observability.LogLevel)
	if err != nil {
		log.Printf("Invalid log level: %v", err)
	}
	logger.Init(level, logOut, cfg.Observability.LogColor)

	runID := uuid.NewString()
	logger.Info("Main", "Pose overlay starting (run %s)", runID)
	logger.Info("Main", "Log level: %s", level)

	m := metrics.New(runID)
	startServers(cfg, m)

	opts := pipeline.Options{
		DisplayWidth:      cfg.Capture.Width,
		DisplayHeight:     cfg.Capture.Height,
		InputWidth:        cfg.Model.InputWidth,
		InputHeight:       cfg.Model.InputHeight,
		ModelName:         cfg.Model.Name,
		InputTensor:       cfg.Model.InputTensor,
		OutputTensor:      cfg.Model.OutputTensor,
		DecodeAuxiliary:   cfg.Model.DecodeAuxiliaryChannels,
		KeyWait:           cfg.KeyWait(),
		QuitKey:           cfg.QuitKeyCode(),
		EmptyFrameRetries: cfg.Pipeline.EmptyFrameRetries,
		CaptureTimeout:    cfg.Pipeline.CaptureTimeout.Duration(),
		InferenceTimeout:  cfg.Pipeline.InferenceTimeout.Duration(),
	}

	deps := pipeline.Dependencies{
		Engine: tflite.Engine{
			ModelDir: cfg.Model.Dir,
			Threads:  cfg.Model.Threads,
		},
		Renderer: overlay.NewRenderer(overlay.Style{
			BoneColor:     cfg.Overlay.BoneColor.RGBA(),
			JointColor:    cfg.Overlay.JointColor.RGBA(),
			BoneThickness: cfg.Overlay.BoneThickness,
			JointRadius:   cfg.Overlay.JointRadius,
		}, pose.Bones()),
		Metrics:   m,
		FPSWriter: io.Discard,
		Log:       logger.For("Pipeline"),
	}
	if cfg.Pipeline.ReportFPS {
		deps.FPSWriter = fpsOut
	}

	if cfg.Capture.Still != "" {
		still, err := raster.OpenStill(cfg.Capture.Still, cfg.Capture.Repeat)
		if err != nil {
			fmt.Println(err)
			return 1
		}
		// Landmarks are scaled to the frame they are drawn on.
		size := still.Size()
		opts.DisplayWidth, opts.DisplayHeight = size.X, size.Y
		deps.OpenSource = func() (pipeline.Source, error) { return still, nil }
		deps.Preprocessor = raster.NewPreprocessor(opts.InputWidth, opts.InputHeight)
		logger.Info("Main", "Source: %s (%dx%d)", cfg.Capture.Still, size.X, size.Y)
	} else {
		pre := vision.NewPreprocessor(opts.InputWidth, opts.InputHeight)
		defer pre.Close()
		deps.OpenSource = func() (pipeline.Source, error) {
			return vision.OpenCamera(vision.CameraConfig{
				Device: cfg.Capture.Device,
				Width:  cfg.Capture.Width,
				Height: cfg.Capture.Height,
				FPS:    cfg.Capture.FPS,
			})
		}
		deps.Preprocessor = pre
		logger.Info("Main", "Source: /dev/video%d (%dx%d @ %d fps)",
			cfg.Capture.Device, cfg.Capture.Width, cfg.Capture.Height, cfg.Capture.FPS)
	}

	if con != nil {
		deps.OpenDisplay = func() (pipeline.Display, error) { return con, nil }
	} else {
		deps.OpenDisplay = func() (pipeline.Display, error) { return vision.OpenWindow(cfg.Display.Title), nil }
	}

	logger.Info("Main", "Model: %s/%s (%s -> %s, %dx%d)",
		cfg.Model.Dir, cfg.Model.Name, cfg.Model.InputTensor, cfg.Model.OutputTensor,
		cfg.Model.InputWidth, cfg.Model.InputHeight)
	logger.Info("Main", "Press '%s' to quit", cfg.Display.QuitKey)

	loop := pipeline.New(opts, deps)
	if err := loop.Run(ctx); err != nil {
		fmt.Println(err)
		return 1
	}

	logger.Info("Main", "Processed %d frames", m.FramesProcessed.Load())
	return 0
}

func startServers(cfg *config.Config, m *metrics.Metrics) {
	if addr := cfg.Observability.PprofAddr; addr != "" {
		go func() {
			logger.Info("Main", "Starting pprof server on %s", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.Warn("Main", "pprof server error: %v", err)
			}
		}()
	}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		go func() {
			logger.Info("Main", "Starting metrics server on %s", addr)
			if err := m.StartServer(addr); err != nil {
				logger.Warn("Main", "Metrics server error: %v", err)
			}
		}()
	}
}
