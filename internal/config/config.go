package config

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines the runtime configuration of the pose overlay.
type Config struct {
	Capture       CaptureConfig       `yaml:"capture"`
	Model         ModelConfig         `yaml:"model"`
	Display       DisplayConfig       `yaml:"display"`
	Overlay       OverlayConfig       `yaml:"overlay"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// CaptureConfig selects the frame source and its open-time hints.
type CaptureConfig struct {
	Device int    `yaml:"device"` // V4L2 device index
	Still  string `yaml:"still"`  // image file replayed instead of a camera
	Repeat int    `yaml:"repeat"` // still frames before end of stream, 0 = forever
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
}

// ModelConfig names the pose model and its tensors.
type ModelConfig struct {
	Dir          string `yaml:"dir"`
	Name         string `yaml:"name"`
	InputTensor  string `yaml:"input_tensor"`
	OutputTensor string `yaml:"output_tensor"`
	InputWidth   int    `yaml:"input_width"`
	InputHeight  int    `yaml:"input_height"`
	Threads      int    `yaml:"threads"`

	DecodeAuxiliaryChannels bool `yaml:"decode_auxiliary_channels"`
}

// DisplayConfig selects the display surface.
type DisplayConfig struct {
	Mode    string `yaml:"mode"` // "window" or "console"
	Title   string `yaml:"title"`
	QuitKey string `yaml:"quit_key"`
}

// OverlayConfig holds the skeleton presentation constants.
type OverlayConfig struct {
	BoneColor     RGB `yaml:"bone_color"`
	JointColor    RGB `yaml:"joint_color"`
	BoneThickness int `yaml:"bone_thickness"`
	JointRadius   int `yaml:"joint_radius"`
}

// PipelineConfig holds pacing and failure policy.
type PipelineConfig struct {
	TargetFPS         int      `yaml:"target_fps"`
	EmptyFrameRetries int      `yaml:"empty_frame_retries"` // 0 = first empty frame is fatal
	CaptureTimeout    Duration `yaml:"capture_timeout"`     // 0 = block
	InferenceTimeout  Duration `yaml:"inference_timeout"`   // 0 = block
	ReportFPS         bool     `yaml:"report_fps"`
}

// ObservabilityConfig holds logging and metrics endpoints.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogColor    bool   `yaml:"log_color"`
	MetricsAddr string `yaml:"metrics_addr"` // empty disables the metrics server
	PprofAddr   string `yaml:"pprof_addr"`   // empty disables pprof
}

// DefaultConfig returns the stock configuration: camera 0 at 640x480@30,
// pose_detection_lite with a 256x256 input, quit on 'q'.
func DefaultConfig() Config {
	return Config{
		Capture: CaptureConfig{
			Device: 0,
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Model: ModelConfig{
			Dir:          "models",
			Name:         "pose_detection_lite",
			InputTensor:  "input_1",
			OutputTensor: "Identity",
			InputWidth:   256,
			InputHeight:  256,
		},
		Display: DisplayConfig{
			Mode:    "window",
			Title:   "image",
			QuitKey: "q",
		},
		Overlay: OverlayConfig{
			BoneColor:     RGB{R: 255},
			JointColor:    RGB{B: 255},
			BoneThickness: 3,
			JointRadius:   7,
		},
		Pipeline: PipelineConfig{
			TargetFPS: 30,
			ReportFPS: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			LogColor: true,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return fmt.Errorf("invalid capture size: %dx%d", c.Capture.Width, c.Capture.Height)
	}
	if c.Capture.FPS <= 0 || c.Capture.FPS > 240 {
		return fmt.Errorf("invalid capture fps: %d", c.Capture.FPS)
	}
	if c.Capture.Device < 0 {
		return fmt.Errorf("invalid capture device: %d", c.Capture.Device)
	}
	if c.Capture.Repeat < 0 {
		return fmt.Errorf("invalid still repeat count: %d", c.Capture.Repeat)
	}
	if c.Model.Name == "" || c.Model.InputTensor == "" || c.Model.OutputTensor == "" {
		return fmt.Errorf("model name and tensor names are required")
	}
	if c.Model.InputWidth <= 0 || c.Model.InputHeight <= 0 {
		return fmt.Errorf("invalid model input size: %dx%d", c.Model.InputWidth, c.Model.InputHeight)
	}
	if c.Model.Threads < 0 {
		return fmt.Errorf("invalid thread count: %d", c.Model.Threads)
	}
	switch c.Display.Mode {
	case "window", "console":
	default:
		return fmt.Errorf("invalid display mode: %q", c.Display.Mode)
	}
	if len(c.Display.QuitKey) != 1 {
		return fmt.Errorf("quit key must be a single character: %q", c.Display.QuitKey)
	}
	if c.Overlay.BoneThickness <= 0 || c.Overlay.JointRadius <= 0 {
		return fmt.Errorf("invalid overlay sizes: thickness %d, radius %d", c.Overlay.BoneThickness, c.Overlay.JointRadius)
	}
	if c.Pipeline.TargetFPS <= 0 || c.Pipeline.TargetFPS > 1000 {
		return fmt.Errorf("invalid target fps: %d", c.Pipeline.TargetFPS)
	}
	if c.Pipeline.EmptyFrameRetries < 0 {
		return fmt.Errorf("invalid empty frame retries: %d", c.Pipeline.EmptyFrameRetries)
	}
	if c.Pipeline.CaptureTimeout < 0 || c.Pipeline.InferenceTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// KeyWait returns the bounded key-poll wait derived from the target frame rate.
func (c *Config) KeyWait() time.Duration {
	return time.Duration(1000/c.Pipeline.TargetFPS) * time.Millisecond
}

// QuitKeyCode returns the key code that stops the pipeline.
func (c *Config) QuitKeyCode() int {
	return int(c.Display.QuitKey[0])
}

// RGB is an opaque color in YAML form.
type RGB struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// RGBA converts to an opaque color.RGBA.
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
