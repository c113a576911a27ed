package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Capture.Width != 640 || cfg.Capture.Height != 480 || cfg.Capture.FPS != 30 {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.Model.Name != "pose_detection_lite" || cfg.Model.InputTensor != "input_1" || cfg.Model.OutputTensor != "Identity" {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Model.InputWidth != 256 || cfg.Model.InputHeight != 256 {
		t.Errorf("model input = %dx%d", cfg.Model.InputWidth, cfg.Model.InputHeight)
	}
	if cfg.Model.DecodeAuxiliaryChannels {
		t.Error("auxiliary decoding must default to off")
	}
	if cfg.KeyWait() != 33*time.Millisecond {
		t.Errorf("KeyWait = %v, want 33ms", cfg.KeyWait())
	}
	if cfg.QuitKeyCode() != 'q' {
		t.Errorf("QuitKeyCode = %d", cfg.QuitKeyCode())
	}
	if cfg.Pipeline.EmptyFrameRetries != 0 {
		t.Error("empty frames must be fatal by default")
	}
	if cfg.Overlay.BoneColor.RGBA() != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("bone color = %v", cfg.Overlay.BoneColor.RGBA())
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pose.yaml")
	data := `
capture:
  device: 2
  width: 1280
  height: 720
model:
  dir: /opt/models
  decode_auxiliary_channels: true
display:
  mode: console
pipeline:
  empty_frame_retries: 3
  inference_timeout: 250ms
overlay:
  joint_color: {r: 0, g: 255, b: 0}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Capture.Device != 2 || cfg.Capture.Width != 1280 || cfg.Capture.FPS != 30 {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.Model.Dir != "/opt/models" || !cfg.Model.DecodeAuxiliaryChannels || cfg.Model.Name != "pose_detection_lite" {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Display.Mode != "console" {
		t.Errorf("display mode = %q", cfg.Display.Mode)
	}
	if cfg.Pipeline.EmptyFrameRetries != 3 || cfg.Pipeline.InferenceTimeout.Duration() != 250*time.Millisecond {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Overlay.JointColor.RGBA() != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("joint color = %v", cfg.Overlay.JointColor.RGBA())
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pose.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  capture_timeout: soon\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Capture.Width = 0 }},
		{"zero fps", func(c *Config) { c.Capture.FPS = 0 }},
		{"negative device", func(c *Config) { c.Capture.Device = -1 }},
		{"missing output tensor", func(c *Config) { c.Model.OutputTensor = "" }},
		{"bad input size", func(c *Config) { c.Model.InputHeight = 0 }},
		{"unknown display", func(c *Config) { c.Display.Mode = "web" }},
		{"long quit key", func(c *Config) { c.Display.QuitKey = "quit" }},
		{"zero radius", func(c *Config) { c.Overlay.JointRadius = 0 }},
		{"zero target fps", func(c *Config) { c.Pipeline.TargetFPS = 0 }},
		{"negative retries", func(c *Config) { c.Pipeline.EmptyFrameRetries = -1 }},
		{"negative timeout", func(c *Config) { c.Pipeline.InferenceTimeout = Duration(-time.Second) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
