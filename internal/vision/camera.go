package vision

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dj-oyu/pose-overlay/internal/logger"
	"github.com/dj-oyu/pose-overlay/internal/pipeline"
)

var errUnsupportedFrame = errors.New("vision: unsupported frame type")

// CameraConfig selects a capture device and the format hints applied to it.
type CameraConfig struct {
	Device int
	Width  int
	Height int
	FPS    int
}

// Camera reads frames from a V4L2 device.
type Camera struct {
	cfg     CameraConfig
	capture *gocv.VideoCapture
	mat     gocv.Mat
	log     logger.Module
}

// OpenCamera opens the device and applies the width, height and frame rate
// hints. The driver may not honor them; the negotiated values are logged.
func OpenCamera(cfg CameraConfig) (*Camera, error) {
	capture, err := gocv.VideoCaptureDeviceWithAPI(cfg.Device, gocv.VideoCaptureV4L2)
	if err != nil {
		return nil, fmt.Errorf("open video device %d: %w", cfg.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video device %d is not available", cfg.Device)
	}

	if cfg.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	}

	c := &Camera{
		cfg:     cfg,
		capture: capture,
		mat:     gocv.NewMat(),
		log:     logger.For("Camera"),
	}
	c.log.Info("Opened /dev/video%d: %.0fx%.0f @ %.1f fps",
		cfg.Device,
		capture.Get(gocv.VideoCaptureFrameWidth),
		capture.Get(gocv.VideoCaptureFrameHeight),
		capture.Get(gocv.VideoCaptureFPS))
	return c, nil
}

// Read grabs the next frame into the camera's buffer. A failed grab yields an
// empty frame.
func (c *Camera) Read() (pipeline.Frame, error) {
	if ok := c.capture.Read(&c.mat); !ok {
		c.log.Debug("Read returned no frame")
	}
	return NewMatFrame(&c.mat), nil
}

func (c *Camera) Close() error {
	err := c.capture.Close()
	if merr := c.mat.Close(); err == nil {
		err = merr
	}
	return err
}
