// Package console is a headless display: frames are dropped and key presses
// are read from the controlling terminal.
package console

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/dj-oyu/pose-overlay/internal/logger"
	"github.com/dj-oyu/pose-overlay/internal/pipeline"
)

// interruptKey is Ctrl-C as delivered by a terminal in raw mode.
const interruptKey = 0x03

// Console implements the pipeline display without a window.
type Console struct {
	keys      chan int
	interrupt func()

	mu      sync.Mutex
	restore func() error
	raw     bool
	shown   uint64

	log logger.Module
}

// Open reads keys from in. When in is a terminal it is switched to raw mode
// so single key presses arrive without Enter; Close restores it.
func Open(in *os.File, interrupt func()) (*Console, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return New(in, interrupt), nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	c := New(in, interrupt)
	c.raw = true
	c.restore = func() error { return term.Restore(fd, state) }
	return c, nil
}

// New reads keys from r. interrupt, if set, is called when Ctrl-C arrives
// as a key.
func New(r io.Reader, interrupt func()) *Console {
	c := &Console{
		keys:      make(chan int, 16),
		interrupt: interrupt,
		log:       logger.For("Console"),
	}
	go c.readKeys(r, c.keys)
	return c
}

// readKeys runs until r fails. A blocked read on stdin cannot be cancelled,
// so the goroutine may outlive Close.
func (c *Console) readKeys(r io.Reader, keys chan<- int) {
	defer close(keys)

	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		switch {
		case n == 0:
		case buf[0] == interruptKey && c.interrupt != nil:
			c.interrupt()
		default:
			select {
			case keys <- int(buf[0]):
			default:
				// Nobody is polling fast enough; drop the key.
			}
		}
		if err != nil {
			if err != io.EOF {
				c.log.Warn("Key input stopped: %v", err)
			}
			return
		}
	}
}

// Show counts the frame and discards it.
func (c *Console) Show(pipeline.Frame) error {
	c.mu.Lock()
	c.shown++
	c.mu.Unlock()
	return nil
}

// Shown returns the number of frames presented so far.
func (c *Console) Shown() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shown
}

// PollKey waits up to wait for a key and returns it, or -1. Once input has
// ended it still waits the full duration so the loop keeps its pace.
func (c *Console) PollKey(wait time.Duration) int {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case k, ok := <-c.keys:
			if ok {
				return k
			}
			c.keys = nil
		case <-timer.C:
			return -1
		}
	}
}

// Output wraps w so that lines end in CRLF while the terminal is in raw mode.
func (c *Console) Output(w io.Writer) io.Writer {
	if !c.raw {
		return w
	}
	return crlfWriter{w}
}

func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restore == nil {
		return nil
	}
	err := c.restore()
	c.restore = nil
	c.raw = false
	return err
}

type crlfWriter struct {
	w io.Writer
}

func (cw crlfWriter) Write(p []byte) (int, error) {
	if _, err := cw.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
