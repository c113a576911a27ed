package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesPipelineSeries(t *testing.T) {
	m := New("test-run")
	m.FramesCaptured.Add(3)
	m.FramesProcessed.Add(2)
	m.EmptyFrames.Add(1)
	m.SetFPS(29.5)
	m.ObserveStage(StageInfer, 12*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	text := string(body)

	mustContain := []string{
		`pose_frames_captured_total{run_id="test-run"} 3`,
		`pose_frames_processed_total{run_id="test-run"} 2`,
		`pose_empty_frames_total{run_id="test-run"} 1`,
		`pose_fps{run_id="test-run"} 29.5`,
		`pose_stage_latency_seconds_count{run_id="test-run",stage="infer"} 1`,
	}
	for _, needle := range mustContain {
		if !strings.Contains(text, needle) {
			t.Fatalf("metrics output missing %q\n%s", needle, text)
		}
	}
}

func TestCurrentFPSRoundTrip(t *testing.T) {
	m := New("")
	if m.CurrentFPS() != 0 {
		t.Fatalf("initial fps = %v", m.CurrentFPS())
	}
	m.SetFPS(31.25)
	if m.CurrentFPS() != 31.25 {
		t.Fatalf("fps = %v", m.CurrentFPS())
	}
}
