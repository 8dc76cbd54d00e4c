package hal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/pkg/log"
)

// MockCamera is an in-process camera for development. It writes generated
// pictures under dcimDir/100RICOH and keeps options in memory.
type MockCamera struct {
	dir          string
	captureDelay time.Duration
	frameRate    time.Duration
	log          log.Logger

	mu      sync.Mutex
	seq     int
	last    string
	options map[string]any
}

var (
	_ core.Camera      = (*MockCamera)(nil)
	_ core.OptionStore = (*MockCamera)(nil)
)

func NewMockCamera(dcimDir string) *MockCamera {
	return &MockCamera{
		dir:          filepath.Join(dcimDir, "100RICOH"),
		captureDelay: 500 * time.Millisecond,
		frameRate:    100 * time.Millisecond,
		log:          log.WithName("camera-mock"),
		options: map[string]any{
			"iso":               100,
			"captureMode":       "image",
			"exposureProgram":   2,
			"whiteBalance":      "auto",
			"fileFormat":        map[string]any{"type": "jpeg", "width": 640, "height": 480},
			"remainingPictures": 9999,
		},
	}
}

func (c *MockCamera) Capture(ctx context.Context, _ json.RawMessage) (core.Artifact, error) {
	c.log.Info("[HAL-Mock] Releasing shutter...")
	select {
	case <-ctx.Done():
		return core.Artifact{}, context.Cause(ctx)
	case <-time.After(c.captureDelay):
	}

	c.mu.Lock()
	c.seq++
	name := fmt.Sprintf("R%07d.JPG", 10000+c.seq)
	c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return core.Artifact{}, err
	}
	path := filepath.Join(c.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return core.Artifact{}, err
	}
	defer f.Close()
	if err := jpeg.Encode(f, testPattern(640, 480, c.seq), &jpeg.Options{Quality: 90}); err != nil {
		return core.Artifact{}, fmt.Errorf("encode picture: %w", err)
	}

	c.mu.Lock()
	c.last = path
	c.mu.Unlock()

	c.log.Info("[HAL-Mock] Picture written", "path", path)
	return core.Artifact{Path: path}, nil
}

func (c *MockCamera) CheckStatus(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()

	if last == "" {
		return json.Marshal(map[string]any{"state": "done", "results": map[string]any{}})
	}
	return json.Marshal(map[string]any{
		"state":   "done",
		"results": map[string]any{"fileUrl": core.MediaPath(last)},
	})
}

func (c *MockCamera) GetOptions(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p struct {
		OptionNames []string `json:"optionNames"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]any)
	if len(p.OptionNames) == 0 {
		for k, v := range c.options {
			out[k] = v
		}
	}
	for _, name := range p.OptionNames {
		if v, ok := c.options[name]; ok {
			out[name] = v
		}
	}
	return json.Marshal(map[string]any{"options": out})
}

func (c *MockCamera) SetOptions(ctx context.Context, params json.RawMessage) error {
	var p struct {
		Options map[string]any `json:"options"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	if len(p.Options) == 0 {
		return fmt.Errorf("no options given")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range p.Options {
		c.options[k] = v
	}
	return nil
}

func (c *MockCamera) StartPreview(ctx context.Context) (core.PreviewStream, error) {
	return &mockStream{ticker: time.NewTicker(c.frameRate)}, nil
}

type mockStream struct {
	ticker *time.Ticker
	n      int
}

func (s *mockStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ticker.C:
	}
	s.n++
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testPattern(160, 120, s.n), &jpeg.Options{Quality: 60}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *mockStream) Close() error {
	s.ticker.Stop()
	return nil
}

// testPattern draws a gradient with a moving skin-toned square, so the blur has something to find.
func testPattern(w, h, n int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	size := h / 3
	x0 := (n * 8) % (w - size)
	y0 := (h - size) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 160, A: 255}
			if x >= x0 && x < x0+size && y >= y0 && y < y0+size {
				c = color.RGBA{R: 224, G: 172, B: 140, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
