package hal

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/pkg/log"
)

// FaceDetector finds the regions of img that must be blurred.
type FaceDetector interface {
	Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error)
}

// FaceDetectorFunc adapts a function to FaceDetector.
type FaceDetectorFunc func(ctx context.Context, img image.Image) ([]image.Rectangle, error)

func (f FaceDetectorFunc) Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	return f(ctx, img)
}

// BlurProcessor pixelates detected faces and writes the result next to the
// original as <name>_blur.JPG.
type BlurProcessor struct {
	detector  FaceDetector
	blockSize int
	quality   int
	log       log.Logger
}

var _ core.Processor = (*BlurProcessor)(nil)

// NewBlurProcessor returns a processor using detector, or a SkinDetector when detector is nil.
func NewBlurProcessor(detector FaceDetector, blockSize int) *BlurProcessor {
	if blockSize < 2 {
		blockSize = 2
	}
	if detector == nil {
		detector = &SkinDetector{CellSize: blockSize, MinCoverage: 0.6}
	}
	return &BlurProcessor{
		detector:  detector,
		blockSize: blockSize,
		quality:   92,
		log:       log.WithName("blur"),
	}
}

// BlurredPath returns the output path for original.
func BlurredPath(original string) string {
	ext := filepath.Ext(original)
	return strings.TrimSuffix(original, ext) + "_blur" + strings.ToUpper(ext)
}

func (p *BlurProcessor) Process(ctx context.Context, a core.Artifact) (core.Processed, error) {
	in, err := os.Open(a.Path)
	if err != nil {
		return core.Processed{}, err
	}
	src, err := jpeg.Decode(in)
	in.Close()
	if err != nil {
		return core.Processed{}, fmt.Errorf("decode %s: %w", a.Path, err)
	}

	regions, err := p.detector.Detect(ctx, src)
	if err != nil {
		return core.Processed{}, fmt.Errorf("detect faces: %w", err)
	}

	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return core.Processed{}, context.Cause(ctx)
		}
		pixelate(dst, r.Intersect(dst.Bounds()), p.blockSize)
	}

	out := BlurredPath(a.Path)
	f, err := os.Create(out)
	if err != nil {
		return core.Processed{}, err
	}
	if err := jpeg.Encode(f, dst, &jpeg.Options{Quality: p.quality}); err != nil {
		f.Close()
		os.Remove(out)
		return core.Processed{}, fmt.Errorf("encode %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return core.Processed{}, err
	}

	p.log.Info("Picture blurred", "original", a.Path, "blurred", out, "regions", len(regions))
	return core.Processed{Blurred: out, Original: a.Path}, nil
}

// pixelate replaces every block x block cell of r with its average color.
func pixelate(img *image.RGBA, r image.Rectangle, block int) {
	for y := r.Min.Y; y < r.Max.Y; y += block {
		for x := r.Min.X; x < r.Max.X; x += block {
			cell := image.Rect(x, y, min(x+block, r.Max.X), min(y+block, r.Max.Y))
			draw.Draw(img, cell, &image.Uniform{C: average(img, cell)}, image.Point{}, draw.Src)
		}
	}
}

func average(img *image.RGBA, r image.Rectangle) color.RGBA {
	var sr, sg, sb, n uint64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.RGBAAt(x, y)
			sr += uint64(c.R)
			sg += uint64(c.G)
			sb += uint64(c.B)
			n++
		}
	}
	if n == 0 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(sr / n), G: uint8(sg / n), B: uint8(sb / n), A: 255}
}

// SkinDetector marks grid cells dominated by skin-toned pixels. It is a cheap
// stand-in for a real face detector.
type SkinDetector struct {
	CellSize    int
	MinCoverage float64
}

func (d *SkinDetector) Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	b := img.Bounds()
	var regions []image.Rectangle
	for y := b.Min.Y; y < b.Max.Y; y += d.CellSize {
		if err := ctx.Err(); err != nil {
			return nil, context.Cause(ctx)
		}
		for x := b.Min.X; x < b.Max.X; x += d.CellSize {
			cell := image.Rect(x, y, min(x+d.CellSize, b.Max.X), min(y+d.CellSize, b.Max.Y))
			if skinCoverage(img, cell) >= d.MinCoverage {
				regions = append(regions, cell)
			}
		}
	}
	return regions, nil
}

func skinCoverage(img image.Image, r image.Rectangle) float64 {
	skin, total := 0, 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			total++
			if isSkin(img.At(x, y)) {
				skin++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(skin) / float64(total)
}

// isSkin applies the classic YCbCr skin range.
func isSkin(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	_, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(b>>8))
	return cb >= 77 && cb <= 127 && cr >= 133 && cr <= 173
}
