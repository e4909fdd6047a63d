// Package render composites overlay text onto template backgrounds. It is
// the single CPU-bound step of the pipeline, so renders run through a
// bounded worker pool and never on an unbounded number of goroutines.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"

	"memed/internal/meme"
	"memed/internal/pkg/logger"
)

const (
	dpi              = 72.0
	outlineThickness = 2
	edgePadding      = 12
	watermarkSize    = 14.0
)

var (
	fillColor    = image.White
	outlineColor = image.Black
	blankColor   = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

// Options configures the renderer. FontPath may be empty, in which case
// backgrounds render without text (useful in tests and blank previews).
type Options struct {
	FontPath string
	OutDir   string
	Workers  int
}

// Result points at the rendered file on disk.
type Result struct {
	Path        string
	ContentType string
}

type Renderer struct {
	font   *truetype.Font
	outDir string
	sem    chan struct{}
	log    *logger.Logger
}

func New(opts Options, log *logger.Logger) (*Renderer, error) {
	if log == nil {
		log = logger.NewDefault()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	r := &Renderer{
		outDir: opts.OutDir,
		sem:    make(chan struct{}, workers),
		log:    log.WithComponent("renderer"),
	}

	if opts.FontPath != "" {
		data, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("reading font %s: %w", opts.FontPath, err)
		}
		f, err := freetype.ParseFont(data)
		if err != nil {
			return nil, fmt.Errorf("parsing font %s: %w", opts.FontPath, err)
		}
		r.font = f
	}
	return r, nil
}

// Render produces the image file for a resolved job. Identical jobs map to
// the same output path, so repeated requests hit the file cache.
func (r *Renderer) Render(ctx context.Context, job meme.Job) (Result, error) {
	out := filepath.Join(r.outDir, jobDigest(job)+"."+job.Extension)
	ct := contentType(job.Extension)

	if _, err := os.Stat(out); err == nil {
		return Result{Path: out, ContentType: ct}, nil
	}

	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	canvas := r.loadBackground(job)
	r.drawLines(canvas, job.Lines)
	r.drawWatermark(canvas, job.Watermark)

	final := resize(canvas, job.Width, job.Height)

	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return Result{}, err
	}
	tmp, err := os.CreateTemp(r.outDir, ".render-*")
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, final, job.Extension); err != nil {
		tmp.Close()
		return Result{}, fmt.Errorf("encoding %s: %w", job.Extension, err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return Result{}, err
	}
	return Result{Path: out, ContentType: ct}, nil
}

// loadBackground decodes the style's background, falling back to a blank
// canvas when the template has no usable image.
func (r *Renderer) loadBackground(job meme.Job) *image.RGBA {
	path := job.Template.StylePath(job.Style)
	if path != "" {
		if f, err := os.Open(path); err == nil {
			src, _, err := image.Decode(f)
			f.Close()
			if err == nil {
				b := src.Bounds()
				canvas := image.NewRGBA(b)
				draw.Draw(canvas, b, src, b.Min, draw.Src)
				return canvas
			}
			r.log.Warn("background decode failed", "path", path, "error", err.Error())
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, 600, 400))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(blankColor), image.Point{}, draw.Src)
	return canvas
}

func (r *Renderer) drawLines(canvas *image.RGBA, lines []string) {
	if r.font == nil || len(lines) == 0 {
		return
	}

	b := canvas.Bounds()
	size := fitFontSize(b.Dx(), b.Dy(), len(lines))
	lineH := int(size * 1.2)

	for i, line := range lines {
		line = strings.ToUpper(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		width := r.measure(line, size)
		x := (b.Dx() - width) / 2
		if x < edgePadding {
			x = edgePadding
		}
		y := baselineFor(i, len(lines), b.Dy(), lineH)
		r.drawOutlined(canvas, line, size, x, y)
	}
}

func (r *Renderer) drawWatermark(canvas *image.RGBA, mark string) {
	if r.font == nil || mark == "" {
		return
	}
	b := canvas.Bounds()
	width := r.measure(mark, watermarkSize)
	x := b.Dx() - width - edgePadding
	y := b.Dy() - edgePadding
	r.drawOutlined(canvas, mark, watermarkSize, x, y)
}

func (r *Renderer) drawOutlined(canvas *image.RGBA, s string, size float64, x, y int) {
	c := freetype.NewContext()
	c.SetDPI(dpi)
	c.SetFont(r.font)
	c.SetFontSize(size)
	c.SetClip(canvas.Bounds())
	c.SetDst(canvas)
	c.SetHinting(font.HintingFull)

	c.SetSrc(outlineColor)
	for dx := -outlineThickness; dx <= outlineThickness; dx += outlineThickness {
		for dy := -outlineThickness; dy <= outlineThickness; dy += outlineThickness {
			if dx == 0 && dy == 0 {
				continue
			}
			_, _ = c.DrawString(s, freetype.Pt(x+dx, y+dy))
		}
	}

	c.SetSrc(fillColor)
	_, _ = c.DrawString(s, freetype.Pt(x, y))
}

func (r *Renderer) measure(s string, size float64) int {
	face := truetype.NewFace(r.font, &truetype.Options{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	defer face.Close()
	return font.MeasureString(face, s).Round()
}

func resize(src *image.RGBA, width, height int) image.Image {
	if width == 0 && height == 0 {
		return src
	}
	w, h := targetSize(src.Bounds().Dx(), src.Bounds().Dy(), width, height)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func encode(f *os.File, img image.Image, ext string) error {
	switch ext {
	case "jpg", "jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	case "gif":
		return gif.Encode(f, img, nil)
	default:
		return png.Encode(f, img)
	}
}

func contentType(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	}
	return "image/png"
}

func jobDigest(job meme.Job) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%dx%d",
		job.Template.ID,
		job.Style,
		strings.Join(job.Lines, "\x00"),
		job.Watermark,
		job.Extension,
		job.Width,
		job.Height,
	)
	return hex.EncodeToString(h.Sum(nil)[:12])
}
