package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/chromatogram"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/proposal"
)

const (
	marginLeft   = 8
	marginRight  = 8
	marginTop    = 18
	marginBottom = 18

	axisWidth  = 1
	traceWidth = 1.5
)

// Options controls the plot layout.
type Options struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Background and TruthColor are hex colors ("#rrggbb" or "#rrggbbaa").
	Background string `json:"background"`
	TruthColor string `json:"truth_color"`

	// TopN is the number of proposals drawn, highest score first.
	TopN int `json:"top_n"`

	// ShowScores labels each drawn proposal with its score.
	ShowScores bool `json:"show_scores"`

	// Window zooms the output onto an index range of the chromatogram.
	Window *interval.Interval `json:"window,omitempty"`

	// SavePath, if set, also writes the PNG to this file.
	SavePath string `json:"save_path,omitempty"`
}

// DefaultOptions returns an 800×400 plot with the five best proposals.
func DefaultOptions() Options {
	return Options{
		Width:      800,
		Height:     400,
		Background: "#ffffff",
		TruthColor: "#2ca02c50",
		TopN:       5,
		ShowScores: true,
	}
}

// Result contains the encoded plot.
type Result struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	SavedTo     string `json:"saved_to,omitempty"`
}

// Plot renders chrom with the ground-truth intervals and proposals, all given in
// point-index units.
func Plot(chrom *chromatogram.Chromatogram, truth []interval.Interval, props []proposal.Proposal, opts Options) (*Result, error) {
	img, err := Draw(chrom, truth, props, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode plot: %w", err)
	}

	res := &Result{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}
	if opts.SavePath != "" {
		if err := imgio.Save(opts.SavePath, img, imgio.PNGEncoder()); err != nil {
			return nil, fmt.Errorf("failed to save plot: %w", err)
		}
		res.SavedTo = opts.SavePath
	}
	return res, nil
}

// Draw renders the plot without encoding it.
func Draw(chrom *chromatogram.Chromatogram, truth []interval.Interval, props []proposal.Proposal, opts Options) (*image.NRGBA, error) {
	if chrom == nil || chrom.Len() < 2 {
		return nil, fmt.Errorf("render: chromatogram needs at least 2 points")
	}
	if opts.Width < marginLeft+marginRight+16 || opts.Height < marginTop+marginBottom+16 {
		return nil, fmt.Errorf("render: plot size %dx%d is too small", opts.Width, opts.Height)
	}
	bg, err := ParseColor(opts.Background)
	if err != nil {
		bg = color.NRGBA{255, 255, 255, 255}
	}
	truthColor, err := ParseColor(opts.TruthColor)
	if err != nil {
		truthColor = color.NRGBA{44, 160, 44, 80}
	}

	canvas := imaging.New(opts.Width, opts.Height, bg)
	p := newPlotArea(chrom, opts.Width, opts.Height)

	for _, gt := range truth {
		x1, x2 := p.x(gt.Start), p.x(gt.End)
		r := image.Rect(x1, p.top, x2+1, p.bottom+1)
		draw.Draw(canvas, r, image.NewUniform(truthColor), image.Point{}, draw.Over)
	}

	axis := color.NRGBA{120, 120, 120, 255}
	stroke(canvas, []image.Point{image.Pt(p.left, p.top), image.Pt(p.left, p.bottom), image.Pt(p.right, p.bottom)}, axisWidth, axis)
	drawText(canvas, p.left, opts.Height-4, fmt.Sprintf("%.1f", chrom.Times[0]), axis)
	endLabel := fmt.Sprintf("%.1f", chrom.Times[chrom.Len()-1])
	drawText(canvas, p.right-7*len(endLabel), opts.Height-4, endLabel, axis)

	for i, c := range Palette(len(chrom.Traces), 200) {
		tr := chrom.Traces[i]
		pts := make([]image.Point, len(tr))
		for j, v := range tr {
			pts[j] = image.Pt(p.x(float64(j)), p.y(v))
		}
		stroke(canvas, pts, traceWidth, toNRGBA(c, 255))
	}

	n := opts.TopN
	if n > len(props) {
		n = len(props)
	}
	for i, c := range Palette(n, 0) {
		pr := props[i]
		col := toNRGBA(c, 255)
		x1, x2 := p.x(pr.Start), p.x(pr.End)
		y := p.top + 2*i
		stroke(canvas, []image.Point{image.Pt(x1, p.bottom), image.Pt(x1, y), image.Pt(x2, y), image.Pt(x2, p.bottom)}, axisWidth, col)
		if opts.ShowScores {
			drawText(canvas, x1+2, p.top-4, fmt.Sprintf("%.2f", pr.Score), col)
		}
	}

	if opts.Window != nil {
		return zoom(canvas, p, *opts.Window)
	}
	return canvas, nil
}

// zoom crops the columns covering window and scales them back to the canvas size.
func zoom(canvas *image.NRGBA, p plotArea, window interval.Interval) (*image.NRGBA, error) {
	if !(window.End > window.Start) {
		return nil, fmt.Errorf("render: invalid window %v", window)
	}
	x1, x2 := p.x(window.Start), p.x(window.End)
	if x2 <= x1 {
		return nil, fmt.Errorf("render: window %v is narrower than one pixel", window)
	}
	b := canvas.Bounds()
	cropped := imaging.Crop(canvas, image.Rect(x1, 0, x2+1, b.Dy()))
	return imaging.Resize(cropped, b.Dx(), b.Dy(), imaging.Lanczos), nil
}

type plotArea struct {
	left, right, top, bottom int
	last                     float64
	max                      float64
}

func newPlotArea(chrom *chromatogram.Chromatogram, w, h int) plotArea {
	hi := 0.0
	for _, tr := range chrom.Traces {
		for _, v := range tr {
			hi = math.Max(hi, v)
		}
	}
	if hi == 0 {
		hi = 1
	}
	return plotArea{
		left:   marginLeft,
		right:  w - marginRight - 1,
		top:    marginTop,
		bottom: h - marginBottom - 1,
		last:   float64(chrom.Len() - 1),
		max:    hi,
	}
}

func (p plotArea) x(pos float64) int {
	pos = math.Max(0, math.Min(pos, p.last))
	return p.left + int(math.Round(pos/p.last*float64(p.right-p.left)))
}

func (p plotArea) y(v float64) int {
	v = math.Max(0, math.Min(v, p.max))
	return p.bottom - int(math.Round(v/p.max*float64(p.bottom-p.top)))
}

// Palette returns n colors with evenly spaced hues starting at hue0 degrees.
func Palette(n int, hue0 float64) []colorful.Color {
	out := make([]colorful.Color, n)
	for i := range out {
		h := math.Mod(hue0+360*float64(i)/float64(max(n, 1)), 360)
		out[i] = colorful.Hsv(h, 0.75, 0.8)
	}
	return out
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}

	alpha := uint8(255)
	switch len(hex) {
	case 7:
	case 9:
		var a uint8
		if _, err := fmt.Sscanf(hex[7:], "%02x", &a); err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in %q: %w", hex, err)
		}
		alpha = a
		hex = hex[:7]
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, err
	}
	return toNRGBA(c, alpha), nil
}

func toNRGBA(c colorful.Color, alpha uint8) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}
}

// stroke draws the polyline through pts with square-capped segments of the
// given pixel width. Points address pixel centers.
func stroke(img *image.NRGBA, pts []image.Point, width float32, c color.NRGBA) {
	if len(pts) == 0 {
		return
	}
	b := img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	if len(pts) == 1 {
		addSegment(r, pts[0].Sub(b.Min), pts[0].Sub(b.Min), width/2)
	}
	for i := 1; i < len(pts); i++ {
		addSegment(r, pts[i-1].Sub(b.Min), pts[i].Sub(b.Min), width/2)
	}
	r.Draw(img, b, image.NewUniform(c), image.Point{})
}

// addSegment adds the rectangle around segment ab, extended by half at both ends.
func addSegment(r *vector.Rasterizer, a, b image.Point, half float32) {
	ax, ay := float32(a.X)+0.5, float32(a.Y)+0.5
	bx, by := float32(b.X)+0.5, float32(b.Y)+0.5
	dx, dy := bx-ax, by-ay
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		dx, dy, l = 1, 0, 1
	}
	ux, uy := dx/l*half, dy/l*half
	nx, ny := -uy, ux
	ax, ay = ax-ux, ay-uy
	bx, by = bx+ux, by+uy

	r.MoveTo(ax+nx, ay+ny)
	r.LineTo(bx+nx, by+ny)
	r.LineTo(bx-nx, by-ny)
	r.LineTo(ax-nx, ay-ny)
	r.ClosePath()
}

// drawText draws text with its baseline at y.
func drawText(img *image.NRGBA, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
