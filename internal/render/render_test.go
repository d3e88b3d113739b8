package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/chromatogram"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/proposal"
)

// peakChromatogram creates a two-trace chromatogram with a peak at point 100.
func peakChromatogram(n int) *chromatogram.Chromatogram {
	c := &chromatogram.Chromatogram{
		Times:      make([]float64, n),
		TraceNames: []string{"y4", "y5"},
		Traces:     [][]float64{make([]float64, n), make([]float64, n)},
	}
	for i := 0; i < n; i++ {
		d := float64(i - 100)
		c.Times[i] = 1200 + 3.4*float64(i)
		c.Traces[0][i] = 500 * math.Exp(-d*d/50)
		c.Traces[1][i] = 300 * math.Exp(-d*d/50)
	}
	return c
}

func TestPlot(t *testing.T) {
	chrom := peakChromatogram(201)
	props := []proposal.Proposal{
		{Start: 92, End: 108, Score: 0.93},
		{Start: 20, End: 40, Score: 0.41},
	}
	truth := []interval.Interval{{Start: 90, End: 110}}

	res, err := Plot(chrom, truth, props, DefaultOptions())
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	if res.Width != 800 || res.Height != 400 || res.MimeType != "image/png" {
		t.Errorf("got %dx%d %s", res.Width, res.Height, res.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 400 {
		t.Errorf("decoded size: got %v", img.Bounds())
	}
}

func TestDraw_ShadesGroundTruth(t *testing.T) {
	chrom := &chromatogram.Chromatogram{
		Times:      []float64{0, 1, 2, 3, 4},
		TraceNames: []string{"flat"},
		Traces:     [][]float64{{0, 0, 0, 0, 0}},
	}
	opts := DefaultOptions()
	opts.Width, opts.Height = 200, 100

	img, err := Draw(chrom, []interval.Interval{{Start: 1, End: 3}}, nil, opts)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	p := newPlotArea(chrom, opts.Width, opts.Height)
	midY := (p.top + p.bottom) / 2

	inside := img.NRGBAAt(p.x(2), midY)
	if inside == (color.NRGBA{255, 255, 255, 255}) {
		t.Error("ground-truth region is not shaded")
	}
	if inside.G <= inside.R {
		t.Errorf("shading should be green, got %+v", inside)
	}
	outside := img.NRGBAAt(p.x(0.2), midY)
	if outside != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("pixel outside ground truth: got %+v, want background", outside)
	}
}

func TestDraw_OutlinesProposals(t *testing.T) {
	chrom := &chromatogram.Chromatogram{
		Times:      []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		TraceNames: []string{"flat"},
		Traces:     [][]float64{make([]float64, 11)},
	}
	opts := DefaultOptions()
	opts.Width, opts.Height = 220, 120
	opts.ShowScores = false

	img, err := Draw(chrom, nil, []proposal.Proposal{{Start: 3, End: 7, Score: 0.9}}, opts)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	p := newPlotArea(chrom, opts.Width, opts.Height)
	white := color.NRGBA{255, 255, 255, 255}
	midY := (p.top + p.bottom) / 2

	tests := []struct {
		name   string
		x, y   int
		marked bool
	}{
		{"top edge", (p.x(3) + p.x(7)) / 2, p.top, true},
		{"left edge", p.x(3), midY, true},
		{"right edge", p.x(7), midY, true},
		{"inside", (p.x(3) + p.x(7)) / 2, midY, false},
		{"outside", p.x(1), midY, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := img.NRGBAAt(tt.x, tt.y)
			if tt.marked && (got == white || got.R <= got.G) {
				t.Errorf("pixel (%d, %d): got %+v, want the proposal color", tt.x, tt.y, got)
			}
			if !tt.marked && got != white {
				t.Errorf("pixel (%d, %d): got %+v, want background", tt.x, tt.y, got)
			}
		})
	}
}

func TestStroke(t *testing.T) {
	white := color.NRGBA{255, 255, 255, 255}
	black := color.NRGBA{0, 0, 0, 255}

	tests := []struct {
		name  string
		pts   []image.Point
		width float32
		inked []image.Point
		blank []image.Point
	}{
		{
			name:  "horizontal",
			pts:   []image.Point{image.Pt(5, 10), image.Pt(25, 10)},
			width: 1,
			inked: []image.Point{image.Pt(5, 10), image.Pt(15, 10), image.Pt(25, 10)},
			blank: []image.Point{image.Pt(15, 8), image.Pt(15, 12), image.Pt(27, 10)},
		},
		{
			name:  "diagonal",
			pts:   []image.Point{image.Pt(10, 10), image.Pt(30, 30)},
			width: 1.5,
			inked: []image.Point{image.Pt(10, 10), image.Pt(20, 20), image.Pt(30, 30)},
			blank: []image.Point{image.Pt(20, 10), image.Pt(10, 20)},
		},
		{
			name:  "polyline corner",
			pts:   []image.Point{image.Pt(5, 30), image.Pt(5, 5), image.Pt(30, 5)},
			width: 1,
			inked: []image.Point{image.Pt(5, 20), image.Pt(5, 5), image.Pt(20, 5)},
			blank: []image.Point{image.Pt(20, 20)},
		},
		{
			name:  "single point",
			pts:   []image.Point{image.Pt(12, 12)},
			width: 1,
			inked: []image.Point{image.Pt(12, 12)},
			blank: []image.Point{image.Pt(14, 12)},
		},
		{
			name:  "empty",
			width: 1,
			blank: []image.Point{image.Pt(0, 0), image.Pt(20, 20)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
			for i := range img.Pix {
				img.Pix[i] = 255
			}
			stroke(img, tt.pts, tt.width, black)

			for _, pt := range tt.inked {
				if got := img.NRGBAAt(pt.X, pt.Y); got.R > 128 {
					t.Errorf("pixel %v: got %+v, want ink", pt, got)
				}
			}
			for _, pt := range tt.blank {
				if got := img.NRGBAAt(pt.X, pt.Y); got != white {
					t.Errorf("pixel %v: got %+v, want background", pt, got)
				}
			}
		})
	}
}

func TestDraw_Window(t *testing.T) {
	opts := DefaultOptions()
	opts.Window = &interval.Interval{Start: 80, End: 120}
	img, err := Draw(peakChromatogram(201), nil, nil, opts)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if img.Bounds().Dx() != opts.Width || img.Bounds().Dy() != opts.Height {
		t.Errorf("zoomed size: got %v", img.Bounds())
	}

	opts.Window = &interval.Interval{Start: 50, End: 50}
	if _, err := Draw(peakChromatogram(201), nil, nil, opts); err == nil {
		t.Error("expected error for empty window")
	}
}

func TestDraw_Errors(t *testing.T) {
	opts := DefaultOptions()
	if _, err := Draw(&chromatogram.Chromatogram{Times: []float64{1}}, nil, nil, opts); err == nil {
		t.Error("expected error for a single-point chromatogram")
	}
	opts.Width = 10
	if _, err := Draw(peakChromatogram(201), nil, nil, opts); err == nil {
		t.Error("expected error for a tiny canvas")
	}
}

func TestPlot_Save(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.png")
	opts := DefaultOptions()
	opts.SavePath = path

	res, err := Plot(peakChromatogram(201), nil, nil, opts)
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	if res.SavedTo != path {
		t.Errorf("SavedTo: got %q, want %q", res.SavedTo, path)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("saved file is not a PNG: %v", err)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#ff0000", color.NRGBA{255, 0, 0, 255}, false},
		{"00ff00", color.NRGBA{0, 255, 0, 255}, false},
		{"#0000ff80", color.NRGBA{0, 0, 255, 128}, false},
		{"", color.NRGBA{}, true},
		{"#12345", color.NRGBA{}, true},
		{"#gggggg", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q): err=%v, wantErr=%v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseColor(%q): got %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestPalette(t *testing.T) {
	p := Palette(4, 0)
	if len(p) != 4 {
		t.Fatalf("got %d colors, want 4", len(p))
	}
	for i := range p {
		for j := i + 1; j < len(p); j++ {
			if p[i].DistanceLab(p[j]) < 0.1 {
				t.Errorf("colors %d and %d are too similar", i, j)
			}
		}
	}
	if len(Palette(0, 0)) != 0 {
		t.Error("Palette(0) should be empty")
	}
}
