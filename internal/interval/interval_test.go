package interval

import (
	"math"
	"testing"
)

func TestWidthAndCenter(t *testing.T) {
	iv := Interval{Start: 90, End: 110}
	if iv.Width() != 21 {
		t.Errorf("Width: got %v, want 21", iv.Width())
	}
	if iv.Center() != 100 {
		t.Errorf("Center: got %v, want 100", iv.Center())
	}

	back := FromCenter(iv.Center(), iv.Width())
	if back != iv {
		t.Errorf("FromCenter roundtrip: got %v, want %v", back, iv)
	}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want float64
	}{
		{"identical", Interval{10, 20}, Interval{10, 20}, 1},
		{"disjoint", Interval{0, 4}, Interval{5, 9}, 0},
		{"far apart", Interval{0, 4}, Interval{50, 60}, 0},
		{"contained", Interval{0, 9}, Interval{0, 4}, 0.5},
		{"half overlap", Interval{0, 9}, Interval{5, 14}, 5.0 / 15.0},
		{"single point", Interval{3, 3}, Interval{3, 3}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("IoU(%v, %v): got %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if rev := IoU(tt.b, tt.a); rev != got {
				t.Errorf("IoU not symmetric: %v vs %v", got, rev)
			}
			if got < 0 || got > 1 {
				t.Errorf("IoU out of range: %v", got)
			}
		})
	}
}

func TestIoU_Degenerate(t *testing.T) {
	bad := Interval{Start: 10, End: 5}
	if got := IoU(bad, Interval{0, 20}); got != 0 {
		t.Errorf("IoU with degenerate interval: got %v, want 0", got)
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   Interval
		want Interval
	}{
		{Interval{-5, 10}, Interval{0, 10}},
		{Interval{190, 230}, Interval{190, 200}},
		{Interval{250, 260}, Interval{200, 200}},
		{Interval{20, 30}, Interval{20, 30}},
	}
	for _, tt := range tests {
		if got := Clip(tt.in, 201); got != tt.want {
			t.Errorf("Clip(%v): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	if !(Interval{0, 0}).Valid() {
		t.Error("single-sample interval should be valid")
	}
	if (Interval{5, 3}).Valid() {
		t.Error("reversed interval should be invalid")
	}
	if (Interval{math.NaN(), 3}).Valid() {
		t.Error("NaN interval should be invalid")
	}
	if (Interval{0, math.Inf(1)}).Valid() {
		t.Error("infinite interval should be invalid")
	}
}

func TestEncodeDecode(t *testing.T) {
	anchor := FromCenter(100, 21)

	if d := Encode(anchor, anchor); d.Center != 0 || d.LogWidth != 0 {
		t.Errorf("Encode(anchor, anchor): got %+v, want zero delta", d)
	}

	gts := []Interval{{90, 110}, {80, 130}, {101, 104}, {0, 200}}
	for _, gt := range gts {
		d := Encode(anchor, gt)
		got := Decode(anchor, d)
		if math.Abs(got.Start-gt.Start) > 1e-9 || math.Abs(got.End-gt.End) > 1e-9 {
			t.Errorf("Decode(Encode(%v)): got %v", gt, got)
		}
	}
}

func TestDecode_ShiftAndScale(t *testing.T) {
	anchor := FromCenter(50, 10)
	got := Decode(anchor, Delta{Center: 0.5, LogWidth: math.Log(2)})
	if math.Abs(got.Center()-55) > 1e-9 {
		t.Errorf("Center: got %v, want 55", got.Center())
	}
	if math.Abs(got.Width()-20) > 1e-9 {
		t.Errorf("Width: got %v, want 20", got.Width())
	}
}
