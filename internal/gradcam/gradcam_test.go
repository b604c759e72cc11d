package gradcam

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"strings"
	"testing"

	"xinsight/internal/vision"
)

func fm(c, h, w int, data ...float32) *vision.FeatureMap {
	return &vision.FeatureMap{C: c, H: h, W: w, Data: data}
}

func TestCompute_WeightsAndNormalizes(t *testing.T) {
	// two channels on a 1x2 grid
	act := fm(2, 1, 2,
		1, 0, // channel 0
		0, 2, // channel 1
	)
	// channel 0 mean grad = 1, channel 1 mean grad = 0.5
	grad := fm(2, 1, 2,
		1, 1,
		0.5, 0.5,
	)
	hm, err := Compute(act, grad)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// raw cam = [1*1 + 0.5*0, 1*0 + 0.5*2] = [1, 1]
	if hm.W != 2 || hm.H != 1 || hm.At(0, 0) != 1 || hm.At(1, 0) != 1 {
		t.Fatalf("unexpected heatmap: %+v", hm)
	}
}

func TestCompute_ReLUAndPeak(t *testing.T) {
	act := fm(1, 1, 3, 1, -1, 0.5)
	grad := fm(1, 1, 3, 2, 2, 2)
	hm, err := Compute(act, grad)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := []float64{1, 0, 0.5}
	for i, w := range want {
		if math.Abs(hm.Values[i]-w) > 1e-9 {
			t.Fatalf("value %d = %v want %v", i, hm.Values[i], w)
		}
	}
}

func TestCompute_AllZeroStaysZero(t *testing.T) {
	hm, err := Compute(fm(1, 2, 2, 1, 2, 3, 4), fm(1, 2, 2, 0, 0, 0, 0))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, v := range hm.Values {
		if v != 0 || math.IsNaN(v) {
			t.Fatalf("expected zeros, got %v", hm.Values)
		}
	}
}

func TestCompute_Errors(t *testing.T) {
	if _, err := Compute(nil, fm(1, 1, 1, 1)); err == nil {
		t.Fatalf("expected nil error")
	}
	if _, err := Compute(fm(1, 1, 2, 1, 1), fm(2, 1, 1, 1, 1)); err == nil {
		t.Fatalf("expected shape error")
	}
}

func TestUpsample(t *testing.T) {
	src := &Heatmap{W: 2, H: 2, Values: []float64{1, 1, 1, 1}}
	up := Upsample(src, 8, 6)
	if up.W != 8 || up.H != 6 || len(up.Values) != 48 {
		t.Fatalf("size: %dx%d", up.W, up.H)
	}
	for _, v := range up.Values {
		if v < 0.99 {
			t.Fatalf("constant map should stay ~1, got %v", v)
		}
	}
}

func TestColorizeJet(t *testing.T) {
	low := ColorizeJet(0)
	if low.R != 0 || low.G != 0 || low.B < 120 {
		t.Fatalf("low end should be dark blue: %+v", low)
	}
	high := ColorizeJet(1)
	if high.R < 120 || high.G != 0 || high.B != 0 {
		t.Fatalf("high end should be dark red: %+v", high)
	}
	mid := ColorizeJet(0.5)
	if mid.G != 255 {
		t.Fatalf("middle should be green-dominant: %+v", mid)
	}
	if ColorizeJet(-3) != low || ColorizeJet(7) != high {
		t.Fatalf("out of range values must clamp")
	}
}

func TestOverlay(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 2, 1))
	base.SetRGBA(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	base.SetRGBA(1, 0, color.RGBA{A: 255})
	out, err := Overlay(base, &Heatmap{W: 2, H: 1, Values: []float64{1, 0}})
	if err != nil {
		t.Fatalf("overlay: %v", err)
	}
	jetHigh := ColorizeJet(1)
	p := out.RGBAAt(0, 0)
	if want := blend(255, jetHigh.R); p.R != want || p.G != 153 {
		t.Fatalf("pixel 0: %+v", p)
	}
	q := out.RGBAAt(1, 0)
	if q.R != 0 || q.B != blend(0, ColorizeJet(0).B) {
		t.Fatalf("pixel 1: %+v", q)
	}
	if _, err := Overlay(base, &Heatmap{W: 1, H: 1, Values: []float64{0}}); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}

func TestRender_DataURI(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 16, 16))
	act := fm(1, 2, 2, 0, 1, 2, 3)
	grad := fm(1, 2, 2, 1, 1, 1, 1)
	uri, err := Render(base, act, grad)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("bad prefix: %.40s", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := jpeg.Decode(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("jpeg: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Fatalf("size: %v", img.Bounds())
	}
}
