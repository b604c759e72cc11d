// Package gradcam turns a feature map and its class gradient into a heatmap
// overlay that can be embedded in a JSON response.
package gradcam

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/mat"

	"xinsight/internal/vision"
)

// minPeak replaces a zero maximum so an all-zero map normalizes to zeros.
const minPeak = 1e-10

// JPEGQuality of the encoded overlays.
const JPEGQuality = 95

// Heatmap is an H×W grid of values in [0,1], row-major.
type Heatmap struct {
	W, H   int
	Values []float64
}

// At returns the value at (x, y).
func (h *Heatmap) At(x, y int) float64 { return h.Values[y*h.W+x] }

// Compute weights every activation channel by the spatial mean of its
// gradient, sums the channels, clips negatives and scales the result to [0,1].
func Compute(act, grad *vision.FeatureMap) (*Heatmap, error) {
	if act == nil || grad == nil {
		return nil, fmt.Errorf("gradcam: missing activations or gradients")
	}
	if act.C != grad.C || act.H != grad.H || act.W != grad.W {
		return nil, fmt.Errorf("gradcam: activations %dx%dx%d and gradients %dx%dx%d differ",
			act.C, act.H, act.W, grad.C, grad.H, grad.W)
	}
	n := act.H * act.W
	if act.C == 0 || n == 0 {
		return nil, fmt.Errorf("gradcam: empty feature map")
	}

	alpha := mat.NewVecDense(act.C, nil)
	for c := 0; c < grad.C; c++ {
		var sum float64
		for _, v := range grad.Channel(c) {
			sum += float64(v)
		}
		alpha.SetVec(c, sum/float64(n))
	}

	data := make([]float64, len(act.Data))
	for i, v := range act.Data {
		data[i] = float64(v)
	}
	a := mat.NewDense(act.C, n, data)

	var cam mat.VecDense
	cam.MulVec(a.T(), alpha)

	values := make([]float64, n)
	peak := 0.0
	for i := range values {
		v := math.Max(cam.AtVec(i), 0)
		values[i] = v
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		peak = minPeak
	}
	for i := range values {
		values[i] /= peak
	}
	return &Heatmap{W: act.W, H: act.H, Values: values}, nil
}

// Upsample resizes the heatmap to w×h with bilinear interpolation.
func Upsample(hm *Heatmap, w, h int) *Heatmap {
	src := image.NewGray16(image.Rect(0, 0, hm.W, hm.H))
	for y := 0; y < hm.H; y++ {
		for x := 0; x < hm.W; x++ {
			src.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(clamp01(hm.At(x, y)) * 0xffff))})
		}
	}
	dst := resize.Resize(uint(w), uint(h), src, resize.Bilinear)
	b := dst.Bounds()
	out := &Heatmap{W: w, H: h, Values: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.Gray16Model.Convert(dst.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			out.Values[y*w+x] = float64(g.Y) / 0xffff
		}
	}
	return out
}

// ColorizeJet maps v in [0,1] to the jet colormap (blue, cyan, yellow, red).
// v is quantized to 8 bits first, matching a lookup on uint8(255·v).
func ColorizeJet(v float64) color.RGBA {
	t := float64(uint8(255*clamp01(v))) / 255
	channel := func(center float64) uint8 {
		return uint8(math.Round(255 * clamp01(1.5-math.Abs(4*t-center))))
	}
	return color.RGBA{R: channel(3), G: channel(2), B: channel(1), A: 255}
}

// Overlay blends the jet-colored heatmap onto base: 0.6·base + 0.4·heat.
// The heatmap must have the same size as base.
func Overlay(base *image.RGBA, hm *Heatmap) (*image.RGBA, error) {
	b := base.Bounds()
	if b.Dx() != hm.W || b.Dy() != hm.H {
		return nil, fmt.Errorf("gradcam: heatmap %dx%d does not match image %dx%d", hm.W, hm.H, b.Dx(), b.Dy())
	}
	out := image.NewRGBA(image.Rect(0, 0, hm.W, hm.H))
	for y := 0; y < hm.H; y++ {
		for x := 0; x < hm.W; x++ {
			src := base.RGBAAt(b.Min.X+x, b.Min.Y+y)
			jet := ColorizeJet(hm.At(x, y))
			out.SetRGBA(x, y, color.RGBA{
				R: blend(src.R, jet.R),
				G: blend(src.G, jet.G),
				B: blend(src.B, jet.B),
				A: 255,
			})
		}
	}
	return out, nil
}

// EncodeDataURI JPEG-encodes img as a data:image/jpeg;base64 URI.
func EncodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Render computes the class heatmap for act/grad and returns it blended over base.
func Render(base *image.RGBA, act, grad *vision.FeatureMap) (string, error) {
	hm, err := Compute(act, grad)
	if err != nil {
		return "", err
	}
	b := base.Bounds()
	out, err := Overlay(base, Upsample(hm, b.Dx(), b.Dy()))
	if err != nil {
		return "", err
	}
	return EncodeDataURI(out)
}

func blend(base, heat uint8) uint8 {
	v := math.Round(0.6*float64(base) + 0.4*float64(heat))
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
