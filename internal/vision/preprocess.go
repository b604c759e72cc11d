package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"xinsight/internal/common/errs"
)

// Decode decodes an uploaded image (JPEG, PNG, GIF, BMP, TIFF or WebP).
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errs.ErrInvalidInput("empty image upload")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", errs.ErrInvalidInput(err.Error()))
	}
	return img, format, nil
}

// Preprocess converts img to RGB, resizes it to size×size and scales every
// channel to [0,1]. It returns the batch-of-one tensor in the requested layout
// and the resized RGB image that overlays are drawn on.
func Preprocess(img image.Image, size int, layout string) ([]float32, *image.RGBA, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("preprocess: invalid size %d", size)
	}
	resized := resize.Resize(uint(size), uint(size), img, resize.Bicubic)
	rgb := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(rgb, rgb.Bounds(), resized, resized.Bounds().Min, draw.Src)

	plane := size * size
	tensor := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			o := rgb.PixOffset(x, y)
			r := float32(rgb.Pix[o]) / 255
			g := float32(rgb.Pix[o+1]) / 255
			b := float32(rgb.Pix[o+2]) / 255
			i := y*size + x
			if layout == LayoutNCHW {
				tensor[i] = r
				tensor[plane+i] = g
				tensor[2*plane+i] = b
			} else {
				tensor[3*i] = r
				tensor[3*i+1] = g
				tensor[3*i+2] = b
			}
		}
	}
	return tensor, rgb, nil
}
