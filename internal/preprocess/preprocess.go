// Package preprocess turns encoded face images into model input tensors.
//
// The pipeline is decode, stretch-resize, RGBA normalization and a
// channel-first float32 pack with values in [0,1].
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	// Format registrations used by image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultWidth and DefaultHeight are the model input resolution.
	DefaultWidth  = 224
	DefaultHeight = 224

	// Channels is the number of color planes packed into a tensor (R, G, B).
	Channels = 3

	// maxElements caps a single tensor allocation.
	maxElements = 1 << 28

	// MaxDecodePixels caps the declared width*height of an input image.
	// The header is checked before any pixel buffer is allocated.
	MaxDecodePixels = 1 << 26
)

var (
	// ErrDecode is returned when the input bytes are not a usable image.
	ErrDecode = errors.New("invalid image")

	// ErrAllocation is returned when the output tensor cannot be built.
	ErrAllocation = errors.New("tensor allocation failed")
)

// Decode parses encoded image bytes, applying any EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: zero-sized image", ErrDecode)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxDecodePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, MaxDecodePixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: zero-sized image", ErrDecode)
	}

	return img, nil
}

// Prepare decodes data and packs it into a [1, 3, height, width] tensor.
func Prepare(data []byte, width, height uint) (*Tensor, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return FromImage(img, width, height)
}

// FromImage resizes img to exactly width x height (no aspect preservation)
// and packs its RGB channels into a channel-first tensor.
func FromImage(img image.Image, width, height uint) (*Tensor, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: zero-sized image", ErrDecode)
	}

	t, err := NewTensor(width, height)
	if err != nil {
		return nil, err
	}

	resized := resize.Resize(width, height, img, resize.Lanczos3)
	rgba := toRGBA(resized)

	w, h := int(width), int(height)
	plane := w * h
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+4]
			idx := y*w + x
			t.Data[idx] = float32(px[0]) / 255.0
			t.Data[plane+idx] = float32(px[1]) / 255.0
			t.Data[2*plane+idx] = float32(px[2]) / 255.0
		}
	}

	return t, nil
}

// toRGBA returns img as premultiplied 8-bit RGBA anchored at the origin.
// Transparent pixels end up composited onto black.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// NewTensor allocates a zeroed [1, 3, height, width] tensor.
func NewTensor(width, height uint) (*Tensor, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrAllocation, width, height)
	}
	if uint64(width)*uint64(height) > maxElements/Channels || width > math.MaxInt32 || height > math.MaxInt32 {
		return nil, fmt.Errorf("%w: dimensions %dx%d too large", ErrAllocation, width, height)
	}

	return &Tensor{
		Shape: [4]int64{1, Channels, int64(height), int64(width)},
		Data:  make([]float32, Channels*int(width)*int(height)),
	}, nil
}
