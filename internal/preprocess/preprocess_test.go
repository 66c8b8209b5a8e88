package preprocess

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPrepare_BlackImageIsZero(t *testing.T) {
	data := encodePNG(t, solid(224, 224, color.RGBA{0, 0, 0, 255}))

	tensor, err := Prepare(data, DefaultWidth, DefaultHeight)
	require.NoError(t, err)

	assert.Equal(t, [4]int64{1, 3, 224, 224}, tensor.Shape)
	require.Len(t, tensor.Data, 3*224*224)
	for i, v := range tensor.Data {
		if v != 0 {
			t.Fatalf("Data[%d] = %f, expected 0", i, v)
		}
	}
}

func TestPrepare_ArbitrarySizesProduceFixedShape(t *testing.T) {
	sizes := []image.Point{{1, 1}, {17, 301}, {640, 480}, {224, 224}, {1000, 10}}

	for _, sz := range sizes {
		img := image.NewRGBA(image.Rect(0, 0, sz.X, sz.Y))
		for y := 0; y < sz.Y; y++ {
			for x := 0; x < sz.X; x++ {
				img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 13), uint8(x + y), 255})
			}
		}

		tensor, err := Prepare(encodePNG(t, img), DefaultWidth, DefaultHeight)
		require.NoError(t, err, "size %v", sz)
		assert.Equal(t, [4]int64{1, 3, 224, 224}, tensor.Shape, "size %v", sz)
		require.Len(t, tensor.Data, 3*224*224)

		for i, v := range tensor.Data {
			if v < 0 || v > 1 {
				t.Fatalf("size %v: Data[%d] = %f out of [0,1]", sz, i, v)
			}
		}
	}
}

func TestPrepare_ChannelFirstLayout(t *testing.T) {
	data := encodePNG(t, solid(32, 32, color.RGBA{255, 0, 0, 255}))

	tensor, err := Prepare(data, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, [4]int64{1, 3, 8, 8}, tensor.Shape)

	for _, v := range tensor.Plane(0) {
		assert.InDelta(t, 1.0, v, 0.01)
	}
	for _, v := range tensor.Plane(1) {
		assert.InDelta(t, 0.0, v, 0.01)
	}
	for _, v := range tensor.Plane(2) {
		assert.InDelta(t, 0.0, v, 0.01)
	}
}

func TestFromImage_PixelPlacement(t *testing.T) {
	// Same-size resize keeps each pixel, so positions can be checked exactly.
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 255, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	img.Set(1, 1, color.RGBA{51, 102, 153, 255})

	tensor, err := FromImage(img, 2, 2)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, tensor.At(0, 0, 0, 0), 0.02)
	assert.InDelta(t, 1.0, tensor.At(0, 1, 0, 1), 0.02)
	assert.InDelta(t, 1.0, tensor.At(0, 2, 1, 0), 0.02)
	assert.Equal(t, tensor.Index(0, 2, 1, 0), 2*4+1*2+0)
}

func TestFromImage_GrayscaleSource(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	tensor, err := FromImage(img, 4, 4)
	require.NoError(t, err)
	for _, v := range tensor.Data {
		assert.InDelta(t, 1.0, v, 0.01)
	}
}

func TestFromImage_TransparentPixelsAreBlack(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
		img.Pix[i+1] = 255
		img.Pix[i+2] = 255
		img.Pix[i+3] = 0
	}

	tensor, err := FromImage(img, 4, 4)
	require.NoError(t, err)
	for _, v := range tensor.Data {
		assert.Equal(t, float32(0), v)
	}
}

func TestPrepare_JPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(50, 80, color.RGBA{128, 128, 128, 255}), nil))

	tensor, err := Prepare(buf.Bytes(), DefaultWidth, DefaultHeight)
	require.NoError(t, err)
	assert.Equal(t, [4]int64{1, 3, 224, 224}, tensor.Shape)
	assert.InDelta(t, 128.0/255.0, tensor.At(0, 0, 100, 100), 0.03)
}

func TestPrepare_EmptyBuffer(t *testing.T) {
	_, err := Prepare(nil, DefaultWidth, DefaultHeight)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = Prepare([]byte{}, DefaultWidth, DefaultHeight)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestPrepare_GarbageBytes(t *testing.T) {
	_, err := Prepare([]byte("definitely not an image"), DefaultWidth, DefaultHeight)
	assert.ErrorIs(t, err, ErrDecode)

	// Truncated PNG header
	data := encodePNG(t, solid(4, 4, color.Black))
	_, err = Prepare(data[:20], DefaultWidth, DefaultHeight)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFromImage_ZeroSizedImage(t *testing.T) {
	_, err := FromImage(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultWidth, DefaultHeight)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestPrepare_InvalidTargetDimensions(t *testing.T) {
	data := encodePNG(t, solid(4, 4, color.Black))

	_, err := Prepare(data, 0, 224)
	assert.ErrorIs(t, err, ErrAllocation)

	_, err = Prepare(data, 1<<20, 1<<20)
	assert.ErrorIs(t, err, ErrAllocation)
}

func TestToRGBA_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 7))
	img.Set(5, 5, color.RGBA{10, 20, 30, 255})

	out := toRGBA(img)
	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	assert.Equal(t, []uint8{10, 20, 30, 255}, out.Pix[0:4])
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h RGBA
// pixels, with no image data after it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // truecolor with alpha

	var buf bytes.Buffer
	buf.Write([]byte("\x89PNG\r\n\x1a\n"))
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecode_RejectsOversizedHeader(t *testing.T) {
	_, err := Decode(pngHeader(40000, 40000))
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "exceeds")

	_, err = Prepare(pngHeader(1<<16, 1<<16), DefaultWidth, DefaultHeight)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecode_HeaderWithinLimitStillNeedsPixels(t *testing.T) {
	_, err := Decode(pngHeader(64, 64))
	require.ErrorIs(t, err, ErrDecode)
	assert.NotContains(t, err.Error(), "exceeds")
}

// withOrientation splices an EXIF APP1 segment carrying the given
// orientation tag right after the JPEG SOI marker.
func withOrientation(jpg []byte, orientation uint16) []byte {
	app1 := []byte{
		0xff, 0xe1, 0x00, 0x22,
		'E', 'x', 'i', 'f', 0x00, 0x00,
		'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	binary.BigEndian.PutUint16(app1[28:30], orientation)

	out := append([]byte{}, jpg[:2]...)
	out = append(out, app1...)
	return append(out, jpg[2:]...)
}

// redBlueJPEG is 32x16: red on the left half, blue on the right.
func redBlueJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			if x < 16 {
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 255, 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func TestPrepare_AppliesEXIFOrientation(t *testing.T) {
	plain := redBlueJPEG(t)

	upright, err := Prepare(plain, 8, 8)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, upright.At(0, 0, 4, 0), 0.15, "red on the left without EXIF")
	assert.InDelta(t, 1.0, upright.At(0, 2, 4, 7), 0.15, "blue on the right without EXIF")

	img, err := Decode(withOrientation(plain, 6))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 32), img.Bounds(), "orientation 6 swaps width and height")

	// Orientation 6 rotates 90 degrees clockwise: left half goes to the top.
	rotated, err := Prepare(withOrientation(plain, 6), 8, 8)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rotated.At(0, 0, 0, 4), 0.15, "red at the top")
	assert.InDelta(t, 0.0, rotated.At(0, 2, 0, 4), 0.15)
	assert.InDelta(t, 1.0, rotated.At(0, 2, 7, 4), 0.15, "blue at the bottom")
	assert.InDelta(t, 0.0, rotated.At(0, 0, 7, 4), 0.15)
}

func TestPrepare_BMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, solid(30, 20, color.RGBA{0, 255, 0, 255})))

	tensor, err := Prepare(buf.Bytes(), DefaultWidth, DefaultHeight)
	require.NoError(t, err)
	assert.Equal(t, [4]int64{1, 3, 224, 224}, tensor.Shape)
	assert.InDelta(t, 0.0, tensor.At(0, 0, 50, 50), 0.01)
	assert.InDelta(t, 1.0, tensor.At(0, 1, 50, 50), 0.01)
	assert.InDelta(t, 0.0, tensor.At(0, 2, 50, 50), 0.01)
}
