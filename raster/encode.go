package raster

import (
	"image"
	"image/png"
	"io"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
)

// EncodePNG writes img losslessly.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// PackMonochrome packs img into one bit per pixel, row-major. A pixel is on when any
// colour channel is non-zero. Pixel i lands in byte i/8 at bit i%8, least significant
// bit first; the display client reverses each byte.
func PackMonochrome(img image.Image) ([]byte, error) {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n%8 != 0 {
		return nil, &dasherr.DimensionMismatchError{Pixels: n}
	}
	out := make([]byte, n/8)

	if rgba, ok := img.(*image.RGBA); ok {
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				p := row[x*4 : x*4+3]
				if p[0]|p[1]|p[2] != 0 {
					out[i/8] |= 1 << (i % 8)
				}
				i++
			}
		}
		return out, nil
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r|g|bl != 0 {
				out[i/8] |= 1 << (i % 8)
			}
			i++
		}
	}
	return out, nil
}

// UnpackMonochrome expands the first n pixels of a packed buffer.
func UnpackMonochrome(packed []byte, n int) []bool {
	pixels := make([]bool, n)
	for i := range pixels {
		if i/8 >= len(packed) {
			break
		}
		pixels[i] = packed[i/8]&(1<<(i%8)) != 0
	}
	return pixels
}
