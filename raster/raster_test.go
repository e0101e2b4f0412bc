package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
	"github.com/stuartleeks/home-dash/epaper-dash/scene"
)

func render(t *testing.T, svg string) *image.RGBA {
	t.Helper()
	doc, err := scene.Parse([]byte(svg))
	require.NoError(t, err)
	fonts, err := NewFontSet()
	require.NoError(t, err)
	dc, err := Rasterize(doc, fonts)
	require.NoError(t, err)
	return dc.Image().(*image.RGBA)
}

func countOn(img *image.RGBA) int {
	n := 0
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			c := img.RGBAAt(x, y)
			if c.R|c.G|c.B != 0 {
				n++
			}
		}
	}
	return n
}

func TestRasterizeFillsShapes(t *testing.T) {
	img := render(t, `<svg width="16" height="8">
		<g transform="translate(4 0)"><rect width="4" height="8" fill="#fff"/></g>
	</svg>`)

	assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, img.RGBAAt(5, 4))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(1, 4))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(12, 4))
}

func TestRasterizeViewBoxScales(t *testing.T) {
	img := render(t, `<svg width="16" height="8" viewBox="0 0 8 4">
		<rect x="4" width="4" height="4" fill="white"/>
	</svg>`)

	assert.Equal(t, uint8(0xff), img.RGBAAt(10, 6).R)
	assert.Equal(t, uint8(0), img.RGBAAt(6, 6).R)
}

func TestRasterizeOpacity(t *testing.T) {
	img := render(t, `<svg width="16" height="8">
		<g opacity="0"><rect width="8" height="8" fill="white"/></g>
		<g opacity="0.5"><rect x="8" width="8" height="8" fill="white"/></g>
	</svg>`)

	assert.Equal(t, color.RGBA{}, img.RGBAAt(3, 3))
	assert.InDelta(t, 128, int(img.RGBAAt(12, 3).R), 2)
	assert.InDelta(t, 128, int(img.RGBAAt(12, 3).A), 2)
}

func TestRasterizeDegenerateTransformDrawsNothing(t *testing.T) {
	img := render(t, `<svg width="16" height="8">
		<g transform="matrix(1 0 0 0 0 8)"><rect y="-8" width="16" height="8" fill="white"/></g>
	</svg>`)

	assert.Zero(t, countOn(img))
}

func TestRasterizeScaledBar(t *testing.T) {
	img := render(t, `<svg width="8" height="100">
		<g transform="matrix(1 0 0 0.25 0 100)"><rect y="-100" width="8" height="100" fill="white"/></g>
	</svg>`)

	assert.Equal(t, uint8(0xff), img.RGBAAt(4, 90).R)
	assert.Equal(t, uint8(0), img.RGBAAt(4, 60).R)
}

func TestRasterizeText(t *testing.T) {
	img := render(t, `<svg width="64" height="32">
		<text x="32" y="26" font-size="24" fill="white" text-anchor="middle">WW</text>
	</svg>`)
	assert.NotZero(t, countOn(img))

	hidden := render(t, `<svg width="64" height="32">
		<g opacity="0"><text x="2" y="26" font-size="24" fill="white">WW</text></g>
	</svg>`)
	assert.Zero(t, countOn(hidden))
}

func TestFontSetResolve(t *testing.T) {
	fs, err := NewFontSet()
	require.NoError(t, err)

	family, err := fs.Add(gobold.TTF)
	require.NoError(t, err)
	require.NotEmpty(t, family)

	added := fs.Resolve([]string{"Missing", family}, true)
	assert.NotSame(t, fs.bold, added)
	// only the bold cut is loaded, so it also serves the regular weight
	assert.Same(t, added, fs.Resolve([]string{family}, false))
	assert.Same(t, fs.regular, fs.Resolve([]string{"sans-serif"}, false))
	assert.Same(t, fs.bold, fs.Resolve(nil, true))
}

func TestLoadFontSetEmptyDir(t *testing.T) {
	fs, err := LoadFontSet(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, fs.fonts)
}

func TestPackMonochromeBitOrder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 2))
	img.Set(0, 0, color.White)
	img.Set(3, 0, color.RGBA{R: 1, A: 0xff})
	img.Set(7, 1, color.RGBA{B: 0x80, A: 0xff})
	// alpha alone does not switch a pixel on
	img.Set(5, 0, color.RGBA{A: 0xff})

	packed, err := PackMonochrome(img)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x09, 0x80}, packed)
}

func TestPackMonochromeGenericImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 1))
	img.SetGray(1, 0, color.Gray{Y: 0xff})

	packed, err := PackMonochrome(img)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, packed)
}

func TestPackMonochromeDimensionMismatch(t *testing.T) {
	_, err := PackMonochrome(image.NewRGBA(image.Rect(0, 0, 3, 3)))

	var dimErr *dasherr.DimensionMismatchError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 9, dimErr.Pixels)
}

func TestPackUnpackRoundTrip(t *testing.T) {
	img := render(t, `<svg width="800" height="480">
		<rect width="800" height="480" fill="white"/>
		<rect x="100" y="100" width="200" height="50" fill="black"/>
		<text x="400" y="300" font-size="48">4:07 pm</text>
	</svg>`)

	packed, err := PackMonochrome(img)
	require.NoError(t, err)
	require.Len(t, packed, 800*480/8)

	want := make([]bool, 800*480)
	for i := range want {
		c := img.RGBAAt(i%800, i/800)
		want[i] = c.R|c.G|c.B != 0
	}
	assert.Equal(t, want, UnpackMonochrome(packed, 800*480))
}

func TestEncodePNGIsLossless(t *testing.T) {
	img := render(t, `<svg width="16" height="8"><rect width="5" height="8" fill="#808080"/></svg>`)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			r1, g1, b1, a1 := img.At(x, y).RGBA()
			r2, g2, b2, a2 := decoded.At(x, y).RGBA()
			require.Equal(t, []uint32{r1, g1, b1, a1}, []uint32{r2, g2, b2, a2})
		}
	}
}
