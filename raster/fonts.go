package raster

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

type fontKey struct {
	family string
	bold   bool
}

// FontSet maps font-family names to parsed TrueType fonts. It is read-only once
// loaded and safe to share; faces are created per render since they are not.
type FontSet struct {
	fonts   map[fontKey]*truetype.Font
	regular *truetype.Font
	bold    *truetype.Font
}

// NewFontSet returns a set holding only the Go fonts used as fallbacks.
func NewFontSet() (*FontSet, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fallback font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fallback font: %w", err)
	}
	return &FontSet{
		fonts:   make(map[fontKey]*truetype.Font),
		regular: regular,
		bold:    bold,
	}, nil
}

// LoadFontSet adds every .ttf file in dir to the fallback set. An empty dir
// loads the fallbacks only.
func LoadFontSet(dir string) (*FontSet, error) {
	fs, err := NewFontSet()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return fs, nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.ttf"))
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to load font: %w", err)
		}
		family, err := fs.Add(b)
		if err != nil {
			return nil, fmt.Errorf("failed to load font (%q): %w", p, err)
		}
		log.Printf("loaded font %q from %s", family, p)
	}
	return fs, nil
}

// Add parses a TrueType font and indexes it by family and weight. It returns the
// family name.
func (fs *FontSet) Add(ttf []byte) (string, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return "", err
	}
	family := strings.TrimSpace(f.Name(truetype.NameIDFontFamily))
	if family == "" {
		return "", fmt.Errorf("font has no family name")
	}
	subfamily := strings.ToLower(f.Name(truetype.NameIDFontSubfamily))
	bold := strings.Contains(subfamily, "bold")

	fs.fonts[fontKey{strings.ToLower(family), bold}] = f
	// some families ship their bold cut as a separate family, "X Bold"
	if base, ok := strings.CutSuffix(strings.ToLower(family), " bold"); ok {
		key := fontKey{base, true}
		if _, exists := fs.fonts[key]; !exists {
			fs.fonts[key] = f
		}
	}
	return family, nil
}

// Resolve picks the first listed family that is loaded, preferring the requested
// weight, and falls back to the Go fonts.
func (fs *FontSet) Resolve(families []string, bold bool) *truetype.Font {
	for _, family := range families {
		family = strings.ToLower(family)
		if f, ok := fs.fonts[fontKey{family, bold}]; ok {
			return f
		}
		if f, ok := fs.fonts[fontKey{family, !bold}]; ok {
			return f
		}
	}
	if bold {
		return fs.bold
	}
	return fs.regular
}

type faceKey struct {
	font *truetype.Font
	size float64
}

// faceCache holds the faces of a single render.
type faceCache map[faceKey]font.Face

func (c faceCache) face(f *truetype.Font, size float64) font.Face {
	key := faceKey{f, size}
	if face, ok := c[key]; ok {
		return face
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size})
	c[key] = face
	return face
}

func (c faceCache) close() {
	for _, face := range c {
		_ = face.Close()
	}
}
