// Package dashboard turns the forecast and bus arrivals into a rendered dashboard.
package dashboard

import (
	_ "embed"
	"fmt"
	"log"
	"os"

	"github.com/stuartleeks/home-dash/epaper-dash/raster"
)

//go:embed template.svg
var defaultTemplate []byte

// Resources are loaded once at startup and shared, read-only, by every render.
type Resources struct {
	Template []byte
	Fonts    *raster.FontSet
}

// LoadResources reads the template and fonts. An empty templatePath selects the
// built-in template; an empty fontsDir leaves only the fallback fonts.
func LoadResources(templatePath, fontsDir string) (*Resources, error) {
	template := defaultTemplate
	if templatePath != "" {
		b, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load template: %w", err)
		}
		template = b
		log.Printf("Template path: %s", templatePath)
	}
	fonts, err := raster.LoadFontSet(fontsDir)
	if err != nil {
		return nil, err
	}
	return &Resources{Template: template, Fonts: fonts}, nil
}
