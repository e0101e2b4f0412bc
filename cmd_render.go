package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/stuartleeks/home-dash/epaper-dash/config"
	"github.com/stuartleeks/home-dash/epaper-dash/dashboard"
)

const (
	defaultPNGOut = "data/test.png"
	defaultRawOut = "data/test.raw"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the dashboard to a file",
	Long: `Render the dashboard once to a file, or keep re-rendering it on a schedule with --every
until interrupted.`,
	RunE: runRender,
}

var (
	renderOut   string
	renderRaw   bool
	renderEvery time.Duration
)

func init() {
	renderCmd.Flags().StringVar(&renderOut, "out", defaultPNGOut, "output path ("+defaultRawOut+" with --raw)")
	renderCmd.Flags().BoolVar(&renderRaw, "raw", false, "write the packed monochrome stream instead of a PNG")
	renderCmd.Flags().DurationVar(&renderEvery, "every", 0, "re-render on this interval")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	format := dashboard.FormatPNG
	out := renderOut
	if renderRaw {
		format = dashboard.FormatRaw
		if !cmd.Flags().Changed("out") {
			out = defaultRawOut
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if renderEvery <= 0 {
		return renderToFile(cmd.Context(), a.pipeline, format, out)
	}
	return renderOnSchedule(cmd.Context(), a.pipeline, format, out, renderEvery)
}

func renderToFile(ctx context.Context, renderer Renderer, format, path string) error {
	output, err := renderer.Render(ctx, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, output.Body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("wrote %s (render %s)", path, output.ID)
	return nil
}

// renderOnSchedule renders immediately and then every interval until ctx is done.
// A failed render is logged and the schedule carries on.
func renderOnSchedule(ctx context.Context, renderer Renderer, format, path string, every time.Duration) error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(every).Do(func() {
		if err := renderToFile(ctx, renderer, format, path); err != nil {
			log.Printf("render failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule render: %w", err)
	}

	log.Printf("rendering every %s", every)
	s.StartAsync()
	<-ctx.Done()
	s.Stop()
	return nil
}
