package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"
	"github.com/spf13/cobra"

	"github.com/stuartleeks/home-dash/epaper-dash/appinsightsutils"
	"github.com/stuartleeks/home-dash/epaper-dash/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	Long:  `Serve the dashboard as a PNG on /img and as a packed monochrome stream on /raw.`,
	RunE:  runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "address to listen on")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Server starting...[%d]\n", os.Getpid())

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	address := net.JoinHostPort(serveHost, strconv.Itoa(servePort))
	if err := serveAPI(cmd.Context(), address, a.telemetry, NewApiRouter(a.pipeline)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	fmt.Println("Server stopped!")
	return nil
}

func serveAPI(ctx context.Context, address string, appInsightsClient appinsights.TelemetryClient, api *ApiRouter) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	log.Printf("listening on %s", l.Addr())

	mux := appinsightsutils.NewServeMuxWithTrace(appInsightsClient)
	registerHandlers(mux, api)
	server := &http.Server{
		Addr:    address,
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		log.Printf("shutting down")
		_ = server.Shutdown(context.Background())
	}()
	return server.Serve(l)
}

func registerHandlers(mux *appinsightsutils.ServeMuxWithTrace, api *ApiRouter) {
	mux.HandleFuncWithContext("GET /img", api.ImageGet)
	mux.HandleFuncWithContext("GET /raw", api.RawGet)
}
