package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/title-scout/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search and resolution over HTTP",
	Long: `Start an HTTP server exposing the resolver.

Routes:
  GET  /search?q=&year=&kind=&locale=&provider=&limit=
  GET  /resolve/{source}/{id}?locale=
  GET  /episode/{source}/{id}?season=&episode=&locale=
  GET  /subtitles?q=&kind=&locale=&provider=
  GET  /providers
  POST /cache/clear/{scope}
  GET  /metrics
  GET  /healthz`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.ServeAddr
	}
	for name, err := range a.skipped {
		a.log.WithField("provider", name).WithError(err).Info("provider disabled")
	}
	srv := server.New(a.resolver,
		server.WithCache(a.cache),
		server.WithLogger(a.log),
		server.WithMetrics(a.cfg.Metrics),
	)
	return srv.ListenAndServe(cmd.Context(), addr)
}
