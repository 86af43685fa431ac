package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "title-scout",
	Short: "Resolve media metadata from online providers",
	Long: `title-scout looks up titles, cast, artwork and subtitles for movies and TV
episodes across IMDb, TMDb, TVDB, OMDb, Allocine, fanart.tv and Subscene.

Local files are identified from their names, searched, matched and resolved.
Raw provider responses are cached so repeated lookups stay offline.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Interrupts cancel the running command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var (
	configPath   string
	localeFlag   string
	providerFlag string
	logLevel     string
	jsonOutput   bool
	cacheBackend string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default ~/.title-scout/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&localeFlag, "locale", "l", "", "Preferred result language, e.g. fr or pt-BR")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "Provider to search, default is the highest priority one")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&cacheBackend, "cache", "", "Cache backend override: file, sqlite, redis or memory")
}

// out is where command results are written.
func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
