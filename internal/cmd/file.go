package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/title-scout/internal/guess"
	"github.com/Digital-Shane/title-scout/internal/resolve"
)

var (
	fileQuery string
	fileYear  int
	fileGuess bool
)

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Identify and resolve one local media file",
	Long: `Guess the title, year, season and episode from the file name, search for it,
pick the best candidate and resolve it. Technical tags are read with ffprobe
when it is installed.`,
	Example: `  title-scout file "Fringe (2008)/Season 01/Fringe.S01E02.720p.mkv"
  title-scout file Heet.1995.mkv --query heat`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

func init() {
	fileCmd.Flags().StringVarP(&fileQuery, "query", "q", "", "Search text instead of the guessed title")
	fileCmd.Flags().IntVarP(&fileYear, "year", "y", 0, "Release year instead of the guessed one")
	fileCmd.Flags().BoolVar(&fileGuess, "guess", false, "Only print what was guessed from the name")
	rootCmd.AddCommand(fileCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	path := args[0]
	if fileGuess {
		return printGuess(cmd, guess.Parse(path))
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireProvider(providerFlag); err != nil {
		return err
	}

	res, err := a.resolver.ResolveFile(cmd.Context(), resolve.FileRequest{
		Path:     path,
		Locale:   locale(),
		Provider: providerFlag,
		Query:    fileQuery,
		Year:     fileYear,
	})
	if err != nil && resolve.IsMiss(err) && !jsonOutput {
		fmt.Fprintf(out(cmd), "No match for %q. Retry with --query.\n", guess.Parse(path).Title)
	}
	return exitErr(emitResult(out(cmd), res, err))
}

func printGuess(cmd *cobra.Command, g guess.Guess) error {
	if jsonOutput {
		return writeJSON(out(cmd), g)
	}
	t := &table{header: []string{"FIELD", "VALUE"}}
	t.add("title", g.Title)
	if g.Year > 0 {
		t.add("year", fmt.Sprint(g.Year))
	}
	t.add("kind", string(g.Kind))
	if g.IsEpisode() {
		t.add("season", fmt.Sprint(g.Season))
		t.add("episode", fmt.Sprint(g.Episode))
	}
	for _, kv := range [][2]string{{"resolution", g.Resolution}, {"quality", g.Quality}, {"group", g.Group}, {"extension", g.Extension}} {
		if kv[1] != "" {
			t.add(kv[0], kv[1])
		}
	}
	t.write(out(cmd))
	return nil
}
