package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/title-scout/internal/resolve"
	"github.com/Digital-Shane/title-scout/internal/server"
)

var (
	searchYear  int
	searchKind  string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <title>",
	Short: "Search a provider for a title",
	Long: `Search one provider for a title and list the candidates.

With --year, candidates are ordered by how close their release year is.`,
	Example: `  title-scout search "the thing" --year 1982
  title-scout search "il était une fois dans l'ouest" -p allocine -l fr`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchYear, "year", "y", 0, "Expected release year")
	searchCmd.Flags().StringVarP(&searchKind, "kind", "k", "movie", "Kind to search: movie or tvshow")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum results, negative for all (default from config)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(searchKind)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireProvider(providerFlag); err != nil {
		return err
	}

	cs, err := a.resolver.Search(cmd.Context(), resolve.Query{
		Text:     strings.Join(args, " "),
		Year:     searchYear,
		Kind:     kind,
		Locale:   locale(),
		Provider: providerFlag,
		Limit:    searchLimit,
	})
	if err != nil {
		return exitErr(err)
	}
	if jsonOutput {
		return writeJSON(out(cmd), server.NewCandidateViews(cs))
	}
	printCandidates(out(cmd), cs)
	return nil
}
