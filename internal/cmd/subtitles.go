package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var subtitlesKind string

var subtitlesCmd = &cobra.Command{
	Use:     "subtitles <release name>",
	Short:   "List subtitles for a release",
	Example: `  title-scout subtitles "The Matrix 1999" -l fr`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSubtitles,
}

func init() {
	subtitlesCmd.Flags().StringVarP(&subtitlesKind, "kind", "k", "movie", "Kind: movie or episode")
	rootCmd.AddCommand(subtitlesCmd)
}

func runSubtitles(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(subtitlesKind)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	name := providerFlag
	if name == "" {
		name = a.cfg.Providers.Subtitle
		if _, ok := a.registry.Get(name); !ok {
			name = ""
		}
	}
	if err := a.requireProvider(name); err != nil {
		return err
	}

	subs, err := a.resolver.Subtitles(cmd.Context(), name, kind, strings.Join(args, " "), locale())
	if err != nil {
		return exitErr(err)
	}
	if jsonOutput {
		return writeJSON(out(cmd), subs)
	}
	if len(subs) == 0 {
		fmt.Fprintln(out(cmd), "No subtitles.")
		return nil
	}
	t := &table{header: []string{"LANGUAGE", "RELEASE", "URL"}}
	for _, s := range subs {
		release := s.Release
		if release == "" {
			release = s.Name
		}
		t.add(s.Language, release, s.URL)
	}
	t.write(out(cmd))
	return nil
}
