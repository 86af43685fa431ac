package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/title-scout/internal/media"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <source:id>",
	Short: "Fetch details, cast and artwork for an identifier",
	Example: `  title-scout resolve imdb:0078748
  title-scout resolve tmdb:348 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var episodeCmd = &cobra.Command{
	Use:     "episode <source:id> <season> <episode>",
	Short:   "Fetch one episode of a show",
	Example: `  title-scout episode tvdb:82066 1 2`,
	Args:    cobra.ExactArgs(3),
	RunE:    runEpisode,
}

func init() {
	rootCmd.AddCommand(resolveCmd, episodeCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	id, err := media.ParseIdentifier(args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireProvider(string(id.Source)); err != nil {
		return err
	}

	res, err := a.resolver.Resolve(cmd.Context(), id, locale())
	return exitErr(emitResult(out(cmd), res, err))
}

func runEpisode(cmd *cobra.Command, args []string) error {
	id, err := media.ParseIdentifier(args[0])
	if err != nil {
		return err
	}
	season, err := strconv.Atoi(args[1])
	if err != nil || season < 0 {
		return fmt.Errorf("invalid season %q", args[1])
	}
	episode, err := strconv.Atoi(args[2])
	if err != nil || episode < 1 {
		return fmt.Errorf("invalid episode %q", args[2])
	}
	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireProvider(string(id.Source)); err != nil {
		return err
	}

	res, err := a.resolver.ResolveEpisode(cmd.Context(), id, season, episode, locale())
	return exitErr(emitResult(out(cmd), res, err))
}
