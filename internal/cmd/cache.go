package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/title-scout/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [scope]",
	Short: "Remove cached responses",
	Long: `Remove cached responses from memory and the persistent store.

The scope is "all" (default) or one cache category such as documents or
records.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: scopeNames(),
	RunE:      runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func scopeNames() []string {
	names := []string{string(cache.ScopeAll)}
	for _, c := range cache.Categories {
		names = append(names, string(c))
	}
	return names
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	scopeArg := ""
	if len(args) == 1 {
		scopeArg = args[0]
	}
	scope, err := cache.ParseScope(scopeArg)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.cache.Clear(cmd.Context(), scope)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	if jsonOutput {
		return writeJSON(out(cmd), map[string]any{"scope": string(scope), "removed": removed})
	}
	fmt.Fprintf(out(cmd), "Removed %d cached entries (%s)\n", removed, scope)
	return nil
}
