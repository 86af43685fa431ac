package cmd

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/title-scout/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers, their capabilities and what they are missing",
	Args:  cobra.NoArgs,
	RunE:  runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

type providerStatus struct {
	Name         string   `json:"name"`
	Enabled      bool     `json:"enabled"`
	Rank         int      `json:"rank,omitempty"`
	Kinds        []string `json:"kinds,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Missing      string   `json:"missing,omitempty"`
}

func runProviders(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	var rows []providerStatus
	for i, name := range a.registry.List() {
		p, _ := a.registry.Get(name)
		st := providerStatus{
			Name:         name,
			Enabled:      a.registry.IsEnabled(name),
			Rank:         i + 1,
			Capabilities: provider.Capabilities(p),
		}
		for _, k := range p.Kinds() {
			st.Kinds = append(st.Kinds, string(k))
		}
		rows = append(rows, st)
	}
	skipped := make([]string, 0, len(a.skipped))
	for name := range a.skipped {
		skipped = append(skipped, name)
	}
	sort.Strings(skipped)
	for _, name := range skipped {
		rows = append(rows, providerStatus{Name: name, Missing: a.skipped[name].Error()})
	}

	if jsonOutput {
		return writeJSON(out(cmd), rows)
	}
	t := &table{header: []string{"RANK", "PROVIDER", "KINDS", "CAPABILITIES", "STATUS"}}
	for _, r := range rows {
		rank, status := "", "enabled"
		if r.Rank > 0 {
			rank = strconv.Itoa(r.Rank)
		}
		switch {
		case r.Missing != "":
			status = r.Missing
		case !r.Enabled:
			status = "disabled"
		}
		t.add(rank, r.Name, strings.Join(r.Kinds, ","), strings.Join(r.Capabilities, ","), status)
	}
	t.write(out(cmd))
	return nil
}
