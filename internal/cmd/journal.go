package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/title-scout/internal/log"
)

var (
	journalLimit   int
	journalEntries bool
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recent batch journals",
	Long: `Show the journals written by batch runs when enable_journal is set in the
configuration. Each journal records what every file resolved to.`,
	Args: cobra.NoArgs,
	RunE: runJournal,
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 10, "Number of runs to show")
	journalCmd.Flags().BoolVarP(&journalEntries, "entries", "e", false, "Also list each file of the runs")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sessions, err := log.ReadSessions(cfg.JournalDir(), journalLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out(cmd), sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out(cmd), "No journals.")
		return nil
	}

	t := &table{header: []string{"WHEN", "COMMAND", "TOTAL", "RESOLVED", "FAILED"}}
	for _, s := range sessions {
		m := s.Metadata
		t.add(m.Timestamp.Format("2006-01-02 15:04"), strings.Join(m.CommandArgs, " "),
			strconv.Itoa(m.Total), strconv.Itoa(m.Resolved), strconv.Itoa(m.Failed))
	}
	t.write(out(cmd))

	if !journalEntries {
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(out(cmd), "\n%s\n", s.Metadata.Timestamp.Format("2006-01-02 15:04:05"))
		et := &table{header: []string{"OUTCOME", "ID", "INPUT", "TITLE"}}
		for _, e := range s.Entries {
			title := e.Title
			if e.Error != "" {
				title = e.Error
			}
			et.add(string(e.Outcome), e.Identifier, e.Input, title)
		}
		et.write(out(cmd))
	}
	return nil
}
