package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"thawmark/internal/manifest"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show manifest progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := isatty.IsTerminal(os.Stdout.Fd())

			titler := cases.Title(language.Und)
			summaryRows := make([][]string, 0, 4)
			for _, status := range manifest.AllStatuses() {
				count := 0
				switch status {
				case manifest.StatusUnassigned:
					count = health.Unassigned
				case manifest.StatusInProgress:
					count = health.InProgress
				case manifest.StatusCompleted:
					count = health.Completed
				case manifest.StatusSkipped:
					count = health.Skipped
				}
				label := titler.String(strings.ReplaceAll(string(status), "_", " "))
				summaryRows = append(summaryRows, []string{label, strconv.Itoa(count)})
			}
			fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, summaryRows, 2))

			done := health.Completed + health.Skipped
			progress := fmt.Sprintf("%d/%d entries finished", done, health.Total)
			if colorize {
				color := ansiYellow
				if health.Total > 0 && done == health.Total {
					color = ansiGreen
				}
				progress = color + progress + ansiReset
			}
			fmt.Fprintln(out, progress)

			if !showAll {
				return nil
			}

			entries, err := store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.UID,
					string(entry.Status),
					entry.Assignee,
					claimAge(entry),
					entry.OutputFile,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"UID", "Status", "Assignee", "Claim Age", "Artifact"},
				rows, 4))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "List every manifest entry")
	return cmd
}

func claimAge(entry *manifest.Entry) string {
	if entry.Status != manifest.StatusInProgress || entry.ClaimedAt == nil {
		return ""
	}
	age := time.Since(*entry.ClaimedAt).Round(time.Minute)
	if age < 0 {
		age = 0
	}
	return age.String()
}
