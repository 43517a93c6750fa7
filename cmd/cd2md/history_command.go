package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cd2md/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past rip runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunTable(runs, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func renderRunTable(runs []history.Run, now time.Time) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		title := r.DiscTitle
		if strings.TrimSpace(title) == "" {
			title = "<untitled>"
		}
		rows = append(rows, []string{
			shortID(r.ID),
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			r.DiscID,
			title,
			fmt.Sprintf("%d/%d", r.Transferred, r.TrackCount),
			string(r.Status),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Disc ID", "Title", "Sent", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Show one run and its tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tracks, err := store.Tracks(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, map[string]any{"run": run, "tracks": tracks})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRunDetail(run, tracks, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func renderRunDetail(run history.Run, tracks []history.TrackRecord, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Run "+run.ID, colorize) {
		b.WriteString(line + "\n")
	}
	b.WriteString(renderStatusLine("Status", runStatusKind(run.Status), string(run.Status), colorize) + "\n")
	b.WriteString(renderStatusLine("Disc", statusInfo, fmt.Sprintf("%s (%s)", run.DiscTitle, run.DiscID), colorize) + "\n")
	modes := "transfer " + run.TransferMode
	if run.ExternalMode != "" && run.ExternalMode != "no" {
		modes += ", atracdenc " + run.ExternalMode
	}
	if run.Append {
		modes += ", append"
	}
	b.WriteString(renderStatusLine("Modes", statusInfo, modes, colorize) + "\n")
	b.WriteString(renderStatusLine("Started", statusInfo, run.StartedAt.Local().Format(time.DateTime), colorize) + "\n")
	if !run.FinishedAt.IsZero() {
		b.WriteString(renderStatusLine("Duration", statusInfo, run.Duration().Round(time.Second).String(), colorize) + "\n")
	}
	if run.ErrorMessage != "" {
		b.WriteString(renderStatusLine("Error", statusError, run.ErrorMessage, colorize) + "\n")
	}

	if len(tracks) > 0 {
		rows := make([][]string, 0, len(tracks))
		for _, t := range tracks {
			rows = append(rows, []string{
				strconv.Itoa(t.Ordinal),
				t.Title,
				yesNo(t.Extracted),
				yesNo(t.Encoded),
				yesNo(t.Transferred),
				strings.TrimSpace(t.FailedStage + " " + t.ErrorMessage),
			})
		}
		b.WriteString(renderTable(
			[]string{"#", "Title", "Ripped", "Encoded", "Sent", "Failure"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		))
		b.WriteString("\n")
	}
	return b.String()
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "Age threshold")
	return cmd
}
