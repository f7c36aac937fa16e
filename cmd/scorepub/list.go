package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scorepub/internal/config"
	"scorepub/internal/daemonctl"
	"scorepub/internal/queue"
)

func axisLabel(axis queue.Axis) string {
	return cases.Title(language.Und).String(string(axis))
}

func runQuery(cmd *cobra.Command, cfg *config.Config, axis queue.Axis) error {
	status, err := daemonctl.Query(cfg, axis)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !status.Running {
		fmt.Fprintf(out, "%s publisher not running\n", axisLabel(axis))
		return nil
	}
	fmt.Fprintf(out, "%s publisher running (pid %d, lock %s)\n", axisLabel(axis), status.PID, status.Path)
	return &codeError{code: exitLockConflict}
}

func runList(cmd *cobra.Command, cfg *config.Config, axis queue.Axis) error {
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	summaries, err := store.Summary(cmd.Context(), axis, cfg.Queue.MaxAttempts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintf(out, "No pending %s requests\n", axis)
		return nil
	}

	rows := make([][]string, 0, len(summaries))
	total := 0
	for _, s := range summaries {
		activities := make([]string, len(s.Activities))
		for i, a := range s.Activities {
			activities[i] = string(a)
		}
		state := "pending"
		if s.Stalled {
			state = "stalled"
		}
		rows = append(rows, []string{
			s.Entity,
			strconv.Itoa(s.Pending),
			strings.Join(activities, ", "),
			strconv.Itoa(s.MaxAttempts),
			strconv.Itoa(s.Failures),
			formatAge(cmd, s.Oldest),
			state,
		})
		total += s.Pending
	}
	headers := []string{axisLabel(axis), "Pending", "Activities", "Attempts", "Failures", "Oldest", "State"}
	aligns := []columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
	fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
	if isTerminal(out) {
		fmt.Fprintf(out, "%d pending across %d entities\n", total, len(summaries))
	}
	return nil
}

func formatAge(cmd *cobra.Command, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if !isTerminal(cmd.OutOrStdout()) {
		return t.UTC().Format(time.RFC3339)
	}
	return time.Since(t).Round(time.Second).String() + " ago"
}
