package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
)

var (
	statusColors = map[exam.Status]*color.Color{
		exam.StatusInProgress: color.New(color.FgYellow),
		exam.StatusSubmitted:  color.New(color.FgGreen),
		exam.StatusKickedOut:  color.New(color.FgRed, color.Bold),
	}
	headerColor  = color.New(color.Bold, color.Underline)
	flaggedColor = color.New(color.FgRed)
)

func (cli *commandLine) overviewCmd() *cobra.Command {
	var (
		examID   string
		ordering string
		watch    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Print the proctor overview of an exam",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := cli.service(cmd.Context())
			if err != nil {
				return err
			}
			return watchOverview(cmd.Context(), cmd.OutOrStdout(), svc, examID, parseOrdering(ordering), watch)
		},
	}
	cmd.Flags().StringVar(&examID, "exam", "", "the exam ID")
	cmd.Flags().StringVar(&ordering, "ordering", "", "comma separated roster fields, '-' prefixed for descending order")
	cmd.Flags().DurationVar(&watch, "watch", 0, "refresh interval; 0 prints once")
	_ = cmd.MarkFlagRequired("exam")
	return cmd
}

// watchOverview prints the overview, then every interval until ctx is done.
func watchOverview(ctx context.Context, out io.Writer, svc *exam.Service, examID string, ordering []core.DBOrdering, interval time.Duration) error {
	show := func() error {
		ov, err := svc.GetAttemptOverview(ctx, examID, ordering)
		if err != nil {
			return err
		}
		printOverview(out, ov)
		return nil
	}
	if err := show(); err != nil || interval <= 0 {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := show(); err != nil {
				return err
			}
		}
	}
}

func printOverview(out io.Writer, ov exam.Overview) {
	fmt.Fprintf(out, "Exam %s: %d started, %d completed, %d flagged, average %.2f%%\n\n",
		ov.ExamID, ov.Stats.Started, ov.Stats.Completed, ov.Stats.Flagged, ov.Stats.AvgScore)

	fmt.Fprintln(out, headerColor.Sprintf("%-24s %-3s %-12s %-10s %-8s %-8s", "STUDENT", "#", "STATUS", "VIOLATIONS", "SCORE", "STARTED"))
	for _, e := range ov.Attempts {
		status := fmt.Sprintf("%-12s", e.Status)
		if c, ok := statusColors[e.Status]; ok {
			status = c.Sprint(status)
		}
		violations := fmt.Sprintf("%-10d", e.ViolationCount)
		if e.IsFlagged {
			violations = flaggedColor.Sprint(violations)
		}
		score := "-"
		if e.Percentage != nil {
			score = fmt.Sprintf("%.2f%%", *e.Percentage)
		}
		fmt.Fprintf(out, "%-24s %-3d %s %s %-8s %s\n",
			truncate(e.StudentName, 24), e.AttemptNumber, status, violations, score, e.StartedAt.Local().Format("15:04:05"))
	}

	if len(ov.NotStarted) > 0 {
		names := make([]string, 0, len(ov.NotStarted))
		for _, usr := range ov.NotStarted {
			names = append(names, usr.Name)
		}
		fmt.Fprintf(out, "\nNot started: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(out)
}

func parseOrdering(s string) []core.DBOrdering {
	var orderings []core.DBOrdering
	for _, field := range strings.Split(s, ",") {
		if field = strings.TrimSpace(field); field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		orderings = append(orderings, core.DBOrdering{Field: strings.TrimPrefix(field, "-"), Ascending: !descending})
	}
	return orderings
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
