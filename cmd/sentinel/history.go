package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"KumoSentinel/internal/model"
	"KumoSentinel/internal/notifier"
	"KumoSentinel/internal/recorder"
)

type historyOutput struct {
	Alerts []model.AlertRecord `json:"alerts"`
	Runs   []runOutput         `json:"runs"`
}

type runOutput struct {
	RunID   string       `json:"runId"`
	Time    string       `json:"time"`
	Status  string       `json:"status"`
	Date    string       `json:"date,omitempty"`
	Price   float64      `json:"price,omitempty"`
	Signal  model.Signal `json:"signal,omitempty"`
	Outcome string       `json:"outcome"`
	Error   string       `json:"error,omitempty"`
	Dropped int          `json:"dropped"`
}

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show sent alerts and recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := InitializeApp(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			alerts, err := app.Dedup.History(ctx)
			if err != nil {
				return err
			}
			runs, err := app.Recorder.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeHistoryJSON(out, alerts, runs)
			}
			writeHistoryText(out, alerts, runs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent runs to show")
	return cmd
}

func writeHistoryJSON(w io.Writer, alerts []model.AlertRecord, runs []recorder.RunRecord) error {
	doc := historyOutput{Alerts: alerts, Runs: make([]runOutput, 0, len(runs))}
	if doc.Alerts == nil {
		doc.Alerts = []model.AlertRecord{}
	}
	for _, r := range runs {
		doc.Runs = append(doc.Runs, runOutput{
			RunID:   r.RunID,
			Time:    r.Timestamp.UTC().Format(time.RFC3339),
			Status:  r.Status,
			Date:    r.Date,
			Price:   r.Price,
			Signal:  r.Signal,
			Outcome: string(r.Outcome),
			Error:   r.Error,
			Dropped: r.Dropped,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func writeHistoryText(w io.Writer, alerts []model.AlertRecord, runs []recorder.RunRecord) {
	fmt.Fprint(w, notifier.FormatHistory(alerts, 0))
	if len(runs) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRecent runs:")
	for _, r := range runs {
		line := fmt.Sprintf("  %s  %-20s  %-7s  %-10s", r.Timestamp.Local().Format("2006-01-02 15:04"), r.Status, r.Signal, r.Outcome)
		if r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Fprintln(w, line)
	}
}
