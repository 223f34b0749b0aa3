package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shift-marketplace/backend/internal/selection"
)

func slotsCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "slots <job_id>",
		Short: "ワーカーから見た求人の勤務日ごとの状態を表示する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("job_id must be a number: %w", err)
			}
			if err := app.connectServices(); err != nil {
				return err
			}

			view, err := app.svc.LoadJobView(app.ctx, userID, jobID)
			if err != nil {
				return err
			}
			session := selection.NewSession(view, nil, nil, app.logger, selection.WithPreselected(view.PendingSelection))

			job := view.Job
			fmt.Printf("\n%s (%s〜%s)\n", job.Title, job.StartTime, job.EndTime)
			if job.WeeklyFrequency != nil {
				fmt.Printf("週 %d 日以上の応募が必要 (応募済み %d 日)\n", *job.WeeklyFrequency, view.PreviouslyAppliedCount)
			}
			fmt.Println()

			selected := selection.NewIDSet(session.Selected()...)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\t勤務日\t状態\t選択中")
			for _, c := range session.Classifications() {
				mark := ""
				if selected.Has(c.WorkDateID) {
					mark = "*"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.WorkDateID, c.WorkDate, c.Label, mark)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "ワーカーのユーザー ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
