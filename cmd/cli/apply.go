package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/selection"
	"github.com/shift-marketplace/backend/internal/service"
)

// resolveWorkDateIDs は勤務日 (YYYY-MM-DD) を求人の勤務日 ID に変換する。重複した日付は 1 つにまとめる
func resolveWorkDateIDs(job *domain.Job, dates []string) ([]int64, error) {
	byDate := make(map[string]int64, len(job.WorkDates))
	for _, wd := range job.WorkDates {
		byDate[wd.WorkDate] = wd.ID
	}

	ids := make([]int64, 0, len(dates))
	seen := make(map[int64]bool, len(dates))
	for _, date := range dates {
		id, ok := byDate[date]
		if !ok {
			return nil, fmt.Errorf("求人 %d に勤務日 %s はありません", job.ID, date)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func applyCmd() *cobra.Command {
	var (
		userID int64
		dates  []string
	)

	cmd := &cobra.Command{
		Use:   "apply <job_id>",
		Short: "ワーカーとして勤務日を選択して応募する",
		Long:  "--dates を省略した場合は、プロフィール入力前に保存された選択で応募する。",
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

			opts := []selection.SessionOption{selection.WithUserID(userID)}
			var ids []int64
			if len(dates) == 0 {
				opts = append(opts, selection.WithPreselected(view.PendingSelection))
			} else {
				ids, err = resolveWorkDateIDs(view.Job, dates)
				if err != nil {
					return err
				}
			}

			session := selection.NewSession(view, service.NewLocalSubmitter(app.svc, userID), app.reporter, app.logger, opts...)
			defer session.Wait()

			for _, id := range ids {
				if !session.Toggle(id) {
					return fmt.Errorf("勤務日 %d は選択できません", id)
				}
			}
			if len(session.Selected()) == 0 {
				return errors.New("応募する勤務日を --dates で指定してください")
			}

			outcome, err := session.Submit(app.ctx)
			if err != nil {
				var profileErr *selection.ProfileIncompleteError
				if errors.As(err, &profileErr) {
					fmt.Println("プロフィールの入力が必要です。選択した勤務日は保存されました。")
					for _, field := range profileErr.MissingFields {
						fmt.Printf("  - %s\n", field)
					}
				}
				return err
			}

			if outcome.IsMatched {
				fmt.Printf("%d 日分の勤務が確定しました: %v\n", len(outcome.WorkDateIDs), outcome.WorkDateIDs)
			} else {
				fmt.Printf("%d 日分の応募を受け付けました。面接の連絡をお待ちください: %v\n", len(outcome.WorkDateIDs), outcome.WorkDateIDs)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "応募するワーカーのユーザー ID")
	cmd.Flags().StringSliceVar(&dates, "dates", nil, "応募する勤務日 (例: 2025-06-07,2025-06-14)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
