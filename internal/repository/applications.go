package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shift-marketplace/backend/internal/domain"
)

// GetAppliedWorkDateIDs はワーカーがこの求人で応募済み（キャンセル以外）の勤務日 ID を返す
func (r *Repository) GetAppliedWorkDateIDs(ctx context.Context, userID, jobID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT a.work_date_id
		FROM applications a
		JOIN job_work_dates wd ON wd.id = a.work_date_id
		WHERE a.user_id = $1 AND wd.job_id = $2 AND a.status <> 'cancelled'
		ORDER BY a.work_date_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, userID, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// CountAppliedWorkDates は週の勤務日数条件の判定に使う、この求人への応募日数
func (r *Repository) CountAppliedWorkDates(ctx context.Context, userID, jobID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT COUNT(DISTINCT wd.work_date)
		FROM applications a
		JOIN job_work_dates wd ON wd.id = a.work_date_id
		WHERE a.user_id = $1 AND wd.job_id = $2 AND a.status <> 'cancelled'
	`

	var count int
	if err := r.dbpool.QueryRowContext(ctx, query, userID, jobID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetScheduledCommitments はワーカーの確定済み勤務のうち、指定した日付のものを返す。
// 同じ求人の別の勤務日も含む。
func (r *Repository) GetScheduledCommitments(ctx context.Context, userID int64, dates []string) ([]domain.ScheduledCommitment, error) {
	commitments := make([]domain.ScheduledCommitment, 0)
	if len(dates) == 0 {
		return commitments, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			to_char(wd.work_date, 'YYYY-MM-DD'),
			to_char(j.start_time, 'HH24:MI'),
			to_char(j.end_time, 'HH24:MI'),
			j.id,
			wd.id
		FROM applications a
		JOIN job_work_dates wd ON wd.id = a.work_date_id
		JOIN jobs j ON j.id = wd.job_id
		WHERE a.user_id = $1 AND a.status = 'scheduled' AND wd.work_date = ANY($2::date[])
		ORDER BY wd.work_date, j.start_time
	`

	rows, err := r.dbpool.QueryContext(ctx, query, userID, dates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.ScheduledCommitment
		if err := rows.Scan(&c.Date, &c.StartTime, &c.EndTime, &c.JobID, &c.WorkDateID); err != nil {
			return nil, err
		}
		commitments = append(commitments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return commitments, nil
}

// InsertApplications は選択された勤務日への応募を 1 トランザクションで登録する。
// 勤務日の行をロックしてから人数を再確認するため、表示後に埋まった勤務日は ErrSlotFull になる。
// 面接なしの求人は応募と同時にマッチングし、matched_count を増やす。
func (r *Repository) InsertApplications(ctx context.Context, userID int64, job *domain.Job, workDateIDs []int64) ([]domain.Application, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	status := domain.ApplicationStatusScheduled
	if job.RequiresInterview {
		status = domain.ApplicationStatusApplied
	}

	applications := make([]domain.Application, 0, len(workDateIDs))
	for _, workDateID := range workDateIDs {
		var matched, recruitment int32
		query := `
			SELECT wd.matched_count, COALESCE(wd.recruitment_count, j.recruitment_count)
			FROM job_work_dates wd
			JOIN jobs j ON j.id = wd.job_id
			WHERE wd.id = $1 AND wd.job_id = $2
			FOR UPDATE OF wd
		`
		if err := tx.QueryRowContext(ctx, query, workDateID, job.ID).Scan(&matched, &recruitment); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("work date %d: %w", workDateID, ErrWorkDateMissing)
			}
			return nil, err
		}

		if !job.RequiresInterview && matched >= recruitment {
			return nil, fmt.Errorf("work date %d: %w", workDateID, ErrSlotFull)
		}

		app := domain.Application{
			WorkDateID: workDateID,
			UserID:     userID,
			Status:     status,
		}
		query = `
			INSERT INTO applications (work_date_id, user_id, status)
			VALUES ($1, $2, $3)
			ON CONFLICT (work_date_id, user_id) DO UPDATE
				SET status = EXCLUDED.status, created_at = NOW()
				WHERE applications.status = 'cancelled'
			RETURNING id, created_at
		`
		if err := tx.QueryRowContext(ctx, query, workDateID, userID, status).Scan(&app.ID, &app.CreatedAt); err != nil {
			var pgErr *pgconn.PgError
			switch {
			case errors.Is(err, sql.ErrNoRows):
				// キャンセル以外の応募が既にある
				return nil, fmt.Errorf("work date %d: %w", workDateID, ErrAlreadyApplied)
			case errors.As(err, &pgErr) && pgErr.ConstraintName == "applications_work_date_id_user_id_key":
				return nil, fmt.Errorf("work date %d: %w", workDateID, ErrAlreadyApplied)
			default:
				return nil, err
			}
		}

		if status == domain.ApplicationStatusScheduled {
			query = `UPDATE job_work_dates SET matched_count = matched_count + 1 WHERE id = $1`
			if _, err := tx.ExecContext(ctx, query, workDateID); err != nil {
				return nil, err
			}
		}

		applications = append(applications, app)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return applications, nil
}

func (r *Repository) GetApplicationsByJobID(ctx context.Context, jobID int64) ([]domain.ApplicationExportRow, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			a.id,
			to_char(wd.work_date, 'YYYY-MM-DD'),
			u.id,
			u.full_name,
			u.phone_number,
			a.status,
			a.created_at
		FROM applications a
		JOIN job_work_dates wd ON wd.id = a.work_date_id
		JOIN users u ON u.id = a.user_id
		WHERE wd.job_id = $1
		ORDER BY wd.work_date, a.created_at
	`

	rows, err := r.dbpool.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.ApplicationExportRow, 0)
	for rows.Next() {
		var row domain.ApplicationExportRow
		dst := []any{&row.ApplicationID, &row.WorkDate, &row.UserID, &row.FullName, &row.PhoneNumber, &row.Status, &row.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
