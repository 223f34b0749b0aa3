package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shift-marketplace/backend/internal/domain"
)

func (r *Repository) CreateJob(ctx context.Context, job *domain.Job) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var weeklyFrequency sql.NullInt32
	if job.WeeklyFrequency != nil {
		weeklyFrequency = sql.NullInt32{Int32: *job.WeeklyFrequency, Valid: true}
	}

	query := `
		INSERT INTO jobs (facility_id, title, job_type, start_time, end_time, recruitment_count, requires_interview, weekly_frequency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`
	args := []any{job.FacilityID, job.Title, job.JobType, job.StartTime, job.EndTime, job.RecruitmentCount, job.RequiresInterview, weeklyFrequency}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&job.ID, &job.CreatedAt, &job.Version); err != nil {
		return err
	}

	for i, wd := range job.WorkDates {
		var recruitment sql.NullInt32
		if wd.RecruitmentCount > 0 {
			recruitment = sql.NullInt32{Int32: wd.RecruitmentCount, Valid: true}
		}

		query := `
			INSERT INTO job_work_dates (job_id, work_date, recruitment_count)
			VALUES ($1, $2, $3)
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, query, job.ID, wd.WorkDate, recruitment).Scan(&job.WorkDates[i].ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const jobWithWorkDatesQuery = `
	SELECT
		j.id,
		j.facility_id,
		j.title,
		j.job_type,
		to_char(j.start_time, 'HH24:MI'),
		to_char(j.end_time, 'HH24:MI'),
		j.recruitment_count,
		j.requires_interview,
		j.weekly_frequency,
		j.created_at,
		j.version,
		wd.id,
		to_char(wd.work_date, 'YYYY-MM-DD'),
		wd.recruitment_count,
		wd.matched_count
	FROM jobs j
	LEFT JOIN job_work_dates wd ON wd.job_id = j.id
`

// scanJobs は jobs と job_work_dates を結合した行を求人ごとにまとめる。並び順は最初に現れた順
func scanJobs(rows *sql.Rows) ([]*domain.Job, error) {
	jobsMap := make(map[int64]*domain.Job)
	order := make([]int64, 0)

	for rows.Next() {
		var row struct {
			job             domain.Job
			weeklyFrequency sql.NullInt32
			workDateID      sql.NullInt64
			workDate        sql.NullString
			recruitment     sql.NullInt32
			matched         sql.NullInt32
		}

		dst := []any{
			&row.job.ID,
			&row.job.FacilityID,
			&row.job.Title,
			&row.job.JobType,
			&row.job.StartTime,
			&row.job.EndTime,
			&row.job.RecruitmentCount,
			&row.job.RequiresInterview,
			&row.weeklyFrequency,
			&row.job.CreatedAt,
			&row.job.Version,
			&row.workDateID,
			&row.workDate,
			&row.recruitment,
			&row.matched,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		job, exists := jobsMap[row.job.ID]
		if !exists {
			job = &row.job
			if row.weeklyFrequency.Valid {
				freq := row.weeklyFrequency.Int32
				job.WeeklyFrequency = &freq
			}
			job.WorkDates = make([]domain.WorkDateSlot, 0)
			jobsMap[job.ID] = job
			order = append(order, job.ID)
		}

		if !row.workDateID.Valid {
			// 勤務日がまだ登録されていない求人
			continue
		}

		job.WorkDates = append(job.WorkDates, domain.WorkDateSlot{
			ID:               row.workDateID.Int64,
			WorkDate:         row.workDate.String,
			RecruitmentCount: row.recruitment.Int32,
			MatchedCount:     row.matched.Int32,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	jobs := make([]*domain.Job, 0, len(order))
	for _, id := range order {
		jobs = append(jobs, jobsMap[id])
	}
	return jobs, nil
}

func (r *Repository) GetJobByID(ctx context.Context, id int64) (*domain.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := jobWithWorkDatesQuery + ` WHERE j.id = $1 ORDER BY wd.work_date, wd.id`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, sql.ErrNoRows
	}
	return jobs[0], nil
}

// ListOpenJobs は from 以降の勤務日を持つ公開中の求人を返す。勤務日も from 以降のものだけを含む
func (r *Repository) ListOpenJobs(ctx context.Context, from time.Time) ([]*domain.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			j.id,
			j.facility_id,
			j.title,
			j.job_type,
			to_char(j.start_time, 'HH24:MI'),
			to_char(j.end_time, 'HH24:MI'),
			j.recruitment_count,
			j.requires_interview,
			j.weekly_frequency,
			j.created_at,
			j.version,
			wd.id,
			to_char(wd.work_date, 'YYYY-MM-DD'),
			wd.recruitment_count,
			wd.matched_count
		FROM jobs j
		JOIN job_work_dates wd ON wd.job_id = j.id
		WHERE j.is_published AND wd.work_date >= $1::date
		ORDER BY j.created_at DESC, j.id, wd.work_date, wd.id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, from.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}
