package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/selection"
)

// 1 回の求人作成で展開できる勤務日の上限
const MaxRecurrenceDates = 366

func ValidateJobTime(job *domain.Job) error {
	start, err := selection.ParseClock(job.StartTime)
	if err != nil {
		return errors.New("開始時刻の形式が正しくありません")
	}
	end, err := selection.ParseClock(job.EndTime)
	if err != nil {
		return errors.New("終了時刻の形式が正しくありません")
	}
	// 日をまたぐ勤務は扱わない
	if end <= start {
		return errors.New("終了時刻は開始時刻より後にしてください")
	}

	job.StartTime = selection.FormatClock(job.StartTime)
	job.EndTime = selection.FormatClock(job.EndTime)
	return nil
}

func ValidateWorkDates(slots []domain.WorkDateSlot) error {
	if len(slots) == 0 {
		return errors.New("勤務日を 1 日以上指定してください")
	}

	seen := make(map[string]bool)
	for i, slot := range slots {
		if _, err := time.Parse(time.DateOnly, slot.WorkDate); err != nil {
			return fmt.Errorf("%d 番目の勤務日の形式が正しくありません", i+1)
		}
		if seen[slot.WorkDate] {
			return fmt.Errorf("勤務日 %s が重複しています", slot.WorkDate)
		}
		if slot.RecruitmentCount < 0 {
			return fmt.Errorf("勤務日 %s の募集人数が正しくありません", slot.WorkDate)
		}
		seen[slot.WorkDate] = true
	}
	return nil
}

// ExpandRecurrence は RRULE を from から until まで（両端を含む）展開し、YYYY-MM-DD の一覧を返す
func ExpandRecurrence(rule string, from, until time.Time) ([]string, error) {
	if until.Before(from) {
		return nil, errors.New("繰り返しの終了日は開始日より後にしてください")
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("繰り返しルールの形式が正しくありません: %w", err)
	}
	r.DTStart(from)

	occurrences := r.Between(from, until, true)
	if len(occurrences) == 0 {
		return nil, errors.New("繰り返しルールに該当する勤務日がありません")
	}
	if len(occurrences) > MaxRecurrenceDates {
		return nil, fmt.Errorf("勤務日は %d 日以内にしてください", MaxRecurrenceDates)
	}

	dates := make([]string, 0, len(occurrences))
	for _, occurrence := range occurrences {
		dates = append(dates, occurrence.Format(time.DateOnly))
	}
	return dates, nil
}
