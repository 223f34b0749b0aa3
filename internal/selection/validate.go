package selection

import (
	"fmt"

	"github.com/shift-marketplace/backend/internal/domain"
)

type ValidationKind string

const (
	KindEmptySelection        ValidationKind = "empty_selection"
	KindInsufficientFrequency ValidationKind = "insufficient_frequency"
	KindAlreadyApplied        ValidationKind = "already_applied"
	KindSlotUnavailable       ValidationKind = "slot_unavailable"
)

// ValidationError は送信前に検出できる応募エラー
type ValidationError struct {
	Kind        ValidationKind `json:"kind"`
	Shortfall   int            `json:"shortfall,omitempty"`   // KindInsufficientFrequency のとき不足している日数
	WorkDateIDs []int64        `json:"workDateIDs,omitempty"` // KindAlreadyApplied / KindSlotUnavailable の対象
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindEmptySelection:
		return "勤務日を選択してください"
	case KindInsufficientFrequency:
		return fmt.Sprintf("この求人は週の勤務日数の条件があります。あと %d 日選択してください", e.Shortfall)
	case KindAlreadyApplied:
		return "既に応募済みの勤務日が含まれています"
	case KindSlotUnavailable:
		return "選択した勤務日の中に応募できない日があります"
	default:
		return "応募内容が正しくありません"
	}
}

type ValidateInput struct {
	Selected               IDSet
	Applied                IDSet
	WeeklyFrequency        *int32
	PreviouslyAppliedCount int
}

// ValidateSelection は選択した勤務日の集合全体に対するルールを順に検査し、最初の違反を返す
func ValidateSelection(in ValidateInput) error {
	if in.Selected.Len() == 0 {
		return &ValidationError{Kind: KindEmptySelection}
	}

	if in.WeeklyFrequency != nil {
		required := int(*in.WeeklyFrequency)
		total := in.PreviouslyAppliedCount + in.Selected.Len()
		if total < required {
			return &ValidationError{Kind: KindInsufficientFrequency, Shortfall: required - total}
		}
	}

	if dup := in.Selected.Intersect(in.Applied); dup.Len() > 0 {
		return &ValidationError{Kind: KindAlreadyApplied, WorkDateIDs: dup.Sorted()}
	}

	return nil
}

// CheckEligible は送信直前に選択中の勤務日をもう一度判定する。
// 表示後に募集人数が埋まる可能性があるので、判定結果はキャッシュしない。
func CheckEligible(job *domain.Job, selected, applied IDSet, commitments []domain.ScheduledCommitment) error {
	in := inputForJob(job, applied, commitments)

	var blocked []int64
	for _, id := range selected.Sorted() {
		slot, ok := job.WorkDate(id)
		if !ok {
			blocked = append(blocked, id)
			continue
		}
		c := Classify(slot, in)
		// 応募済みは ValidateSelection 側で扱う
		if c.Status != StatusAvailable && c.Status != StatusApplied {
			blocked = append(blocked, id)
		}
	}

	if len(blocked) > 0 {
		return &ValidationError{Kind: KindSlotUnavailable, WorkDateIDs: blocked}
	}
	return nil
}
