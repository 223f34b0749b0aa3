package service

import (
	"context"
	"errors"

	"github.com/shift-marketplace/backend/internal/selection"
)

// LocalSubmitter はプロセス内で selection.Session から応募を送る
type LocalSubmitter struct {
	svc    *ApplicationService
	userID int64
}

func NewLocalSubmitter(svc *ApplicationService, userID int64) *LocalSubmitter {
	return &LocalSubmitter{
		svc:    svc,
		userID: userID,
	}
}

// Submit は応募 API と同じ形の結果を返す。ワーカー側で直せる失敗は Success=false の結果として、
// それ以外はエラーとして返す
func (l *LocalSubmitter) Submit(ctx context.Context, jobID int64, workDateIDs []int64) (*selection.SubmitResult, error) {
	res, err := l.svc.Apply(ctx, l.userID, jobID, workDateIDs)
	if err != nil {
		var profileErr *selection.ProfileIncompleteError
		if errors.As(err, &profileErr) {
			return &selection.SubmitResult{
				Success:       false,
				Error:         profileErr.Error(),
				MissingFields: profileErr.MissingFields,
			}, nil
		}
		if isBusinessError(err) {
			return &selection.SubmitResult{Success: false, Error: err.Error()}, nil
		}
		return nil, err
	}

	return &selection.SubmitResult{Success: true, IsMatched: res.IsMatched}, nil
}
