package handler

import "context"

type ContextKey string

var (
	RequestIDCtxKey ContextKey = "requestID"
	RoleCtxKey      ContextKey = "role"
	SubCtxKey       ContextKey = "sub"
	MyInfoCtx       ContextKey = "myInfo"
	JobIDCtx        ContextKey = "jobID"
)

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDCtxKey).(string)
	return id
}
