package handler

type ContextKey string

var (
	RoleCtxKey        ContextKey = "role"
	SubCtxKey         ContextKey = "sub"
	ProjectCtx        ContextKey = "project"
	ScheduleRecordCtx ContextKey = "scheduleRecord"
)
