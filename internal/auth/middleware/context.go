package auth

import "context"

type ctxKey string

const (
	ctxKeySub     ctxKey = "sub"
	ctxKeyStudent ctxKey = "student_id"
)

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

func SubjectFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySub); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func WithStudentID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKeyStudent, id)
}

// StudentIDFromContext is zero for staff tokens.
func StudentIDFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(ctxKeyStudent).(int64); ok {
		return v
	}
	return 0
}
