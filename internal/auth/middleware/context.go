package auth

import (
	"context"

	"github.com/mind-engage/pcbuild-assess/internal/rbac"
)

type subjectKey struct{}

// WithSubject stores the caller's participant or facilitator id.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// Identity returns subject and role as set by JWTMiddleware.
func Identity(ctx context.Context) (sub, role string) {
	return SubjectFromContext(ctx), rbac.RoleFromContext(ctx)
}
