package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
)

type contextKey string

const ctxCaller contextKey = "caller"

// Caller is the authenticated identity attached by Auth.
type Caller struct {
	UserID        uuid.UUID
	Email         string
	EmailVerified bool
	Role          enums.Role
}

func (c Caller) IsAdmin() bool { return c.Role == enums.RoleAdmin }

// WithCaller injects the caller into the context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCaller, caller)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(ctxCaller).(Caller)
	return caller, ok && caller.UserID != uuid.Nil
}

func UserIDFromContext(ctx context.Context) string {
	if caller, ok := CallerFromContext(ctx); ok {
		return caller.UserID.String()
	}
	return ""
}

// RequireCaller returns the authenticated caller or an UNAUTHORIZED error.
func RequireCaller(ctx context.Context) (Caller, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return caller, nil
}
