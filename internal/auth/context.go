package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxSessionID
	ctxEmail
)

var (
	ErrNoUser    = errors.New("auth: user_id not in context")
	ErrNoSession = errors.New("auth: session_id not in context")
)

func WithIdentity(ctx context.Context, userID, sessionID, email string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxSessionID, sessionID)
	ctx = context.WithValue(ctx, ctxEmail, email)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrNoUser
}

func SessionID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxSessionID).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrNoSession
}

func Email(ctx context.Context) string {
	s, _ := ctx.Value(ctxEmail).(string)
	return s
}
