package auth

import (
	"context"

	"github.com/debemdeboas/pagedraft/internal/model"
)

type contextKey string

const contextKeyUserID contextKey = "userID"

func ContextWithUserID(ctx context.Context, userID model.UserID) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

func UserIDFromContext(ctx context.Context) (model.UserID, bool) {
	userID, ok := ctx.Value(contextKeyUserID).(model.UserID)
	return userID, ok
}
