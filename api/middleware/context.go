package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID  contextKey = "user_id"
	ctxRole    contextKey = "actor_role"
	ctxStoreID contextKey = "store_id"
)

// Actor is the operator behind a register request: the cashier and the store whose drawer
// they work.
type Actor struct {
	StoreID uuid.UUID
	UserID  uuid.UUID
	Role    string
}

// ActorFromContext resolves the operator set by Auth. A missing or malformed store is
// Forbidden; a missing or malformed user is Unauthorized.
func ActorFromContext(ctx context.Context) (Actor, error) {
	storeID, err := StoreUUIDFromContext(ctx)
	if err != nil {
		return Actor{}, err
	}
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid user context")
	}
	return Actor{StoreID: storeID, UserID: userID, Role: RoleFromContext(ctx)}, nil
}

// StoreUUIDFromContext parses the active store claim.
func StoreUUIDFromContext(ctx context.Context) (uuid.UUID, error) {
	raw := StoreIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "invalid store context")
	}
	return id, nil
}

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRole)
}

func StoreIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxStoreID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// WithUserID injects the cashier identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithStoreID injects the active store into the context for register handlers.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStoreID, storeID)
}
