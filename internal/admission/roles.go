package admission

import (
	"context"

	"marketplace/internal/models"
)

// RoleLookup returns the role recorded for a user.
type RoleLookup interface {
	Role(ctx context.Context, userID string) (string, error)
}

// RoleLookupFunc adapts a function to RoleLookup.
type RoleLookupFunc func(ctx context.Context, userID string) (string, error)

func (fn RoleLookupFunc) Role(ctx context.Context, userID string) (string, error) {
	return fn(ctx, userID)
}

// UserStore is the part of storage.Storage that holds user records.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// RolesFromStore reads roles from user records.
func RolesFromStore(store UserStore) RoleLookup {
	return RoleLookupFunc(func(ctx context.Context, userID string) (string, error) {
		user, err := store.GetUser(ctx, userID)
		if err != nil {
			return "", err
		}
		return user.Role, nil
	})
}
