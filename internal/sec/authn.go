package sec

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"connectrpc.com/authn"

	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

// Principal is the identity bound to an authenticated session.
type Principal struct {
	ID    uint64
	Name  string
	Roles []string
}

// PrincipalFromUser extracts the identity of user.
func PrincipalFromUser(user db.User) Principal {
	return Principal{
		ID:    user.ID,
		Name:  user.Name,
		Roles: user.Roles,
	}
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// LogValue satisfies [slog.LogValuer].
func (p Principal) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("id", p.ID),
		slog.String("name", p.Name),
	)
}

// GetPrincipal returns the authenticated principal of the request. The boolean
// is false if the context carries no principal, which is the case on
// allow-listed paths and for anonymous visitors.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	principal, ok := authn.GetInfo(ctx).(Principal)
	return principal, ok && principal.ID != 0
}

// SetPrincipal attaches principal to ctx. The session middleware injects this
// information; this function is also a convenience for testing.
func SetPrincipal(ctx context.Context, principal Principal) context.Context {
	return authn.SetInfo(ctx, principal)
}

// Resolver looks up users for authentication. Both login and per-request
// session resolution go through it.
type Resolver struct {
	users storage.Users
}

// NewResolver returns a Resolver over users.
func NewResolver(users storage.Users) *Resolver {
	return &Resolver{users: users}
}

// FindByUsername returns the user with the exact (case-sensitive) username. An
// [ErrCredentialNotFound] is returned if no such user exists; any other store
// error is returned unchanged.
func (r *Resolver) FindByUsername(ctx context.Context, username string) (db.User, error) {
	user, err := r.users.GetUserByName(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return user, ErrCredentialNotFound
	}
	return user, err
}

// FindByID returns the user with the given ID, as bound to a session. An
// [ErrCredentialNotFound] is returned if the user no longer exists.
func (r *Resolver) FindByID(ctx context.Context, userID uint64) (db.User, error) {
	user, err := r.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return user, ErrCredentialNotFound
	}
	return user, err
}
