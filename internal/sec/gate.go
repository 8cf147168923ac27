package sec

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/stolasapp/todotoday/internal/storage/db"
)

// Outcome is the result of a login attempt. It is never persisted.
type Outcome struct {
	// Principal is set only on success.
	Principal Principal
	// Reason is nil on success, otherwise [ErrCredentialNotFound] or
	// [ErrPasswordMismatch].
	Reason error
}

// Success returns a successful Outcome for principal.
func Success(principal Principal) Outcome {
	return Outcome{Principal: principal}
}

// Failure returns a failed Outcome with the given reason.
func Failure(reason error) Outcome {
	return Outcome{Reason: reason}
}

// Succeeded reports whether the login attempt succeeded.
func (o Outcome) Succeeded() bool {
	return o.Reason == nil
}

// Message is the notice shown to the user for a failed attempt. It is the
// same for every failure reason.
func (o Outcome) Message() string {
	if o.Succeeded() {
		return ""
	}
	return FailureMessage
}

// Gate authenticates login attempts.
type Gate struct {
	resolver *Resolver
	hasher   Hasher
	logger   *slog.Logger
	observer func(context.Context, Outcome)
	dummy    func() []byte
}

// GateOption configures a [Gate].
type GateOption func(*Gate)

// WithObserver registers fn to be called with every outcome, for metrics.
func WithObserver(fn func(context.Context, Outcome)) GateOption {
	return func(g *Gate) {
		g.observer = fn
	}
}

// NewGate returns a Gate resolving users with resolver and verifying
// passwords with hasher.
func NewGate(resolver *Resolver, hasher Hasher, logger *slog.Logger, opts ...GateOption) *Gate {
	gate := &Gate{
		resolver: resolver,
		hasher:   hasher,
		logger:   logger,
		observer: func(context.Context, Outcome) {},
	}
	gate.dummy = sync.OnceValue(func() []byte {
		// the password is irrelevant, only the cost matters
		hash, _ := hasher.Hash("todotoday")
		return hash
	})
	for _, opt := range opts {
		opt(gate)
	}
	return gate
}

// Authenticate checks username and password. Failed attempts are reported
// as a failed [Outcome], not an error; the error is reserved for store
// failures, which the caller must treat as fatal to the request.
//
// If the stored hash was generated with a different cost than the configured
// one, it is replaced after a successful login.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (Outcome, error) {
	user, err := g.resolver.FindByUsername(ctx, username)
	if errors.Is(err, ErrCredentialNotFound) {
		g.hasher.Verify(password, g.dummy())
		// the submitted name may be a mistyped password, so only its length is logged
		return g.finish(ctx, Failure(ErrCredentialNotFound), slog.Int("username_length", len(username))), nil
	} else if err != nil {
		return Outcome{}, err
	}

	if !g.hasher.Verify(password, user.PasswordHash) {
		return g.finish(ctx, Failure(ErrPasswordMismatch), slog.Any("user", user)), nil
	}

	if g.hasher.NeedsRehash(user.PasswordHash) {
		g.rehash(ctx, user, password)
	}
	return g.finish(ctx, Success(PrincipalFromUser(user))), nil
}

func (g *Gate) finish(ctx context.Context, outcome Outcome, attrs ...slog.Attr) Outcome {
	if outcome.Succeeded() {
		g.logger.InfoContext(ctx, "login succeeded", slog.Any("principal", outcome.Principal))
	} else {
		attrs = append(attrs, slog.String("reason", outcome.Reason.Error()))
		g.logger.LogAttrs(ctx, slog.LevelInfo, "login failed", attrs...)
	}
	g.observer(ctx, outcome)
	return outcome
}

func (g *Gate) rehash(ctx context.Context, user db.User, password string) {
	hash, err := g.hasher.Hash(password)
	if err != nil {
		g.logger.WarnContext(ctx, "failed to rehash password", slog.Any("error", err))
		return
	}
	user.PasswordHash = hash
	user.Roles = nil
	if _, err = g.resolver.users.UpsertUser(ctx, user); err != nil {
		g.logger.WarnContext(ctx, "failed to store rehashed password",
			slog.Any("user", user),
			slog.Any("error", err),
		)
	}
}
