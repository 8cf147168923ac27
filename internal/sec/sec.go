// Package sec provides authentication and security primitives for the web
// application.
//
// # Authentication
//
// Users log in with a username and password through an HTML form. Credentials
// are validated against bcrypt password hashes stored in the database, and a
// successful login binds the user's ID to a server-side session. Every later
// request re-resolves the user through the same [Resolver], so a deleted user
// is locked out at their next request.
//
// Failures never reveal whether a username exists: an unknown user and a wrong
// password produce the same [FailureMessage], and an unknown user still pays
// for a bcrypt comparison.
//
// # Components
//
//   - [Hasher]: bcrypt password hashing with a configurable cost
//   - [Resolver]: looks up users by name or ID
//   - [Gate]: turns a login attempt into an [Outcome]
//   - [GetPrincipal], [SetPrincipal]: context accessors for the logged in user
package sec

const (
	// ErrCredentialNotFound is the failure reason when no user has the
	// submitted username.
	ErrCredentialNotFound Error = "credential not found"
	// ErrPasswordMismatch is the failure reason when the submitted password
	// does not match the stored hash.
	ErrPasswordMismatch Error = "password mismatch"
	// ErrUnauthenticated is returned when a protected resource is requested
	// without a valid session.
	ErrUnauthenticated Error = "unauthenticated"
	// ErrUnauthorizedRole is returned when an authenticated user lacks the
	// role required for a resource.
	ErrUnauthorizedRole Error = "missing required role"
	// ErrPasswordTooLong is returned when hashing a password that bcrypt
	// would otherwise truncate.
	ErrPasswordTooLong Error = "password must be at most 72 bytes"
)

// FailureMessage is shown to the user after any failed login attempt.
const FailureMessage = "Incorrect username and/or password. Please try again."

// Error is an error type returned by this package.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }
