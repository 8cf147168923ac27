package db

import (
	"context"
	"time"
)

const createSession = `
INSERT INTO sessions (token, user, flash_text, flash_status, expire_time)
VALUES (?, ?, ?, ?, ?)
`

// CreateSession inserts a new session.
func (q *Queries) CreateSession(ctx context.Context, arg Session) error {
	_, err := q.db.ExecContext(ctx, createSession,
		arg.Token,
		arg.User,
		arg.Flash.Text,
		string(arg.Flash.Status),
		arg.ExpireTime,
	)
	return err
}

const getSession = `
SELECT token, user, flash_text, flash_status, expire_time
FROM sessions
WHERE token = ?
`

// GetSession returns the session identified by token.
func (q *Queries) GetSession(ctx context.Context, token string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, token)
	var s Session
	var status string
	err := row.Scan(&s.Token, &s.User, &s.Flash.Text, &status, &s.ExpireTime)
	s.Flash.Status = FlashStatus(status)
	s.ExpireTime = s.ExpireTime.UTC()
	return s, err
}

const updateSessionFlash = `
UPDATE sessions
SET flash_text = ?, flash_status = ?
WHERE token = ?
`

// UpdateSessionFlashParams are the parameters for [Queries.UpdateSessionFlash].
type UpdateSessionFlashParams struct {
	Flash Flash
	Token string
}

// UpdateSessionFlash replaces the flash of a session and returns the number
// of rows affected.
func (q *Queries) UpdateSessionFlash(ctx context.Context, arg UpdateSessionFlashParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateSessionFlash,
		arg.Flash.Text,
		string(arg.Flash.Status),
		arg.Token,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteSession = `
DELETE FROM sessions
WHERE token = ?
`

// DeleteSession removes a session.
func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, token)
	return err
}

const deleteUserSessions = `
DELETE FROM sessions
WHERE user = ?
`

// DeleteUserSessions removes every session bound to user.
func (q *Queries) DeleteUserSessions(ctx context.Context, user uint64) error {
	_, err := q.db.ExecContext(ctx, deleteUserSessions, user)
	return err
}

const deleteExpiredSessions = `
DELETE FROM sessions
WHERE expire_time <= ?
`

// DeleteExpiredSessions removes sessions that expired at or before now and
// returns how many were removed.
func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
