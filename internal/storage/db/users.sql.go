package db

import (
	"context"
	"time"
)

const getUser = `
SELECT id, name, password_hash, create_time
FROM users
WHERE id = ?
`

// GetUser returns the user with the given id.
func (q *Queries) GetUser(ctx context.Context, id uint64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.CreateTime)
	u.CreateTime = u.CreateTime.UTC()
	return u, err
}

const getUserByName = `
SELECT id, name, password_hash, create_time
FROM users
WHERE name = ?
`

// GetUserByName returns the user with the given name. Names are compared
// byte-for-byte, so lookups are case-sensitive.
func (q *Queries) GetUserByName(ctx context.Context, name string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByName, name)
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.CreateTime)
	u.CreateTime = u.CreateTime.UTC()
	return u, err
}

const getUsers = `
SELECT id, name, password_hash, create_time
FROM users
WHERE name > ?
ORDER BY name
LIMIT ?
`

// GetUsersParams are the parameters for [Queries.GetUsers].
type GetUsersParams struct {
	AfterName string
	Limit     int64
}

// GetUsers lists users ordered by name, starting after AfterName.
func (q *Queries) GetUsers(ctx context.Context, arg GetUsersParams) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, getUsers, arg.AfterName, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.CreateTime); err != nil {
			return nil, err
		}
		u.CreateTime = u.CreateTime.UTC()
		items = append(items, u)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertUser = `
INSERT INTO users (id, name, password_hash, create_time)
VALUES (?, ?, coalesce(?, X''), ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    password_hash = excluded.password_hash
ON CONFLICT (name) DO NOTHING
RETURNING id
`

// UpsertUserParams are the parameters for [Queries.UpsertUser].
type UpsertUserParams struct {
	ID           uint64
	Name         string
	PasswordHash []byte
	CreateTime   time.Time
}

// UpsertUser inserts or fully replaces a user. A nil password hash is stored
// as an empty one, which no password matches. If the name belongs to a
// different user, no row is returned.
func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (uint64, error) {
	row := q.db.QueryRowContext(ctx, upsertUser, arg.ID, arg.Name, arg.PasswordHash, arg.CreateTime)
	var id uint64
	err := row.Scan(&id)
	return id, err
}

const deleteUser = `
DELETE FROM users
WHERE id = ?
`

// DeleteUser removes a user. Roles and tasks are removed by cascade.
func (q *Queries) DeleteUser(ctx context.Context, id uint64) error {
	_, err := q.db.ExecContext(ctx, deleteUser, id)
	return err
}

const getUserRoles = `
SELECT role
FROM user_roles
WHERE user = ?
ORDER BY role
`

// GetUserRoles lists the roles held by a user.
func (q *Queries) GetUserRoles(ctx context.Context, user uint64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, getUserRoles, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		items = append(items, role)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const deleteUserRoles = `
DELETE FROM user_roles
WHERE user = ?
`

// DeleteUserRoles removes every role held by a user.
func (q *Queries) DeleteUserRoles(ctx context.Context, user uint64) error {
	_, err := q.db.ExecContext(ctx, deleteUserRoles, user)
	return err
}

const insertUserRole = `
INSERT INTO user_roles (user, role)
VALUES (?, ?)
ON CONFLICT DO NOTHING
`

// InsertUserRoleParams are the parameters for [Queries.InsertUserRole].
type InsertUserRoleParams struct {
	User uint64
	Role string
}

// InsertUserRole grants a role to a user.
func (q *Queries) InsertUserRole(ctx context.Context, arg InsertUserRoleParams) error {
	_, err := q.db.ExecContext(ctx, insertUserRole, arg.User, arg.Role)
	return err
}
