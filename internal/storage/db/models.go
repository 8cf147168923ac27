package db

import "time"

// FlashStatus is the tone of a one-time [Flash] notice.
type FlashStatus string

// Flash statuses.
const (
	FlashSuccess FlashStatus = "SUCCESS"
	FlashFailure FlashStatus = "FAILURE"
)

// User is a row of the users table. Roles are stored separately in
// user_roles and populated by the storage package.
type User struct {
	ID           uint64
	Name         string
	PasswordHash []byte
	CreateTime   time.Time
	Roles        []string
}

// Task is a row of the tasks table.
type Task struct {
	ID         uint64
	Owner      uint64
	Title      string
	Notes      string
	Done       bool
	CreateTime time.Time
	UpdateTime time.Time
}

// Flash is a one-time notice attached to a session.
type Flash struct {
	Text   string
	Status FlashStatus
}

// Session is a row of the sessions table. A zero User is an anonymous
// session, used only to carry a [Flash] to the login page.
type Session struct {
	Token      string
	User       uint64
	Flash      Flash
	ExpireTime time.Time
}
