package db

import (
	"log/slog"
	"slices"
	"time"
)

// HasRole reports whether the user holds role.
func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// LogValue satisfies [slog.LogValuer]. The password hash is never logged.
func (u User) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("id", u.ID),
		slog.String("name", u.Name),
		slog.Any("roles", u.Roles),
	)
}

// inUTC normalizes scanned timestamps, which the driver returns in the local
// zone, so tasks compare equal to the values they were written with.
func (t *Task) inUTC() {
	t.CreateTime = t.CreateTime.UTC()
	t.UpdateTime = t.UpdateTime.UTC()
}

// Anonymous reports whether the session is not bound to a user.
func (s Session) Anonymous() bool {
	return s.User == 0
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpireTime)
}

// LogValue satisfies [slog.LogValuer]. Only a prefix of the token is logged.
func (s Session) LogValue() slog.Value {
	const visible = 6
	token := s.Token
	if len(token) > visible {
		token = token[:visible] + "…"
	}
	return slog.GroupValue(
		slog.String("token", token),
		slog.Uint64("user", s.User),
		slog.Time("expire_time", s.ExpireTime),
	)
}

// Empty reports whether there is no notice.
func (f Flash) Empty() bool {
	return f.Text == ""
}
