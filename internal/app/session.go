package app

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

const (
	// tokenBytes is the entropy of a session token.
	tokenBytes = 32
	// flashTTL bounds the anonymous sessions created only to carry a notice
	// to the login page.
	flashTTL = 10 * time.Minute
	// sessionKey is the echo context key of the loaded session.
	sessionKey = "todotoday.session"
)

// sessions binds server-side sessions to the session cookie.
type sessions struct {
	store  storage.Sessions
	cookie string
	secure bool
	ttl    time.Duration
	now    func() time.Time
}

func newSessions(store storage.Sessions, cfg config.SessionConfig) *sessions {
	return &sessions{
		store:  store,
		cookie: cfg.CookieName,
		secure: cfg.SecureCookie,
		ttl:    cfg.TTL,
		now:    time.Now,
	}
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// load returns the session named by the request cookie. The boolean is false
// if there is no cookie or the session is unknown or expired.
func (s *sessions) load(c echo.Context) (db.Session, bool, error) {
	cookie, err := c.Cookie(s.cookie)
	if err != nil || cookie.Value == "" {
		return db.Session{}, false, nil
	}
	session, err := s.store.GetSession(c.Request().Context(), cookie.Value)
	if errors.Is(err, storage.ErrNotFound) {
		return db.Session{}, false, nil
	} else if err != nil {
		return db.Session{}, false, err
	}
	return session, true, nil
}

// current returns the session loaded for this request.
func current(c echo.Context) (db.Session, bool) {
	session, ok := c.Get(sessionKey).(db.Session)
	return session, ok
}

// start issues a new session for userID, replacing any session of the
// request so a token known before login is never bound to a user.
func (s *sessions) start(c echo.Context, userID uint64, ttl time.Duration) (db.Session, error) {
	if err := s.end(c); err != nil {
		return db.Session{}, err
	}
	token, err := newToken()
	if err != nil {
		return db.Session{}, err
	}
	session := db.Session{
		Token:      token,
		User:       userID,
		ExpireTime: s.now().Add(ttl),
	}
	if err = s.store.CreateSession(c.Request().Context(), session); err != nil {
		return db.Session{}, err
	}
	c.Set(sessionKey, session)
	c.SetCookie(s.newCookie(session.Token, session.ExpireTime))
	return session, nil
}

// end deletes the session of the request, if any, and clears the cookie.
func (s *sessions) end(c echo.Context) error {
	session, ok := current(c)
	if !ok {
		return nil
	}
	if err := s.store.DeleteSession(c.Request().Context(), session.Token); err != nil {
		return err
	}
	c.Set(sessionKey, nil)
	cookie := s.newCookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	c.SetCookie(cookie)
	return nil
}

// flash attaches a one-time notice to the session of the request, starting
// an anonymous one if there is none.
func (s *sessions) flash(c echo.Context, flash db.Flash) error {
	session, ok := current(c)
	if !ok {
		var err error
		if session, err = s.start(c, 0, flashTTL); err != nil {
			return err
		}
	}
	return s.store.SetFlash(c.Request().Context(), session.Token, flash)
}

// takeFlash returns and clears the notice of the session of the request.
func (s *sessions) takeFlash(c echo.Context) (db.Flash, error) {
	session, ok := current(c)
	if !ok {
		return db.Flash{}, nil
	}
	flash, err := s.store.TakeFlash(c.Request().Context(), session.Token)
	if errors.Is(err, storage.ErrNotFound) {
		return db.Flash{}, nil
	}
	return flash, err
}

func (s *sessions) newCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
