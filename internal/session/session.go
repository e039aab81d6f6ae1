// Package session holds the operator's login session in a single key-value slot.
// Sessions are created on login and destroyed on logout; they do not expire.
package session

import (
	"errors"
	"strings"
	"time"
)

// SlotKey names the slot the session lives under.
const SlotKey = "auth_session_v1"

// ErrNoSession is returned by helpers that need a logged-in operator.
var ErrNoSession = errors.New("no hay sesión activa")

type Session struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Token       string `json:"token,omitempty"`
	// TS is the login time in Unix milliseconds.
	TS int64 `json:"ts"`
}

// New stamps a session with the current time.
func New(username, displayName, role, token string) Session {
	return Session{
		Username:    username,
		DisplayName: displayName,
		Role:        role,
		Token:       token,
		TS:          time.Now().UnixMilli(),
	}
}

// IsDev reports whether the operator may administer users and categories.
func (s Session) IsDev() bool { return s.Role == "dev" }

// Store is the session slot. Read returns (nil, nil) when nobody is logged in.
type Store interface {
	Init() error
	Read() (*Session, error)
	Write(s Session) error
	Clear() error
}

// Current reads the slot and returns ErrNoSession when it is empty or has no username.
func Current(store Store) (*Session, error) {
	s, err := store.Read()
	if err != nil {
		return nil, err
	}
	if s == nil || strings.TrimSpace(s.Username) == "" {
		return nil, ErrNoSession
	}
	return s, nil
}
