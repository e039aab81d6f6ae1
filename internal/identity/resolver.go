package identity

import (
	"context"
	"sync"

	"atmricky/internal/session"

	"github.com/rs/zerolog/log"
)

// UserLister is the part of UsersClient the resolver needs.
type UserLister interface {
	List(ctx context.Context) ([]User, error)
}

// Resolver maps the logged-in username to its display name. The users list is
// cached after the first successful load; Refresh forces a reload.
type Resolver struct {
	sessions session.Store
	users    UserLister

	mu    sync.Mutex
	cache []User
}

func NewResolver(sessions session.Store, users UserLister) *Resolver {
	return &Resolver{sessions: sessions, users: users}
}

// ResolveActorDisplayName never fails: with no session it returns "", and when
// the lookup misses or the service is unreachable it returns the username.
func (r *Resolver) ResolveActorDisplayName(ctx context.Context) string {
	s, err := r.sessions.Read()
	if err != nil || s == nil || s.Username == "" {
		return ""
	}
	users, err := r.Users(ctx, false)
	if err != nil {
		log.Warn().Err(err).Str("username", s.Username).Msg("identity: users unavailable, using username")
		return s.Username
	}
	for _, u := range users {
		if u.Username == s.Username && u.DisplayName != "" {
			return u.DisplayName
		}
	}
	return s.Username
}

// Users returns the cached list, loading it when empty or when force is set.
func (r *Resolver) Users(ctx context.Context, force bool) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache != nil && !force {
		return r.cache, nil
	}
	users, err := r.users.List(ctx)
	if err != nil {
		return nil, err
	}
	r.cache = users
	return users, nil
}

// Refresh drops the cache and reloads it.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err := r.Users(ctx, true)
	return err
}
