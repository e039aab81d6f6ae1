package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	ActorKey    = "actor"
	ActorHeader = "X-Actor-Username"
)

// TokenResolver maps a session token to the username it was issued for.
type TokenResolver interface {
	ActorFromToken(token string) (string, error)
}

// Actor stores the requesting username under ActorKey. The X-Actor-Username
// header wins; without it a valid Bearer token is used. Neither is required:
// anonymous requests simply carry an empty actor.
func Actor(tokens TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader(ActorHeader)
		if actor == "" && tokens != nil {
			if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
				username, err := tokens.ActorFromToken(strings.TrimPrefix(header, "Bearer "))
				if err != nil {
					log.Debug().Str("request_id", c.GetString(RequestIDKey)).Err(err).Msg("ignoring bearer token")
				} else {
					actor = username
				}
			}
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// GetActor returns the username resolved by Actor, or "".
func GetActor(c *gin.Context) string {
	return c.GetString(ActorKey)
}
