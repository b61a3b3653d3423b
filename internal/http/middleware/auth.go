package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ActorKey is the context key under which BearerAuth stores the caller.
const ActorKey = "actor"

// BearerAuth admits requests carrying "Authorization: Bearer <token>". The
// caller is recorded under ActorKey as actor. An empty token rejects all
// requests.
func BearerAuth(token, actor string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || len(want) == 0 || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			c.Header("WWW-Authenticate", `Bearer realm="admin"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing or invalid bearer token",
			})
			return
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// Actor returns the caller recorded by BearerAuth, or "".
func Actor(c *gin.Context) string {
	return asString(c.Value(ActorKey))
}
