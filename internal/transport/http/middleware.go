package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/studygroup/groupchat-server/internal/core"
)

// ContextKeyIdentity is the gin context key holding the caller's core.Identity.
const ContextKeyIdentity = "identity"

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// IdentityMiddleware resolves the caller and stores it in the context.
func IdentityMiddleware(resolver *IdentityResolver, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := resolver.Resolve(c.Request)
		if err != nil {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("identity rejected")
			c.AbortWithStatusJSON(identityStatus(err), ErrorResponse{Error: err.Error()})
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) (core.Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return core.Identity{}, false
	}
	identity, ok := v.(core.Identity)
	return identity, ok
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
