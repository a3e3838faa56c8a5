package server

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/Bando358/neonmeter/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const contextActorKey = "actor"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// AuthRequired verifies the bearer token and stores the actor on the request
// context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, auth.ErrUnauthorized)
			return
		}

		actor, err := s.tokens.Verify(token)
		if err != nil {
			AbortWithError(c, auth.ErrUnauthorized)
			return
		}

		c.Set(contextActorKey, actor)
		c.Next()
	}
}

func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentActor(c)
		if actor.Role != auth.RoleAdmin {
			AbortWithError(c, auth.ErrForbidden)
			return
		}
		c.Next()
	}
}

// JobsAuth guards the scheduler endpoints with the shared job secret. It is a
// separate credential from user tokens so a leaked dashboard token cannot
// trigger billing runs.
func (s *Server) JobsAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if s.jobsSecret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.jobsSecret)) != 1 {
			AbortWithError(c, auth.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func currentActor(c *gin.Context) auth.Actor {
	v, ok := c.Get(contextActorKey)
	if !ok {
		return auth.Actor{}
	}
	actor, _ := v.(auth.Actor)
	return actor
}

// RequestLogger emits one structured line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
		}
		if c.Writer.Status() >= 500 {
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
