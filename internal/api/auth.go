package api

import (
	"net/http"
	"strings"
	"time"

	"viagens/internal/auth"
	"viagens/internal/logging"
	"viagens/internal/metrics"
	"viagens/internal/models"
	"viagens/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	userKey         = "user"
)

// requestID tags every request with an id and a request-scoped logger.
func requestID(base *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" || len(rid) > 64 {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)

		l := base.With().Str(requestIDKey, rid).Logger()
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()

		metrics.ObserveHTTP(c.FullPath(), c.Request.Method, status, elapsed)

		logger := logging.FromContext(c.Request.Context(), nil)
		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", elapsed).
			Str("ip", c.ClientIP()).
			Msg("http request")
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// authenticate resolves the bearer token to an active user and tags the
// request context with the user's email as the acting user.
func (s *HTTPServer) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			c.Abort()
			return
		}
		claims, err := s.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			writeServiceError(c, err)
			c.Abort()
			return
		}
		user, err := s.svc.Users.Current(c.Request.Context(), claims)
		if err != nil {
			writeServiceError(c, err)
			c.Abort()
			return
		}

		c.Set(userKey, user)
		ctx := service.WithActor(c.Request.Context(), user.Email)
		l := zerolog.Ctx(ctx).With().Int64("user_id", user.ID).Logger()
		c.Request = c.Request.WithContext(l.WithContext(ctx))
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// require rejects users whose role lacks capability.
func (s *HTTPServer) require(capability auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !auth.Can(user.Role, capability) {
			respondError(c, http.StatusForbidden, "forbidden", "missing capability "+string(capability))
			c.Abort()
			return
		}
		c.Next()
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := s.svc.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *HTTPServer) me(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"capabilities": auth.Capabilities(user.Role),
	})
}
