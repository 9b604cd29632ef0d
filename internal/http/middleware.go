package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/sirupsen/logrus"

	"gatelog/internal/domain"
)

const identityKey = "identity"

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}).Info("request")
	}
}

// rateLimit applies an httprate per-IP limiter to a gin route. A limit of zero disables it.
func rateLimit(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(Envelope{Success: false, Message: msgTooManyRequests})
		}),
	)

	return func(c *gin.Context) {
		passed := false
		limiter(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAuth resolves the bearer token to a stored user or stops with 401.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return h.authenticateWith(bearerToken)
}

// requireSocketAuth guards the websocket upgrade. Browsers cannot set headers on a
// websocket handshake, so the token may also arrive as ?token=.
func (h *Handler) requireSocketAuth() gin.HandlerFunc {
	return h.authenticateWith(socketToken)
}

func (h *Handler) authenticateWith(token func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.users.Authenticate(c.Request.Context(), token(c))
		if err != nil {
			h.failErr(c, err)
			return
		}
		c.Set(identityKey, user)
		c.Next()
	}
}

func (h *Handler) requireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.users.Authorize(identity(c), role); err != nil {
			h.failErr(c, err)
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) *domain.User {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func socketToken(c *gin.Context) string {
	if token := bearerToken(c); token != "" {
		return token
	}
	return strings.TrimSpace(c.Query("token"))
}
