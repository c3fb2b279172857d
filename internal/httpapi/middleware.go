package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Leganyst/reservation-platform/internal/identity"
)

// TokenVerifier проверяет bearer-токен.
type TokenVerifier interface {
	Verify(raw string) (*identity.Claims, error)
}

// JWTAuth проверяет Authorization: Bearer и кладёт id пользователя (sub)
// в контекст запроса.
func JWTAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Error: "missing bearer token"})
			return
		}
		claims, err := verifier.Verify(strings.TrimSpace(tok))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Error: "invalid token"})
			return
		}
		c.Set("sub", claims.Subject)
		c.Set("role", claims.Role)
		c.Request = c.Request.WithContext(identity.WithUser(c.Request.Context(), claims.Subject))
		c.Next()
	}
}

// UserLimiter — token bucket на пользователя.
type UserLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userBucket
	limit    rate.Limit
	burst    int

	// За idle простоя ведро наполняется целиком, поэтому запись можно
	// удалить: новая ведёт себя так же.
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type userBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewUserLimiter(perMinute, burst int) *UserLimiter {
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(max(perMinute, 1))
	return &UserLimiter{
		limiters: make(map[string]*userBucket),
		limit:    rate.Every(every),
		burst:    burst,
		idle:     max(time.Duration(burst)*every, time.Minute),
		now:      time.Now,
	}
}

func (l *UserLimiter) Allow(userID string) bool {
	now := l.now()
	l.mu.Lock()
	b, ok := l.limiters[userID]
	if !ok {
		l.sweep(now)
		b = &userBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// sweep удаляет ведра, простоявшие дольше idle. Вызывается под mu, не чаще
// раза за idle.
func (l *UserLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for id, b := range l.limiters {
		if now.Sub(b.lastSeen) >= l.idle {
			delete(l.limiters, id)
		}
	}
}

func (l *UserLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimit отклоняет запрос с 429, если пользователь исчерпал лимит.
// Ставится после JWTAuth.
func RateLimit(l *UserLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("sub")
		if !l.Allow(userID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorBody{Error: "rate limit exceeded", Kind: "rate_limited"})
			return
		}
		c.Next()
	}
}

// RequestLogger пишет строку на запрос через logrus.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if sub := c.GetString("sub"); sub != "" {
			entry = entry.WithField("user_id", sub)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("http request")
			return
		}
		entry.Debug("http request")
	}
}
