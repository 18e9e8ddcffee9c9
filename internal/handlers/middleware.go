package handlers

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/auth"
	"github.com/sumanshinde/Rpos/internal/logging"
)

// authenticate resolves the bearer token into a session stored in the
// request context.
func authenticate(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			renderError(c, apperr.Auth("You are not logged in! Please log in to get access."))
			return
		}
		sess, err := svc.Authenticate(c.Request.Context(), strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			renderError(c, err)
			return
		}
		ctx := auth.WithSession(c.Request.Context(), sess)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).WithField("user_id", sess.UserID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requireRoles(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := auth.SessionFrom(c.Request.Context())
		if !ok {
			renderError(c, apperr.Auth("You are not logged in!"))
			return
		}
		if !sess.HasRole(roles...) {
			renderError(c, apperr.Forbidden("You do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}

func session(c *gin.Context) *auth.Session {
	s, _ := auth.SessionFrom(c.Request.Context())
	return s
}

func sessionUserID(c *gin.Context) string {
	if s := session(c); s != nil {
		return s.UserID
	}
	return ""
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP and forgets idle clients.
type ipLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	expiresIn time.Duration
	nowFunc   func() time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	return &ipLimiter{
		visitors:  map[string]*visitor{},
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		expiresIn: 3 * time.Minute,
		nowFunc:   time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFunc()
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.expiresIn {
			delete(l.visitors, k)
		}
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func rateLimit(l *ipLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(429, gin.H{
				"status":  "fail",
				"error":   "rate_limited",
				"message": "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
