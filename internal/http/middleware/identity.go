// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the acting chat user and the admin credential for a
// request. Neither middleware rejects anonymous traffic on its own; routes that
// need an identity enforce it with RequireUser, RequireSelfOrAdmin or
// RequireAdmin.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderUserID carries the numeric chat user id of the acting user.
	HeaderUserID = "X-User-ID"
	// HeaderAdminToken carries the shared admin secret.
	HeaderAdminToken = "X-Admin-Token"

	ctxKeyUserID     = "userID"      // int64
	ctxKeyAdmin      = "admin"       // bool
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// UserIdentity parses X-User-ID and, when it is a positive integer, stores it
// in the Gin context for UserIDFrom and the rate limiter.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := strings.TrimSpace(c.GetHeader(HeaderUserID)); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				c.Set(ctxKeyUserID, id)
			}
		}
		c.Next()
	}
}

// UserIDFrom returns the acting user id stored by UserIdentity.
func UserIDFrom(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

// RequireUser aborts with 401 when the request carries no valid X-User-ID.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserIDFrom(c); !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "X-User-ID header must be a positive integer")
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin lets admin requests through and otherwise requires the
// acting user to be the user named by the path parameter. It aborts with 401
// when there is no acting user and 403 when the ids differ.
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAdmin(c) {
			c.Next()
			return
		}
		id, ok := UserIDFrom(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "X-User-ID header must be a positive integer")
			return
		}
		if c.Param(param) != strconv.FormatInt(id, 10) {
			abortJSON(c, http.StatusForbidden, "forbidden", "acting user may only access their own record")
			return
		}
		c.Next()
	}
}

// AdminAuth marks requests whose X-Admin-Token matches secret as admin
// requests and exempts them from rate limiting. An empty secret disables admin
// access entirely.
func AdminAuth(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		if len(want) > 0 {
			got := []byte(c.GetHeader(HeaderAdminToken))
			if subtle.ConstantTimeCompare(got, want) == 1 {
				c.Set(ctxKeyAdmin, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

// IsAdmin reports whether AdminAuth accepted the request's admin token.
func IsAdmin(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyAdmin)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// RequireAdmin aborts with 401 unless AdminAuth accepted the request.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "valid X-Admin-Token required")
			return
		}
		c.Next()
	}
}

// abortJSON writes the standard error envelope without importing handlers.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       code,
		"message":    msg,
	})
}
