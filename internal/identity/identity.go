// Package identity provides anonymous per-caller identity primitives.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	CallerCookieName = "debate_caller_id"
	CallerHeaderName = "X-Debate-Caller-ID"
	callerCookieAge  = 30 * 24 * time.Hour
)

type contextKey int

const callerIDKey contextKey = iota

var (
	generatedIDPattern = regexp.MustCompile(`^caller_[a-f0-9]{32}$`)
	headerIDPattern    = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// CallerIDFromContext extracts the caller ID from the request context.
func CallerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(callerIDKey).(string); ok {
		return v
	}
	return ""
}

// WithCallerID returns a context carrying id.
func WithCallerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerIDKey, id)
}

func generateCallerID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate caller id: %w", err)
	}
	return "caller_" + hex.EncodeToString(buf), nil
}

func setCallerCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CallerCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(callerCookieAge.Seconds()),
		Expires:  time.Now().Add(callerCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// resolveCallerID prefers an explicit header, then the cookie, and mints a
// new cookie-backed id otherwise.
func resolveCallerID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if h := strings.TrimSpace(r.Header.Get(CallerHeaderName)); h != "" && headerIDPattern.MatchString(h) {
		return h, nil
	}

	if c, err := r.Cookie(CallerCookieName); err == nil && generatedIDPattern.MatchString(c.Value) {
		setCallerCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateCallerID()
	if err != nil {
		return "", err
	}
	setCallerCookie(w, id, isDev)
	return id, nil
}

// Middleware injects the anonymous caller identity into the request context.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerID, err := resolveCallerID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish caller identity"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCallerID(r.Context(), callerID)))
		})
	}
}

// IPFromRequest returns a normalized remote IP.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
