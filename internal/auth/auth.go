// Package auth gates the HTTP surface behind static API keys. An empty
// key set disables the check entirely, which is the development default.
package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Auth holds the accepted API keys.
type Auth struct {
	keys map[string]bool
}

func New(keys []string) *Auth {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		m[k] = true
	}
	return &Auth{keys: m}
}

// Enabled reports whether any key is configured.
func (a *Auth) Enabled() bool { return a != nil && len(a.keys) > 0 }

// Allow checks one presented key.
func (a *Auth) Allow(key string) bool {
	if !a.Enabled() {
		return true
	}
	return a.keys[key]
}

// Middleware rejects unauthenticated requests. The health endpoint stays
// open so probes work without credentials.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}
		if !a.Allow(keyFrom(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":    "error",
				"error":     "missing or invalid API key",
				"timestamp": time.Now().UTC(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func keyFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.Header.Get("X-API-Key")
}
