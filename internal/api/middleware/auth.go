package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// BearerAuth enforces a shared-secret Authorization header on the mutating
// endpoints. An empty secret disables the check entirely, leaving the
// endpoint unauthenticated; when set, the header must match
// "Bearer <secret>" exactly.
func BearerAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get("Authorization")
			want := "Bearer " + secret
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
