package httpmw

import (
	"crypto/subtle"
	"net/http"
)

// AdminAuth — парольный гейт для модерации: пароль либо в
// X-Admin-Password, либо в query-параметре password.
func AdminAuth(password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if password == "" {
				http.Error(w, `{"error":"admin access disabled"}`, http.StatusForbidden)
				return
			}
			got := r.Header.Get("X-Admin-Password")
			if got == "" {
				got = r.URL.Query().Get("password")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(password)) != 1 {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
