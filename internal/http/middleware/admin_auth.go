package middleware

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

const (
	adminKeyHeader      = "X-Admin-Key"
	adminKeyParam       = "admin_key"
	maxAdminBodyPeek    = 64 << 10
	invalidAdminMessage = "Admin Key ungültig"
)

// AdminAuth guards operator endpoints with a shared secret. The secret may be
// supplied as the admin_key query parameter, the X-Admin-Key header, an
// admin_key field in a JSON body, or a Bearer JWT signed (HS256) with it.
func AdminAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeForbidden(w)
				return
			}
			if keyMatches(r.URL.Query().Get(adminKeyParam), secret) || keyMatches(r.Header.Get(adminKeyHeader), secret) {
				next.ServeHTTP(w, r)
				return
			}
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				claims, ok := parseAdminToken(strings.TrimPrefix(auth, "Bearer "), secret)
				if ok {
					ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			if keyMatches(bodyAdminKey(r), secret) {
				next.ServeHTTP(w, r)
				return
			}
			writeForbidden(w)
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}

func parseAdminToken(tokenString, secret string) (jwt.RegisteredClaims, bool) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return jwt.RegisteredClaims{}, false
	}
	return claims, true
}

// bodyAdminKey reads admin_key from a JSON body and restores the body for the next handler.
func bodyAdminKey(r *http.Request) string {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxAdminBodyPeek))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		AdminKey string `json:"admin_key"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return body.AdminKey
}

func keyMatches(supplied, secret string) bool {
	if supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) == 1
}

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": invalidAdminMessage})
}
