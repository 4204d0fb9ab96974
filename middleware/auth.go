package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"simpus/models"
	"simpus/utils"
)

type ctxKey string

const UserCtxKey ctxKey = "user"

// TokenFromRequest mengambil token dari cookie "token", lalu dari
// Authorization header bila cookie kosong.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

// ============================================
// Auth - Cek token dari Header ATAU Cookie
// ============================================
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := utils.ParseToken(secret, token)
			if err != nil {
				log.Println("Invalid token:", err)
				utils.WriteError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserCtxKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom returns the claims stored by Auth, or nil.
func ClaimsFrom(ctx context.Context) *utils.Claims {
	claims, _ := ctx.Value(UserCtxKey).(*utils.Claims)
	return claims
}

// ============================================
// RequireCapability - cek izin role pengguna
// ============================================
func RequireCapability(c models.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFrom(r.Context())
			if claims == nil {
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			if !claims.Role.Can(c) {
				log.Printf("Forbidden: %s (%s) lacks %s", claims.UserID, claims.Role, c)
				utils.WriteError(w, http.StatusForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
