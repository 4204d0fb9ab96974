package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"simpus/config"
	"simpus/middleware"
	"simpus/models"
	"simpus/store"
	"simpus/utils"

	"golang.org/x/crypto/bcrypt"
)

const tokenCookie = "token"

type AuthHandler struct {
	Store *store.Store
	Cfg   config.Config
}

func NewAuthHandler(store *store.Store, cfg config.Config) *AuthHandler {
	return &AuthHandler{Store: store, Cfg: cfg}
}

// Register endpoint (untuk membuat akun anggota baru).
// Role selalu "member"; akun staf dibuat lewat CLI create-admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload models.RegisterRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	if strings.TrimSpace(payload.Name) == "" || strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		utils.WriteError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	if len(payload.Password) > models.MaxPasswordBytes {
		utils.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Password must be at most %d bytes", models.MaxPasswordBytes))
		return
	}

	// Hash password sebelum disimpan
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	user, err := h.Store.CreateUser(r.Context(), payload.Name, payload.Email, string(hashed), models.RoleMember)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.issueToken(w, http.StatusCreated, user)
}

// Login endpoint.
// Memverifikasi email dan password, lalu menolak akun yang diblokir.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Validasi input
	if req.Email == "" || req.Password == "" {
		utils.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// Verifikasi password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if user.Blocked {
		log.Printf("Blocked login attempt: %s", user.Email)
		utils.WriteError(w, http.StatusForbidden, "Account blocked")
		return
	}

	h.issueToken(w, http.StatusOK, user)
}

// Logout menghapus cookie token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the caller's token claims, or null when there is no valid token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		utils.WriteJSON(w, http.StatusOK, nil)
		return
	}
	claims, err := utils.ParseToken([]byte(h.Cfg.JWTSecret), token)
	if err != nil {
		utils.WriteJSON(w, http.StatusOK, nil)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"id":   claims.UserID,
		"name": claims.Name,
		"role": claims.Role,
	})
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := utils.GenerateToken([]byte(h.Cfg.JWTSecret), user, h.Cfg.TokenTTL)
	if err != nil {
		log.Println("Could not generate token:", err)
		utils.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	utils.WriteJSON(w, status, models.AuthResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Token: token,
	})
}
