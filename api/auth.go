package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aluiziolira/go-books-api/config"
)

// Auth is the JWT thin shell: env-configured credentials, short-lived access
// tokens, longer-lived refresh tokens. No user store, no scheme design.
type Auth struct {
	cfg config.AuthConfig
	now func() time.Time
}

// NewAuth wraps the auth configuration.
func NewAuth(cfg config.AuthConfig) *Auth {
	return &Auth{cfg: cfg, now: time.Now}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (a *Auth) validCredentials(username, password string) bool {
	if a.cfg.AdminUser == "" {
		return false
	}
	return username == a.cfg.AdminUser && password == a.cfg.AdminPass
}

func (a *Auth) issue(username, tokenType string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"sub":  username,
		"role": "admin",
		"type": tokenType,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.JWTSecret))
}

func (a *Auth) parse(raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(a.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Login exchanges credentials for an access and a refresh token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if !h.auth.validCredentials(username, password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	access, err := h.auth.issue(username, "access", h.auth.cfg.AccessTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	refresh, err := h.auth.issue(username, "refresh", h.auth.cfg.RefreshTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	respondJSON(w, http.StatusOK, tokenPair{AccessToken: access, RefreshToken: refresh})
}

// Refresh exchanges a valid refresh token for a new access token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.parse(bearerToken(r))
	if err != nil || claims["type"] != "refresh" {
		respondError(w, http.StatusUnauthorized, "invalid or missing refresh token")
		return
	}
	username, _ := claims["sub"].(string)

	access, err := h.auth.issue(username, "access", h.auth.cfg.AccessTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	respondJSON(w, http.StatusOK, tokenPair{AccessToken: access})
}

// RequireAdmin gates a route on a valid admin access token.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.auth.parse(bearerToken(r))
		if err != nil || claims["type"] != "access" {
			respondError(w, http.StatusUnauthorized, "missing or invalid access token")
			return
		}
		if claims["role"] != "admin" {
			respondError(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}
