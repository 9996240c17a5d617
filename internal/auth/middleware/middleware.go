package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexus-academy/quizengine/internal/rbac"
)

const tokenTTL = 8 * time.Hour

// Account is a configured login. StudentID is zero for staff.
type Account struct {
	Username  string
	Role      string
	PassHash  string // bcrypt
	StudentID int64
}

// ParseAccounts reads "user:role:bcrypthash[:student_id]" entries separated
// by commas.
func ParseAccounts(entries []string) ([]Account, error) {
	out := make([]Account, 0, len(entries))
	for _, e := range entries {
		parts := strings.Split(strings.TrimSpace(e), ":")
		if len(parts) < 3 || len(parts) > 4 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("account %q: want user:role:hash[:student_id]", e)
		}
		a := Account{Username: parts[0], Role: parts[1], PassHash: parts[2]}
		if _, ok := rbac.RolePermissions[a.Role]; !ok {
			return nil, fmt.Errorf("account %q: unknown role %q", a.Username, a.Role)
		}
		if len(parts) == 4 {
			id, err := strconv.ParseInt(parts[3], 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("account %q: bad student id %q", a.Username, parts[3])
			}
			a.StudentID = id
		}
		out = append(out, a)
	}
	return out, nil
}

type AuthService struct {
	hmac     []byte
	accounts map[string]Account
}

func NewAuthService(secret string, accounts []Account) *AuthService {
	m := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		m[a.Username] = a
	}
	return &AuthService{hmac: []byte(secret), accounts: m}
}

type Claims struct {
	Sub       string `json:"sub"`
	Role      string `json:"role"` // student|teacher|admin
	StudentID int64  `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

var ErrBadCredentials = errors.New("invalid credentials")

// Authenticate checks a username and password against the configured accounts.
func (a *AuthService) Authenticate(username, password string) (Account, error) {
	acc, ok := a.accounts[username]
	if !ok {
		return Account{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PassHash), []byte(password)); err != nil {
		return Account{}, ErrBadCredentials
	}
	return acc, nil
}

func (a *AuthService) IssueJWT(acc Account) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:       acc.Username,
		Role:      acc.Role,
		StudentID: acc.StudentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "quizd",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (a *AuthService) writeToken(w http.ResponseWriter, acc Account) {
	tok, err := a.IssueJWT(acc)
	if err != nil {
		http.Error(w, "issue token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: tok, TokenType: "bearer", ExpiresIn: int(tokenTTL.Seconds())})
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		acc, err := a.Authenticate(req.Username, req.Password)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		a.writeToken(w, acc)
	}
}

// POST /auth/token  OAuth2 client-credentials grant; the client id and
// secret are an account's username and password.
func TokenHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if gt := r.PostForm.Get("grant_type"); gt != "client_credentials" {
			writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type")
			return
		}
		id, secret, ok := r.BasicAuth()
		if !ok {
			id, secret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
		}
		acc, err := a.Authenticate(id, secret)
		if err != nil {
			writeOAuthError(w, http.StatusUnauthorized, "invalid_client")
			return
		}
		a.writeToken(w, acc)
	}
}

func writeOAuthError(w http.ResponseWriter, code int, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind})
}

// JWTMiddleware validates the bearer token and puts subject, role and
// student id into the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := WithSubject(r.Context(), c.Sub)
			ctx = WithStudentID(ctx, c.StudentID)
			ctx = rbac.WithRole(ctx, c.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
