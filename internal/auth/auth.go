// Package auth guards the admin dashboard API with a password login that
// issues short-lived HS256 tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

const adminSubject = "admin"

// Claims are the claims carried by an admin token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service checks the admin password and issues/validates tokens.
type Service struct {
	passwordHash []byte
	signingKey   []byte
	issuer       string
	ttl          time.Duration
	now          func() time.Time
}

// NewService constructs a Service. passwordHash is a bcrypt hash.
func NewService(passwordHash, signingKey, issuer string, ttl time.Duration) *Service {
	return &Service{
		passwordHash: []byte(passwordHash),
		signingKey:   []byte(signingKey),
		issuer:       issuer,
		ttl:          ttl,
		now:          time.Now,
	}
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", model.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies the password and returns a signed token.
func (s *Service) Login(password string) (string, time.Time, error) {
	if len(s.passwordHash) == 0 {
		return "", time.Time{}, fmt.Errorf("%w: admin login disabled", model.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: wrong password", model.ErrUnauthorized)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: adminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses a token and checks it grants admin rights.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return s.signingKey, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", model.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: invalid token", model.ErrUnauthorized)
	}
	if !parsed.Valid || claims.Role != adminSubject {
		return nil, fmt.Errorf("%w: invalid token", model.ErrUnauthorized)
	}
	return claims, nil
}

type contextKeyClaims struct{}

// ClaimsFrom returns the admin claims stored by RequireAdmin.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKeyClaims{}).(*Claims)
	return c, ok
}

// RequireAdmin rejects requests without a valid "Authorization: Bearer" admin token.
func (s *Service) RequireAdmin(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				writeUnauthorized(w)
				return
			}
			claims, err := s.Validate(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				log.Warn("admin token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				writeUnauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), contextKeyClaims{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
