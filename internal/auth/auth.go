// Package auth verifies the bearer tokens issued by the identity service and
// puts the caller's identity on the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/privashield/leakwatch/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Identity is the verified caller. Email is the identity key events are
// recorded under.
type Identity struct {
	Email string
	Role  models.Role
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

// Verifier turns a bearer credential into an Identity.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	JWTSecret string
	// Issuer is checked against the iss claim only when set. The identity
	// service signs tokens without one.
	Issuer string
}

// JWTVerifier checks HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	config Config
}

func NewJWTVerifier(config Config) *JWTVerifier {
	return &JWTVerifier{config: config}
}

func (v *JWTVerifier) Verify(_ context.Context, credential string) (*Identity, error) {
	claims, err := v.ValidateToken(credential)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, ErrInvalidToken
	}

	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}
	return &Identity{Email: claims.Email, Role: role}, nil
}

func (v *JWTVerifier) ValidateToken(tokenString string) (*Claims, error) {
	var opts []jwt.ParserOption
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.config.JWTSecret), nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// IssueToken signs a token for email. The identity service normally does
// this; it is exposed for the CLI and tests.
func (v *JWTVerifier) IssueToken(email string, role models.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    v.config.Issuer,
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(v.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

type contextKey string

const IdentityContextKey contextKey = "identity"

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(*Identity)
	return id, ok && id != nil
}

// ErrorFunc writes an authentication failure response.
type ErrorFunc func(w http.ResponseWriter, status int, err error)

func plainError(w http.ResponseWriter, status int, err error) {
	http.Error(w, err.Error(), status)
}

type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	onError ErrorFunc
}

func WithErrorFunc(fn ErrorFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.onError = fn
		}
	}
}

// Middleware rejects requests without a valid bearer token and stores the
// verified Identity on the context.
func Middleware(v Verifier, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{onError: plainError}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				cfg.onError(w, http.StatusUnauthorized, fmt.Errorf("%w: missing authorization header", ErrUnauthorized))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				cfg.onError(w, http.StatusUnauthorized, fmt.Errorf("%w: invalid authorization header format", ErrUnauthorized))
				return
			}

			id, err := v.Verify(r.Context(), parts[1])
			if err != nil {
				cfg.onError(w, http.StatusUnauthorized, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole must run after Middleware.
func RequireRole(onError ErrorFunc, roles ...models.Role) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				onError(w, http.StatusUnauthorized, ErrUnauthorized)
				return
			}

			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			onError(w, http.StatusForbidden, ErrForbidden)
		})
	}
}
