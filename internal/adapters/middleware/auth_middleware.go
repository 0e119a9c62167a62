package middleware

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cacheEntry stores verified JWT claims keyed by JTI (JWT ID).
// tokenHash binds the entry to the exact token that was verified.
type cacheEntry struct {
	claims    jwt.MapClaims
	exp       int64
	tokenHash string
}

// AuthMiddleware validates bearer tokens signed by the Identity Service
// using the mounted public key. Verified claims are cached by JTI.
type AuthMiddleware struct {
	publicKey *rsa.PublicKey
	cache     sync.Map
	log       *zap.Logger

	janitorStop chan bool
	stopOnce    sync.Once
}

const CacheCleanupInterval = 10 * time.Minute

// NewAuthMiddleware creates a new JWT authentication middleware
func NewAuthMiddleware(publicKey *rsa.PublicKey, log *zap.Logger) *AuthMiddleware {
	m := &AuthMiddleware{
		publicKey:   publicKey,
		log:         log,
		janitorStop: make(chan bool),
	}

	go m.startJanitor(CacheCleanupInterval)

	return m
}

// Context keys for storing user information
type contextKey string

const (
	UserIDKey    contextKey = "userID"
	RoleKey      contextKey = "role"
	TokenKey     contextKey = "token"
	UserEmailKey contextKey = "userEmail"
)

var (
	ErrMissingToken   = errors.New("missing token")
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidSubject = errors.New("missing or invalid user ID claim")
)

func hashToken(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

// GetClaimsFromCacheOrParse returns the verified claims of a token and the
// cache key used for it (the JTI, or a token hash when the JTI is missing)
func (m *AuthMiddleware) GetClaimsFromCacheOrParse(tokenString string) (jwt.MapClaims, string, error) {
	// Peek at the JTI and expiry without verifying the signature yet
	parser := jwt.NewParser()
	unverifiedToken, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, "", err
	}

	claims, ok := unverifiedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, "", errors.New("invalid token claims")
	}

	tokenHash := hashToken(tokenString)
	jti, _ := claims["jti"].(string)
	if jti == "" {
		jti = tokenHash
		m.log.Debug("Token missing JTI, using token hash as cache key")
	}

	expTime, err := claims.GetExpirationTime()
	if err != nil || expTime == nil {
		return nil, "", errors.New("missing expiration claim")
	}
	exp := expTime.Unix()

	if time.Now().Unix() > exp {
		return nil, "", ErrTokenExpired
	}

	if entry, ok := m.cache.Load(jti); ok {
		cached := entry.(cacheEntry)
		if cached.tokenHash == tokenHash && time.Now().Unix() < cached.exp {
			return cached.claims, jti, nil
		}
		m.cache.Delete(jti)
	}

	// Full RSA validation on cache miss
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.publicKey, nil
	})
	if err != nil {
		return nil, "", err
	}
	if !token.Valid {
		return nil, "", jwt.ErrSignatureInvalid
	}

	verifiedClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, "", errors.New("invalid token claims")
	}

	m.cache.Store(jti, cacheEntry{claims: verifiedClaims, exp: exp, tokenHash: tokenHash})

	return verifiedClaims, jti, nil
}

// Authenticate validates a token and returns the user ID from its sub claim
func (m *AuthMiddleware) Authenticate(tokenString string) (uuid.UUID, jwt.MapClaims, error) {
	if tokenString == "" {
		return uuid.Nil, nil, ErrMissingToken
	}

	claims, _, err := m.GetClaimsFromCacheOrParse(tokenString)
	if err != nil {
		return uuid.Nil, nil, err
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, nil, ErrInvalidSubject
	}

	return userID, claims, nil
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth is middleware that validates the bearer token and adds the
// user ID to the request context
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := BearerToken(r)
		if tokenString == "" {
			m.log.Debug("Missing or malformed Authorization header", zap.String("path", r.URL.Path))
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		userID, claims, err := m.Authenticate(tokenString)
		if err != nil {
			m.log.Info("Token validation failed", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(WithClaims(r.Context(), userID, claims, tokenString)))
	}
}

// WithClaims stores the authenticated identity in ctx
func WithClaims(ctx context.Context, userID uuid.UUID, claims jwt.MapClaims, tokenString string) context.Context {
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)

	ctx = context.WithValue(ctx, UserIDKey, userID.String())
	ctx = context.WithValue(ctx, RoleKey, role)
	ctx = context.WithValue(ctx, TokenKey, tokenString)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	return ctx
}

// startJanitor periodically cleans up expired cache entries
func (m *AuthMiddleware) startJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if deleted := m.purgeExpired(time.Now()); deleted > 0 {
				m.log.Debug("Token cache janitor purged expired entries", zap.Int("deleted", deleted))
			}
		case <-m.janitorStop:
			return
		}
	}
}

func (m *AuthMiddleware) purgeExpired(now time.Time) int {
	deleted := 0
	m.cache.Range(func(key, value interface{}) bool {
		if entry, ok := value.(cacheEntry); ok && now.Unix() >= entry.exp {
			m.cache.Delete(key)
			deleted++
		}
		return true
	})
	return deleted
}

// Stop stops the background janitor (for graceful shutdown)
func (m *AuthMiddleware) Stop() {
	m.stopOnce.Do(func() {
		close(m.janitorStop)
	})
}

// GetUserID extracts the authenticated user ID from request context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	raw, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// GetRole extracts role from request context
func GetRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// GetToken extracts token string from request context
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// GetUserEmail extracts user email from request context
func GetUserEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}
