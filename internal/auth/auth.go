package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wordaddict/finance-sub001/internal"
)

const wishlistAudience = "wishlist-admin"

// SessionClaims reference a server-side session row; the JWT alone grants nothing.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// GrantClaims carry a scoped access grant, such as the wishlist admin cookie.
type GrantClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenGenerator signs and validates session and grant tokens.
type TokenGenerator interface {
	GenerateSessionToken(sessionID, userID string, expiresAt time.Time) (string, error)
	ValidateSessionToken(tokenString string) (*SessionClaims, error)
	GenerateAccessGrant(email string, expiresAt time.Time) (string, error)
	ValidateAccessGrant(tokenString string) (string, error)
}

type JWTTokenGenerator struct {
	secret []byte
}

// NewJWTTokenGenerator creates a new HS256 token generator
func NewJWTTokenGenerator(secret string) *JWTTokenGenerator {
	return &JWTTokenGenerator{secret: []byte(secret)}
}

func (j *JWTTokenGenerator) GenerateSessionToken(sessionID, userID string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWTTokenGenerator) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := j.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return nil, internal.ErrUnauthenticated
	}
	return claims, nil
}

func (j *JWTTokenGenerator) GenerateAccessGrant(email string, expiresAt time.Time) (string, error) {
	claims := &GrantClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Audience:  jwt.ClaimStrings{wishlistAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWTTokenGenerator) ValidateAccessGrant(tokenString string) (string, error) {
	claims := &GrantClaims{}
	if err := j.parse(tokenString, claims, jwt.WithAudience(wishlistAudience)); err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", internal.ErrUnauthenticated
	}
	return claims.Email, nil
}

func (j *JWTTokenGenerator) parse(tokenString string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return internal.NewUnauthorizedError("session expired", internal.ErrCodeTokenExpired)
		}
		return internal.ErrUnauthenticated
	}
	if !token.Valid {
		return internal.ErrUnauthenticated
	}
	return nil
}

// NewOpaqueToken returns a random URL-safe token and the hash stored for it.
func NewOpaqueToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken is the lookup key for verification and reset tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
