package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// JWTClaims carries the caller's user id and role. Tokens are issued by the
// account service and share its HS256 secret.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

// ObjectID returns the caller's user id.
func (c *JWTClaims) ObjectID() (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.UserID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: malformed user_id", ErrTokenInvalid)
	}
	return id, nil
}

// GenerateAccessToken signs a token for userID. Used by tooling and tests.
func GenerateAccessToken(userID primitive.ObjectID, userType, secretKey string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = JWTAccessTokenTTL
	}
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		UserID:   userID.Hex(),
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    AppName,
			Subject:   userID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secretKey))
}

// ValidateToken verifies the signature and time claims of tokenString.
// Expired tokens yield ErrTokenExpired; every other failure ErrTokenInvalid.
func ValidateToken(tokenString, secretKey string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.UserID == "" || claims.UserType == "" {
		return nil, fmt.Errorf("%w: missing user claims", ErrTokenInvalid)
	}
	return claims, nil
}
