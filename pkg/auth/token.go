package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

const dummyPrefix = "dummy."

var (
	jwtSigningMethod = jwt.SigningMethodHS256

	// ErrDummyTokenFormat is returned for malformed dummy tokens.
	ErrDummyTokenFormat = errors.New("dummy token must be dummy.<role>.<userId>")
)

// MintAccessToken issues a signed JWT for principal using the configured TTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, principal Principal) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if !principal.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", principal.Role)
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return "", fmt.Errorf("user id is required")
	}

	claims := AccessTokenClaims{
		UserID: principal.UserID,
		Role:   principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   principal.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL())),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates the JWT string and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", claims.Role)
	}
	return claims, nil
}

// IsDummyToken reports whether token uses the development dummy format.
func IsDummyToken(token string) bool {
	return strings.HasPrefix(token, dummyPrefix)
}

// ParseDummyToken reads "dummy.<role>.<userId>". Callers must only accept
// these outside production.
func ParseDummyToken(token string) (Principal, error) {
	if !IsDummyToken(token) {
		return Principal{}, ErrDummyTokenFormat
	}
	parts := strings.SplitN(strings.TrimPrefix(token, dummyPrefix), ".", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return Principal{}, ErrDummyTokenFormat
	}
	role, err := enums.ParseRole(parts[0])
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: strings.TrimSpace(parts[1]), Role: role}, nil
}
