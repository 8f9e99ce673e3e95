package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
)

const (
	adminAudience = "merchdrop-admin"
	clockLeeway   = 30 * time.Second
)

var (
	signingMethod = jwt.SigningMethodHS256

	ErrNoSecret = errors.New("jwt secret is required")
	ErrNoIssuer = errors.New("jwt issuer is required")
)

func checkConfig(cfg config.JWTConfig) error {
	var errs []error
	if cfg.Secret == "" {
		errs = append(errs, ErrNoSecret)
	}
	if cfg.Issuer == "" {
		errs = append(errs, ErrNoIssuer)
	}
	return errors.Join(errs...)
}

// MintAdminToken signs an admin session token that expires after ttl. The
// session id becomes the jti; a blank one is generated.
func MintAdminToken(cfg config.JWTConfig, now time.Time, ttl time.Duration, sessionID string) (string, *AdminClaims, error) {
	if err := checkConfig(cfg); err != nil {
		return "", nil, err
	}
	if ttl <= 0 {
		return "", nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	if sessionID = strings.TrimSpace(sessionID); sessionID == "" {
		sessionID = uuid.NewString()
	}

	claims := &AdminClaims{Role: RoleAdmin}
	claims.ID = sessionID
	claims.Issuer = cfg.Issuer
	claims.Subject = RoleAdmin
	claims.Audience = jwt.ClaimStrings{adminAudience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", nil, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, claims, nil
}

// ParseAdminToken checks signature, issuer, audience and expiry, then the
// admin role and session id.
func ParseAdminToken(cfg config.JWTConfig, raw string) (*AdminClaims, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(adminAudience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockLeeway),
	)
	claims := &AdminClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	switch {
	case claims.Role != RoleAdmin:
		return nil, fmt.Errorf("token role %q is not %s", claims.Role, RoleAdmin)
	case claims.ID == "":
		return nil, errors.New("token has no session id")
	}
	return claims, nil
}
