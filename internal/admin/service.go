package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/angelmondragon/merchdrop-backend/pkg/auth"
	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/security"
)

const invalidKeyMessage = "invalid admin key"

// Service issues and revokes operator sessions.
type Service interface {
	Login(ctx context.Context, req SessionRequest) (*SessionResponse, error)
	Logout(ctx context.Context, sessionID string) error
	Authenticate(ctx context.Context, token string) (*pkgAuth.AdminClaims, error)
}

type sessionManager interface {
	Open(ctx context.Context) (string, error)
	HasSession(ctx context.Context, sessionID string) (bool, error)
	Revoke(ctx context.Context, sessionID string) error
	TTL() time.Duration
}

type ServiceParams struct {
	Sessions sessionManager
	JWT      config.JWTConfig
	KeyHash  string
	Now      func() time.Time
}

type service struct {
	sessions sessionManager
	jwtCfg   config.JWTConfig
	keyHash  string
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if strings.TrimSpace(params.JWT.Secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		sessions: params.Sessions,
		jwtCfg:   params.JWT,
		keyHash:  strings.TrimSpace(params.KeyHash),
		now:      now,
	}, nil
}

func (s *service) Login(ctx context.Context, req SessionRequest) (*SessionResponse, error) {
	if s.keyHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "admin access is not configured")
	}
	key := strings.TrimSpace(req.AdminKey)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin_key is required")
	}

	ok, err := security.VerifySecret(key, s.keyHash)
	if errors.Is(err, security.ErrInvalidHash) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "admin key hash is malformed")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify admin key")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidKeyMessage)
	}

	sessionID, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store admin session")
	}
	token, claims, err := pkgAuth.MintAdminToken(s.jwtCfg, s.now(), s.sessions.TTL(), sessionID)
	if err != nil {
		_ = s.sessions.Revoke(ctx, sessionID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint admin token")
	}
	return &SessionResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke admin session")
	}
	return nil
}

// Authenticate parses the bearer token and confirms its session is live.
func (s *service) Authenticate(ctx context.Context, token string) (*pkgAuth.AdminClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing admin token")
	}
	claims, err := pkgAuth.ParseAdminToken(s.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid admin token")
	}
	live, err := s.sessions.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check admin session")
	}
	if !live {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin session revoked")
	}
	return claims, nil
}
