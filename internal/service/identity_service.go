package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/canteen-service/internal/auth"
	"github.com/spec-kit/canteen-service/internal/dingtalk"
	"github.com/spec-kit/canteen-service/internal/domain"
	"github.com/spec-kit/canteen-service/internal/repository"
)

// SSOGateway resolves login codes into user identities.
type SSOGateway interface {
	ResolveLoginCode(ctx context.Context, code string) (string, error)
	FetchUserProfile(ctx context.Context, userID string) (*dingtalk.UserProfile, error)
}

// VerifyResult carries the verified identity plus an optional non-fatal
// diagnostic: a failed user record sync does not fail the verification.
type VerifyResult struct {
	Profile      *dingtalk.UserProfile
	SessionToken string
	ExpiresAt    time.Time
	SyncWarning  error
}

// IdentityService verifies users against the SSO gateway and keeps the
// application user records in sync.
type IdentityService struct {
	gateway          SSOGateway
	users            repository.UserRepository
	tokens           *auth.TokenManager
	defaultCompanyID int64
	logger           *zap.Logger
}

// IdentityDependencies bundles collaborators for the identity service.
type IdentityDependencies struct {
	Gateway          SSOGateway
	UserRepo         repository.UserRepository
	TokenManager     *auth.TokenManager
	DefaultCompanyID int64
	Logger           *zap.Logger
}

// NewIdentityService builds the service.
func NewIdentityService(deps IdentityDependencies) *IdentityService {
	return &IdentityService{
		gateway:          deps.Gateway,
		users:            deps.UserRepo,
		tokens:           deps.TokenManager,
		defaultCompanyID: deps.DefaultCompanyID,
		logger:           deps.Logger,
	}
}

// VerifyUser resolves the login code, fetches the profile, upserts the
// application user record and issues a session token. The upsert failure is
// logged and reported as a warning on the result; verification still
// succeeds since the user-facing concern is authentication, not bookkeeping.
func (s *IdentityService) VerifyUser(ctx context.Context, code string) (*VerifyResult, error) {
	userID, err := s.gateway.ResolveLoginCode(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := s.gateway.FetchUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Profile: profile}

	user := &domain.AppUser{
		UserID:    userID,
		Username:  profile.Name,
		Avatar:    profile.Avatar,
		CompanyID: s.defaultCompanyID,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		s.logger.Warn("failed to sync app user record",
			zap.String("userid", userID), zap.Error(err))
		result.SyncWarning = err
	}

	token, expiresAt, err := s.tokens.GenerateToken(userID)
	if err != nil {
		return nil, err
	}
	result.SessionToken = token
	result.ExpiresAt = expiresAt

	return result, nil
}
