package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/core/services"
	"github.com/filevaulthq/filevault_app/internal/utils"
	"github.com/stretchr/testify/suite"
)

// AuthServiceTestSuite exercises the full login-session state machine with
// real token, session and user services over a stateful in-memory repository,
// so rotation and replay behave like they do against the database.
type AuthServiceTestSuite struct {
	suite.Suite
	users   map[string]*domain.User
	service portssvc.AuthSvcFacade
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.users = make(map[string]*domain.User)

	repo := new(MockUserRepository)
	repo.FindUserByIDFn = func(ctx context.Context, userID string) (*domain.User, error) {
		if u, ok := suite.users[userID]; ok {
			copied := *u
			return &copied, nil
		}
		return nil, apperrors.ErrNotFound
	}
	repo.FindUserByEmailFn = func(ctx context.Context, email string) (*domain.User, error) {
		for _, u := range suite.users {
			if u.Email == email {
				copied := *u
				return &copied, nil
			}
		}
		return nil, apperrors.ErrNotFound
	}
	repo.FindUserByProviderIDFn = func(ctx context.Context, provider domain.AuthProvider, providerUserID string) (*domain.User, error) {
		for _, u := range suite.users {
			if u.AuthProvider == provider && u.ProviderUserID == providerUserID {
				copied := *u
				return &copied, nil
			}
		}
		return nil, apperrors.ErrNotFound
	}
	repo.SaveUserFn = func(ctx context.Context, user domain.User) error {
		suite.users[user.UserID] = &user
		return nil
	}
	repo.UpdateUserFn = func(ctx context.Context, user domain.User) error {
		stored, ok := suite.users[user.UserID]
		if !ok {
			return apperrors.ErrNotFound
		}
		user.RefreshTokenHash = stored.RefreshTokenHash
		user.RefreshTokenExpiryTime = stored.RefreshTokenExpiryTime
		suite.users[user.UserID] = &user
		return nil
	}
	repo.UpdateLastLoginFn = func(ctx context.Context, userID string, loginAt time.Time) error {
		if u, ok := suite.users[userID]; ok {
			u.LastLoginAt = &loginAt
			return nil
		}
		return apperrors.ErrNotFound
	}
	repo.UpdateRefreshTokenFn = func(ctx context.Context, userID string, hash string, expiry time.Time) error {
		if u, ok := suite.users[userID]; ok {
			u.RefreshTokenHash = hash
			u.RefreshTokenExpiryTime = &expiry
			return nil
		}
		return apperrors.ErrNotFound
	}
	repo.RotateRefreshTokenFn = func(ctx context.Context, userID string, oldHash, newHash string, expiry time.Time) error {
		u, ok := suite.users[userID]
		if !ok || u.RefreshTokenHash != oldHash {
			return apperrors.ErrInvalidRefreshToken
		}
		u.RefreshTokenHash = newHash
		u.RefreshTokenExpiryTime = &expiry
		return nil
	}
	repo.ClearRefreshTokenFn = func(ctx context.Context, userID string) error {
		if u, ok := suite.users[userID]; ok {
			u.RefreshTokenHash = ""
			u.RefreshTokenExpiryTime = nil
		}
		return nil
	}

	access := newTestSigner(suite.T(), testAccessSecret, services.TokenTypeAccess, 15*time.Minute)
	refresh := newTestSigner(suite.T(), testRefreshSecret, services.TokenTypeRefresh, 7*24*time.Hour)
	tokenService := services.NewTokenServiceWithSigners(access, refresh)

	userService := services.NewUserService(repo)
	sessionService := services.NewSessionService(repo)
	suite.service = services.NewAuthService(userService, tokenService, sessionService, repo)
}

func (suite *AuthServiceTestSuite) register(email, password string) *domain.User {
	user, pair, err := suite.service.Register(context.Background(), email, password, "Test User")
	suite.Require().NoError(err)
	suite.Require().NotNil(pair)
	return user
}

func (suite *AuthServiceTestSuite) TestRegisterOpensSession() {
	ctx := context.Background()

	user, pair, err := suite.service.Register(ctx, "reg@example.com", "Password123", "Reg User")

	suite.Require().NoError(err)
	suite.NotEmpty(pair.AccessToken)
	suite.NotEmpty(pair.RefreshToken)
	stored := suite.users[user.UserID]
	suite.Equal(utils.HashRefreshToken(pair.RefreshToken), stored.RefreshTokenHash)
}

func (suite *AuthServiceTestSuite) TestLoginStoresRotatableToken() {
	ctx := context.Background()
	suite.register("login@example.com", "Password123")

	user, pair, err := suite.service.Login(ctx, "login@example.com", "Password123")

	suite.Require().NoError(err)
	suite.NotNil(user.LastLoginAt)
	suite.Equal(utils.HashRefreshToken(pair.RefreshToken), suite.users[user.UserID].RefreshTokenHash)
}

func (suite *AuthServiceTestSuite) TestLoginWrongPassword() {
	ctx := context.Background()
	suite.register("login2@example.com", "Password123")

	_, _, err := suite.service.Login(ctx, "login2@example.com", "WrongPassword1")

	suite.ErrorIs(err, apperrors.ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestRefreshRotatesAndKillsOldToken() {
	ctx := context.Background()
	_, pair, err := suite.service.Register(ctx, "rot@example.com", "Password123", "Rot User")
	suite.Require().NoError(err)

	// First refresh succeeds and rotates the slot.
	_, newPair, err := suite.service.Refresh(ctx, pair.RefreshToken)
	suite.Require().NoError(err)
	suite.NotEqual(pair.RefreshToken, newPair.RefreshToken)

	// Replaying the consumed token must fail even though its signature is
	// still valid.
	_, _, err = suite.service.Refresh(ctx, pair.RefreshToken)
	suite.ErrorIs(err, apperrors.ErrInvalidRefreshToken)

	// The rotated-in token still works.
	_, _, err = suite.service.Refresh(ctx, newPair.RefreshToken)
	suite.Require().NoError(err)
}

func (suite *AuthServiceTestSuite) TestRefreshAfterLogoutFails() {
	ctx := context.Background()
	user, pair, err := suite.service.Register(ctx, "out@example.com", "Password123", "Out User")
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.Logout(ctx, user.UserID))

	_, _, err = suite.service.Refresh(ctx, pair.RefreshToken)
	suite.ErrorIs(err, apperrors.ErrInvalidRefreshToken)

	// Logout twice is fine.
	suite.Require().NoError(suite.service.Logout(ctx, user.UserID))
}

func (suite *AuthServiceTestSuite) TestRefreshForDeactivatedUserFails() {
	ctx := context.Background()
	user, pair, err := suite.service.Register(ctx, "deact@example.com", "Password123", "Deact User")
	suite.Require().NoError(err)

	suite.users[user.UserID].IsActive = false

	_, _, err = suite.service.Refresh(ctx, pair.RefreshToken)
	suite.ErrorIs(err, apperrors.ErrInvalidRefreshToken)
}

func (suite *AuthServiceTestSuite) TestRefreshWithGarbageFails() {
	_, _, err := suite.service.Refresh(context.Background(), "garbage")
	suite.ErrorIs(err, apperrors.ErrInvalidRefreshToken)
}

// Changing the password must end every other session: their refresh tokens
// stop matching the emptied slot.
func (suite *AuthServiceTestSuite) TestChangePasswordEndsOtherSessions() {
	ctx := context.Background()
	user, pair, err := suite.service.Register(ctx, "chg@example.com", "Password123", "Chg User")
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.ChangePassword(ctx, user.UserID, "Password123", "NewPassword1"))

	_, _, err = suite.service.Refresh(ctx, pair.RefreshToken)
	suite.ErrorIs(err, apperrors.ErrInvalidRefreshToken)

	// The new password works, the old one does not.
	_, _, err = suite.service.Login(ctx, "chg@example.com", "NewPassword1")
	suite.Require().NoError(err)
	_, _, err = suite.service.Login(ctx, "chg@example.com", "Password123")
	suite.ErrorIs(err, apperrors.ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestFederatedLoginCreatesAndReuses() {
	ctx := context.Background()
	profile := domain.GoogleUserInfo{ID: "google-sub-9", Email: "fed@example.com", VerifiedEmail: true, Name: "Fed User"}

	first, pair, err := suite.service.FederatedLogin(ctx, profile)
	suite.Require().NoError(err)
	suite.NotEmpty(pair.AccessToken)

	second, _, err := suite.service.FederatedLogin(ctx, profile)
	suite.Require().NoError(err)
	suite.Equal(first.UserID, second.UserID)
	suite.Len(suite.users, 1)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
