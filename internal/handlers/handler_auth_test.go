package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/core/services"
	"github.com/filevaulthq/filevault_app/internal/dto"
	"github.com/filevaulthq/filevault_app/internal/handlers"
	"github.com/filevaulthq/filevault_app/internal/platform/config"
	"github.com/filevaulthq/filevault_app/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	testAccessSecret  = "handler-test-access-secret-0123"
	testRefreshSecret = "handler-test-refresh-secret-0123"
	testIssuer        = "filevault-test"
	testAudience      = "filevault-api-test"
)

// --- Mock AuthService ---
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*domain.User, *portssvc.TokenPair, error) {
	args := m.Called(ctx, email, password, name)
	return userArg(args, 0), pairArg(args, 1), args.Error(2)
}
func (m *MockAuthService) Login(ctx context.Context, email, password string) (*domain.User, *portssvc.TokenPair, error) {
	args := m.Called(ctx, email, password)
	return userArg(args, 0), pairArg(args, 1), args.Error(2)
}
func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *portssvc.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	return userArg(args, 0), pairArg(args, 1), args.Error(2)
}
func (m *MockAuthService) Logout(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
func (m *MockAuthService) FederatedLogin(ctx context.Context, profile domain.GoogleUserInfo) (*domain.User, *portssvc.TokenPair, error) {
	args := m.Called(ctx, profile)
	return userArg(args, 0), pairArg(args, 1), args.Error(2)
}
func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	args := m.Called(ctx, userID, currentPassword, newPassword)
	return args.Error(0)
}

var _ portssvc.AuthSvcFacade = (*MockAuthService)(nil)

func userArg(args mock.Arguments, i int) *domain.User {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*domain.User)
}

func pairArg(args mock.Arguments, i int) *portssvc.TokenPair {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*portssvc.TokenPair)
}

// --- Mock UserService ---
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	return userArg(args, 0), args.Error(1)
}
func (m *MockUserService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	return userArg(args, 0), args.Error(1)
}
func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	var users []domain.User
	if args.Get(0) != nil {
		users = args.Get(0).([]domain.User)
	}
	return users, args.Error(1)
}
func (m *MockUserService) CreateLocalUser(ctx context.Context, email, password, name string) (*domain.User, error) {
	args := m.Called(ctx, email, password, name)
	return userArg(args, 0), args.Error(1)
}
func (m *MockUserService) CreateOAuthUser(ctx context.Context, profile domain.GoogleUserInfo, provider domain.AuthProvider) (*domain.User, error) {
	args := m.Called(ctx, profile, provider)
	return userArg(args, 0), args.Error(1)
}
func (m *MockUserService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, userID, req)
	return userArg(args, 0), args.Error(1)
}
func (m *MockUserService) ChangePassword(ctx context.Context, userID string, currentPassword, newPassword string) error {
	args := m.Called(ctx, userID, currentPassword, newPassword)
	return args.Error(0)
}
func (m *MockUserService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	return userArg(args, 0), args.Error(1)
}
func (m *MockUserService) DeactivateUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

var _ portssvc.UserSvcFacade = (*MockUserService)(nil)

// --- Mock FileService ---
type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) Upload(ctx context.Context, actor *domain.User, upload portssvc.FileUpload) (*domain.File, error) {
	args := m.Called(ctx, actor, upload)
	return fileArg(args, 0), args.Error(1)
}
func (m *MockFileService) GetFile(ctx context.Context, actor *domain.User, fileID string) (*domain.File, error) {
	args := m.Called(ctx, actor, fileID)
	return fileArg(args, 0), args.Error(1)
}
func (m *MockFileService) ListFiles(ctx context.Context, actor *domain.User, params dto.ListFilesParams) ([]domain.File, string, error) {
	args := m.Called(ctx, actor, params)
	var files []domain.File
	if args.Get(0) != nil {
		files = args.Get(0).([]domain.File)
	}
	return files, args.String(1), args.Error(2)
}
func (m *MockFileService) Download(ctx context.Context, actor *domain.User, fileID string) (*portssvc.FileDownload, error) {
	args := m.Called(ctx, actor, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.FileDownload), args.Error(1)
}
func (m *MockFileService) PresignDownload(ctx context.Context, actor *domain.User, fileID string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, actor, fileID, expiry)
	return args.String(0), args.Error(1)
}
func (m *MockFileService) UpdateFile(ctx context.Context, actor *domain.User, fileID string, req dto.UpdateFileRequest) (*domain.File, error) {
	args := m.Called(ctx, actor, fileID, req)
	return fileArg(args, 0), args.Error(1)
}
func (m *MockFileService) DeleteFile(ctx context.Context, actor *domain.User, fileID string) error {
	args := m.Called(ctx, actor, fileID)
	return args.Error(0)
}
func (m *MockFileService) ShareFile(ctx context.Context, actor *domain.User, fileID string, granteeID string, perm domain.SharePermission) (*domain.File, error) {
	args := m.Called(ctx, actor, fileID, granteeID, perm)
	return fileArg(args, 0), args.Error(1)
}
func (m *MockFileService) RevokeShare(ctx context.Context, actor *domain.User, fileID string, granteeID string) error {
	args := m.Called(ctx, actor, fileID, granteeID)
	return args.Error(0)
}

var _ portssvc.FileSvcFacade = (*MockFileService)(nil)

func fileArg(args mock.Arguments, i int) *domain.File {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*domain.File)
}

// testConfig returns a config matching what the routes under test need.
func testConfig() *config.Config {
	return &config.Config{
		Port:                      "8080",
		AccessTokenCookieName:     "atid",
		RefreshTokenCookieName:    "rtid",
		RefreshTokenCookiePath:    "/api/v1/auth",
		DownloadURLExpiryDuration: 15 * time.Minute,
	}
}

// newTestRouter builds a router with the real middleware and a real token
// service over mocked application services.
func newTestRouter(t *testing.T, cfg *config.Config, auth *MockAuthService, user *MockUserService, file *MockFileService) (*gin.Engine, portssvc.TokenSvcFacade) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handlers.RegisterCustomValidators()

	access, err := utils.NewHMACSigner(testAccessSecret, services.TokenTypeAccess, testIssuer, testAudience, 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to build access signer: %v", err)
	}
	refresh, err := utils.NewHMACSigner(testRefreshSecret, services.TokenTypeRefresh, testIssuer, testAudience, time.Hour)
	if err != nil {
		t.Fatalf("failed to build refresh signer: %v", err)
	}
	tokenService := services.NewTokenServiceWithSigners(access, refresh)

	container := &portssvc.ServiceContainer{
		User:        user,
		Token:       tokenService,
		Auth:        auth,
		Access:      services.NewAccessService(),
		File:        file,
		GoogleOAuth: services.NewGoogleOAuthService(cfg),
	}

	r := gin.New()
	handlers.RegisterRoutes(r, cfg, container, nil)
	return r, tokenService
}

// --- Test Suite ---
type AuthHandlerTestSuite struct {
	suite.Suite
	router          *gin.Engine
	tokenService    portssvc.TokenSvcFacade
	mockAuthService *MockAuthService
	mockUserService *MockUserService
	mockFileService *MockFileService
	cfg             *config.Config
}

func (suite *AuthHandlerTestSuite) SetupTest() {
	suite.cfg = testConfig()
	suite.mockAuthService = new(MockAuthService)
	suite.mockUserService = new(MockUserService)
	suite.mockFileService = new(MockFileService)
	suite.router, suite.tokenService = newTestRouter(suite.T(), suite.cfg,
		suite.mockAuthService, suite.mockUserService, suite.mockFileService)
}

func (suite *AuthHandlerTestSuite) activeUser() *domain.User {
	return &domain.User{
		UserID:       uuid.NewString(),
		Email:        "user@example.com",
		Name:         "Test User",
		Role:         domain.RoleUser,
		AuthProvider: domain.ProviderLocal,
		IsActive:     true,
	}
}

func testPair() *portssvc.TokenPair {
	return &portssvc.TokenPair{
		AccessToken:      "access-token",
		AccessExpiresAt:  time.Now().Add(15 * time.Minute),
		RefreshToken:     "refresh-token",
		RefreshExpiresAt: time.Now().Add(time.Hour),
	}
}

func (suite *AuthHandlerTestSuite) postJSON(path string, body any) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	suite.Require().NoError(err)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func errorCode(suite *AuthHandlerTestSuite, w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

// --- Register / Login ---

func (suite *AuthHandlerTestSuite) TestRegister_Success() {
	user := suite.activeUser()
	pair := testPair()
	suite.mockAuthService.On("Register", mock.Anything, user.Email, "Password123", user.Name).
		Return(user, pair, nil).Once()

	w := suite.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:    user.Email,
		Password: "Password123",
		Name:     user.Name,
	})

	suite.Equal(http.StatusCreated, w.Code)

	var resp dto.AuthResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(user.Email, resp.User.Email)
	suite.Equal(pair.AccessToken, resp.Tokens.AccessToken)

	accessCookie := cookieNamed(w, suite.cfg.AccessTokenCookieName)
	suite.Require().NotNil(accessCookie)
	suite.Equal(pair.AccessToken, accessCookie.Value)
	suite.True(accessCookie.HttpOnly)

	refreshCookie := cookieNamed(w, suite.cfg.RefreshTokenCookieName)
	suite.Require().NotNil(refreshCookie)
	suite.Equal("/api/v1/auth", refreshCookie.Path)

	suite.mockAuthService.AssertExpectations(suite.T())
}

func (suite *AuthHandlerTestSuite) TestRegister_WeakPasswordRejected() {
	w := suite.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:    "user@example.com",
		Password: "weak",
		Name:     "Test User",
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockAuthService.AssertNotCalled(suite.T(), "Register",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AuthHandlerTestSuite) TestLogin_InvalidCredentials() {
	suite.mockAuthService.On("Login", mock.Anything, "user@example.com", "WrongPassword1").
		Return(nil, nil, apperrors.ErrInvalidCredentials).Once()

	w := suite.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "user@example.com",
		Password: "WrongPassword1",
	})

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apperrors.CodeInvalidCreds, errorCode(suite, w))
}

// --- Refresh ---

func (suite *AuthHandlerTestSuite) TestRefresh_FallsBackToCookie() {
	user := suite.activeUser()
	pair := testPair()
	suite.mockAuthService.On("Refresh", mock.Anything, "cookie-refresh-token").
		Return(user, pair, nil).Once()

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: suite.cfg.RefreshTokenCookieName, Value: "cookie-refresh-token"})
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockAuthService.AssertExpectations(suite.T())
}

func (suite *AuthHandlerTestSuite) TestRefresh_InvalidTokenClearsCookies() {
	suite.mockAuthService.On("Refresh", mock.Anything, "stale-token").
		Return(nil, nil, apperrors.ErrInvalidRefreshToken).Once()

	w := suite.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: "stale-token"})

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apperrors.CodeRefreshInvalid, errorCode(suite, w))

	accessCookie := cookieNamed(w, suite.cfg.AccessTokenCookieName)
	suite.Require().NotNil(accessCookie)
	suite.Empty(accessCookie.Value)
}

func (suite *AuthHandlerTestSuite) TestRefresh_MissingToken() {
	w := suite.postJSON("/api/v1/auth/refresh", gin.H{})

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockAuthService.AssertNotCalled(suite.T(), "Refresh", mock.Anything, mock.Anything)
}

// --- Logout ---

func (suite *AuthHandlerTestSuite) TestLogout_AnonymousStillClearsCookies() {
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNoContent, w.Code)
	suite.NotNil(cookieNamed(w, suite.cfg.AccessTokenCookieName))
	suite.mockAuthService.AssertNotCalled(suite.T(), "Logout", mock.Anything, mock.Anything)
}

func (suite *AuthHandlerTestSuite) TestLogout_WithAccessToken() {
	user := suite.activeUser()
	token, _, err := suite.tokenService.IssueAccessToken(user.UserID)
	suite.Require().NoError(err)

	suite.mockUserService.On("GetUserByID", mock.Anything, user.UserID).Return(user, nil).Once()
	suite.mockAuthService.On("Logout", mock.Anything, user.UserID).Return(nil).Once()

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNoContent, w.Code)
	suite.mockAuthService.AssertExpectations(suite.T())
}

// --- Access token middleware via the profile route ---

func (suite *AuthHandlerTestSuite) TestProtectedRoute_NoToken() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apperrors.CodeNoToken, errorCode(suite, w))
}

func (suite *AuthHandlerTestSuite) TestProtectedRoute_ExpiredToken() {
	expiredSigner, err := utils.NewHMACSigner(testAccessSecret, services.TokenTypeAccess, testIssuer, testAudience, -time.Minute)
	suite.Require().NoError(err)
	token, _, err := expiredSigner.Sign(uuid.NewString())
	suite.Require().NoError(err)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apperrors.CodeTokenExpired, errorCode(suite, w))
}

func (suite *AuthHandlerTestSuite) TestProtectedRoute_Success() {
	user := suite.activeUser()
	token, _, err := suite.tokenService.IssueAccessToken(user.UserID)
	suite.Require().NoError(err)
	suite.mockUserService.On("GetUserByID", mock.Anything, user.UserID).Return(user, nil).Once()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var resp dto.UserResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(user.Email, resp.Email)
}

func (suite *AuthHandlerTestSuite) TestProtectedRoute_DeactivatedAccount() {
	user := suite.activeUser()
	user.IsActive = false
	token, _, err := suite.tokenService.IssueAccessToken(user.UserID)
	suite.Require().NoError(err)
	suite.mockUserService.On("GetUserByID", mock.Anything, user.UserID).Return(user, nil).Once()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(apperrors.CodeDeactivated, errorCode(suite, w))
}

// Browser sessions carry the access token in a cookie instead of the header.
func (suite *AuthHandlerTestSuite) TestProtectedRoute_AccessCookie() {
	user := suite.activeUser()
	token, _, err := suite.tokenService.IssueAccessToken(user.UserID)
	suite.Require().NoError(err)
	suite.mockUserService.On("GetUserByID", mock.Anything, user.UserID).Return(user, nil).Once()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.AddCookie(&http.Cookie{Name: suite.cfg.AccessTokenCookieName, Value: token})
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
}

func (suite *AuthHandlerTestSuite) TestAdminRoute_ForbiddenForRegularUser() {
	user := suite.activeUser()
	token, _, err := suite.tokenService.IssueAccessToken(user.UserID)
	suite.Require().NoError(err)
	suite.mockUserService.On("GetUserByID", mock.Anything, user.UserID).Return(user, nil).Once()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusForbidden, w.Code)
	suite.mockUserService.AssertNotCalled(suite.T(), "ListUsers", mock.Anything, mock.Anything, mock.Anything)
}

// --- Health ---

func (suite *AuthHandlerTestSuite) TestHealthEndpoint() {
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	suite.Contains(string(body), "ok")
}

func TestAuthHandler(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}
