package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vfg2006/billing-manager-api/internal/domain"
	"github.com/vfg2006/billing-manager-api/internal/usecases/authenticating"
	"github.com/vfg2006/billing-manager-api/internal/usecases/authenticating/mocks"
	"github.com/vfg2006/billing-manager-api/pkg/middleware"
)

func TestLogin_Sucesso(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthenticator(ctrl)
	mockAuth.EXPECT().LoginUser("conv", "123").Return("token-jwt", nil)
	mockAuth.EXPECT().UserByUsername("conv").Return(&domain.User{
		Username: "conv",
		Name:     "Gestor Conveniências",
		Role:     domain.RoleManager,
		Segment:  domain.SegmentConveniences,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(`{"username":"conv","password":"123"}`))
	rec := httptest.NewRecorder()

	Login(mockAuth).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "token-jwt", resp.Token)
	assert.Equal(t, "conv", resp.User.Username)
	assert.Equal(t, domain.SegmentConveniences, resp.User.Segment)
}

func TestLogin_CredenciaisInvalidas(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthenticator(ctrl)
	mockAuth.EXPECT().LoginUser("conv", "errada").Return("", authenticating.ErrInvalidCredentials)

	req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(`{"username":"conv","password":"errada"}`))
	rec := httptest.NewRecorder()

	Login(mockAuth).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "AUTH_001")
}

func TestLogin_CorpoInvalido(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthenticator(ctrl)

	req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader("nao é json"))
	rec := httptest.NewRecorder()

	Login(mockAuth).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMe_RetornaUsuarioDoToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthenticator(ctrl)
	mockAuth.EXPECT().UserByUsername("dono").Return(&domain.User{
		Username: "dono",
		Name:     "Proprietário",
		Role:     domain.RoleOwner,
	}, nil)

	claims := &domain.Claims{Username: "dono", UserRole: domain.RoleOwner}
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.ContextKeyUser, claims))
	rec := httptest.NewRecorder()

	GetMe(mockAuth).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var user domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, domain.RoleOwner, user.Role)
}

func TestGetMe_SemAutenticacao(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthenticator(ctrl)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()

	GetMe(mockAuth).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
