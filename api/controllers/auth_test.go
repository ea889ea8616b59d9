package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/auth"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/users"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
)

type fakeAuthService struct {
	registerErr error
	loginResp   *auth.LoginResponse
	loginErr    error
	refreshResp *auth.RefreshResponse
	refreshErr  error
	loggedOut   []string
}

func (f *fakeAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &users.UserDTO{Email: req.Email, Status: enums.UserStatusPending}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuthService) Refresh(ctx context.Context, expiredAccessToken, refreshToken string) (*auth.RefreshResponse, error) {
	return f.refreshResp, f.refreshErr
}

func (f *fakeAuthService) Logout(ctx context.Context, accessID string) error {
	f.loggedOut = append(f.loggedOut, accessID)
	return nil
}

func TestAuthRegisterCreatesPendingAccount(t *testing.T) {
	handler := AuthRegister(&fakeAuthService{}, nil)

	body := `{"email":"new@example.com","password":"correct horse","display_name":"New User"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data users.UserDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.UserStatusPending {
		t.Fatalf("expected pending status got %s", envelope.Data.Status)
	}
}

func TestAuthRegisterValidatesBody(t *testing.T) {
	handler := AuthRegister(&fakeAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"not-an-email","password":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLoginSurfacesUnauthorized(t *testing.T) {
	svc := &fakeAuthService{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handler := AuthLogin(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@b.co","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRefreshRequiresBearerToken(t *testing.T) {
	handler := AuthRefresh(&fakeAuthService{refreshResp: &auth.RefreshResponse{}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"tok"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token got %d", resp.Code)
	}
}
