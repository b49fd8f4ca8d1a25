package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/relief-management-api/internal/constants"
	"github.com/yukikurage/relief-management-api/internal/dto"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
	"github.com/yukikurage/relief-management-api/internal/services"
	"github.com/yukikurage/relief-management-api/internal/testutil"
)

func TestAuthHandler_Signup(t *testing.T) {
	db := testutil.NewDB(t)
	authService := services.NewAuthService(repository.NewUserRepository(db), repository.NewAreaAssignmentRepository(db))
	handler := NewAuthHandler(authService)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	r.POST("/api/auth/signup", handler.Signup)

	payload := map[string]string{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "supersecret",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, payload["username"], response.Username)
	require.Equal(t, models.RolePublic, response.Role)
}

func TestAuthHandler_SignupRejectsShortPassword(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "shorty",
		"password": "short",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "admin",
		"password": "supersecret",
	}, nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "admin",
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "admin", response.Username)
	require.Equal(t, models.RoleSuperAdmin, response.Role)

	w = env.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "admin",
		"password": "wrong-password",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, apierrors.ErrCodeInvalidCredentials, decodeError(t, w).Code)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/auth/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	cookies := env.login(t, "mumbai_admin")
	w = env.request(t, http.MethodGet, "/api/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var me dto.MeDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	require.Equal(t, models.RoleAreaAdmin, me.Role)
	require.NotNil(t, me.AreaID)
	require.Equal(t, env.mumbai.ID, *me.AreaID)
	require.False(t, me.Orphaned)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupTestEnv(t)
	cookies := env.login(t, "admin")

	w := env.request(t, http.MethodPost, "/api/auth/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	// The cleared session replaces the old cookie.
	w = env.request(t, http.MethodGet, "/api/auth/me", nil, w.Result().Cookies())
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
