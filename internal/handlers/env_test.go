package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/relief-management-api/internal/backup"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/testutil"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	services Services
	gate     *backup.Gate
	lock     *backup.LocalLock
	store    *backup.LocalSnapshotStore

	mumbai *models.Area
	pune   *models.Area
	rice   *models.Product
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	store, err := backup.NewLocalSnapshotStore(t.TempDir())
	require.NoError(t, err)
	gate := backup.NewGate()
	lock := backup.NewLocalLock()

	backupService, err := backup.NewService(db, backup.Config{Store: store, Lock: lock, Gate: gate}, testutil.Logger())
	require.NoError(t, err)

	svc := NewServices(db, backupService)
	router := NewRouter(svc, RouterConfig{
		SessionStore: cookie.NewStore([]byte("secret")),
		Gate:         gate,
		Log:          testutil.Logger(),
	})

	env := testEnv{
		db:       db,
		router:   router,
		services: svc,
		gate:     gate,
		lock:     lock,
		store:    store,
	}

	testutil.CreateUser(t, db, "admin", models.RoleSuperAdmin)
	testutil.CreateUser(t, db, "visitor", models.RolePublic)
	env.mumbai = testutil.CreateArea(t, db, "Mumbai District")
	env.pune = testutil.CreateArea(t, db, "Pune District")
	food := testutil.CreateCategory(t, db, "Food")
	env.rice = testutil.CreateProduct(t, db, food.ID, "Rice", "kg")
	testutil.CreateAreaAdmin(t, db, "mumbai_admin", env.mumbai.ID)

	return env
}

// request sends body as JSON unless it is already a reader.
func (e testEnv) request(t *testing.T, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// login signs in with the fixture password and returns the session cookies.
func (e testEnv) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()

	w := e.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.APIError {
	t.Helper()
	var body apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
