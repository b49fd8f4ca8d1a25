package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/relief-management-api/internal/access"
	"github.com/yukikurage/relief-management-api/internal/backup"
	"github.com/yukikurage/relief-management-api/internal/constants"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/testutil"
)

type fakeResolver map[uint64]*access.Identity

func (f fakeResolver) ResolveIdentity(userID uint64) (*access.Identity, error) {
	if id, ok := f[userID]; ok {
		return id, nil
	}
	return nil, apierrors.New(apierrors.KindNotFound, "user not found")
}

func init() {
	gin.SetMode(gin.TestMode)
}

// newEngine signs requests in as the user id given in the "as" query parameter.
func newEngine(resolver IdentityResolver) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.Use(func(c *gin.Context) {
		if as, err := strconv.ParseUint(c.Query("as"), 10, 64); err == nil {
			sessions.Default(c).Set(constants.ContextKeyUserID, as)
		}
		c.Next()
	})
	r.Use(LoadIdentity(resolver, testutil.Logger()))
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func areaID(v uint64) *uint64 {
	return &v
}

func TestLoadIdentity(t *testing.T) {
	admin := &access.Identity{UserID: 1, Username: "admin", Role: models.RoleSuperAdmin}
	r := newEngine(fakeResolver{1: admin})

	var seen *access.Identity
	var seenID uint64
	r.GET("/whoami", func(c *gin.Context) {
		seen = GetIdentity(c)
		seenID, _ = GetUserID(c)
		c.Status(http.StatusOK)
	})

	w := serve(r, http.MethodGet, "/whoami")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, seen)

	w = serve(r, http.MethodGet, "/whoami?as=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, admin, seen)
	assert.Equal(t, uint64(1), seenID)

	// A session for a deleted user continues anonymously.
	seen = nil
	w = serve(r, http.MethodGet, "/whoami?as=9")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, seen)
}

func TestRequirePermission(t *testing.T) {
	r := newEngine(fakeResolver{
		1: {UserID: 1, Role: models.RoleSuperAdmin},
		2: {UserID: 2, Role: models.RoleAreaAdmin, AreaID: areaID(4)},
		3: {UserID: 3, Role: models.RoleAreaAdmin},
	})
	r.GET("/staff", RequireAuth(), RequirePermission(access.ActionRead, access.ResourceNeed), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/areas", RequireAuth(), RequirePermission(access.ActionUpdate, access.ResourceArea), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		path string
		want int
	}{
		{"/staff", http.StatusUnauthorized},
		{"/staff?as=1", http.StatusOK},
		{"/staff?as=2", http.StatusOK},
		{"/staff?as=3", http.StatusForbidden},
		{"/areas?as=1", http.StatusOK},
		{"/areas?as=2", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(r, http.MethodGet, tt.path).Code)
		})
	}
}

func TestWriteGate(t *testing.T) {
	gate := backup.NewGate()
	r := gin.New()
	r.Use(WriteGate(gate, "/import"))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/items", ok)
	r.POST("/items", ok)
	r.POST("/import", ok)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/items").Code)

	gate.Close()
	w := serve(r, http.MethodPost, "/items")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), apierrors.ErrCodeBusy)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/items").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/import").Code)
	gate.Open()

	// Every admitted write leaves the gate, so an import can close it again.
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/items").Code)
	assert.True(t, gate.Enter())
	gate.Leave()
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(testutil.Logger()))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(constants.ContextKeyRequestID))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = serve(r, http.MethodGet, "/")
	assert.Len(t, w.Body.String(), 36)
}
