package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
)

const secret = "test-secret-test-secret-test-secret"

type fakeUsers struct {
	rows map[string]*model.User
}

func (f *fakeUsers) EnsureUser(_ context.Context, u *model.User) (*model.User, error) {
	if existing, ok := f.rows[u.ID]; ok {
		return existing, nil
	}
	u.Role = model.RoleStudent
	f.rows[u.ID] = u
	return u, nil
}

func sign(t *testing.T, key string, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func claimsFor(sub string) Claims {
	return Claims{
		Email: "Alice@Campus.edu",
		Name:  "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "idp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newRouter(t *testing.T, users Users, extra ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	v, err := NewVerifier(secret, "idp")
	require.NoError(t, err)

	r := gin.New()
	handlers := append([]gin.HandlerFunc{Middleware(v, users)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, Principal(c))
	})
	r.GET("/me", handlers...)
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := NewVerifier("", "")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	users := &fakeUsers{rows: map[string]*model.User{}}
	r := newRouter(t, users)

	expired := claimsFor("u1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := claimsFor("u1")
	wrongIssuer.Issuer = "someone-else"

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong key", sign(t, "another-secret", claimsFor("u1")), http.StatusUnauthorized},
		{"expired", sign(t, secret, expired), http.StatusUnauthorized},
		{"wrong issuer", sign(t, secret, wrongIssuer), http.StatusUnauthorized},
		{"no subject", sign(t, secret, claimsFor("")), http.StatusUnauthorized},
		{"valid", sign(t, secret, claimsFor("u1")), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.token)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	require.Contains(t, users.rows, "u1")
	assert.Equal(t, "alice@campus.edu", users.rows["u1"].Email)
}

func TestMiddleware_Deactivated(t *testing.T) {
	users := &fakeUsers{rows: map[string]*model.User{
		"u2": {ID: "u2", Role: model.RoleStudent, IsDeactivated: true},
	}}
	r := newRouter(t, users)

	w := get(r, sign(t, secret, claimsFor("u2")))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoleGuards(t *testing.T) {
	users := &fakeUsers{rows: map[string]*model.User{
		"student": {ID: "student", Role: model.RoleStudent, TutorStatus: model.TutorStatusNone},
		"pending": {ID: "pending", Role: model.RoleStudent, TutorStatus: model.TutorStatusPending},
		"tutor":   {ID: "tutor", Role: model.RoleTutor, TutorStatus: model.TutorStatusApproved},
		"admin":   {ID: "admin", Role: model.RoleAdmin},
	}}
	tutorOnly := newRouter(t, users, RequireTutor())
	adminOnly := newRouter(t, users, RequireAdmin())

	tests := []struct {
		user  string
		tutor int
		admin int
	}{
		{"student", http.StatusForbidden, http.StatusForbidden},
		{"pending", http.StatusForbidden, http.StatusForbidden},
		{"tutor", http.StatusOK, http.StatusForbidden},
		{"admin", http.StatusOK, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			tok := sign(t, secret, claimsFor(tt.user))
			assert.Equal(t, tt.tutor, get(tutorOnly, tok).Code)
			assert.Equal(t, tt.admin, get(adminOnly, tok).Code)
		})
	}
}

func TestCronGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/allocate", CronGuard("s3cret", http.StatusUnauthorized), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/sweep", CronGuard("s3cret", http.StatusForbidden), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	locked := gin.New()
	locked.POST("/sweep", CronGuard("", http.StatusForbidden), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(h http.Handler, path, header string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if header != "" {
			req.Header.Set(CronHeader, header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(r, "/allocate", ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, "/allocate", "wrong"))
	assert.Equal(t, http.StatusNoContent, call(r, "/allocate", "s3cret"))
	assert.Equal(t, http.StatusForbidden, call(r, "/sweep", "s3cre"))
	assert.Equal(t, http.StatusNoContent, call(r, "/sweep", "s3cret"))
	assert.Equal(t, http.StatusForbidden, call(locked, "/sweep", ""))
}
