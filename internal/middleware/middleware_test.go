package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newRouter(validator TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/students/:id", JWT(validator), RequireRoles(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentClaims(c).UserID)
	})
	return r
}

func doGet(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/students/s1", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRoles(t *testing.T) {
	admin := stubValidator{claims: &models.JWTClaims{UserID: "admin1", Role: models.RoleAdmin}}
	student := stubValidator{claims: &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}}

	w := doGet(newRouter(admin, models.RoleAdmin), "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin1", w.Body.String())

	cases := []struct {
		name   string
		v      TokenValidator
		auth   string
		status int
	}{
		{"missing header", admin, "", http.StatusUnauthorized},
		{"wrong scheme", admin, "Basic good", http.StatusUnauthorized},
		{"empty token", admin, "Bearer ", http.StatusUnauthorized},
		{"bad token", admin, "Bearer bad", http.StatusUnauthorized},
		{"student on admin route", student, "bearer good", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doGet(newRouter(tc.v, models.RoleAdmin), tc.auth)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/empty", func(c *gin.Context) {
		assert.Nil(t, ExtractMeta(c))
		c.Status(http.StatusOK)
	})
	r.GET("/meta", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetAsOf(c, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/empty", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meta", nil))
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, "2025-03-10T09:00:00Z", meta["as_of"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestAuditLogsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "admin1", Role: models.RoleAdmin})
	})
	r.POST("/students/:id/deactivate", Audit(zap.New(core), "student.deactivate"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/students/:id/fail", Audit(zap.New(core), "student.fail"), func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/students/s9/deactivate", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/students/s9/fail", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "student.deactivate", fields["action"])
	assert.Equal(t, "s9", fields["target_id"])
	assert.Equal(t, "admin1", fields["actor_id"])
}
