package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amoylab/atelier/internal/auth/session"
	"github.com/amoylab/atelier/internal/authz"
	"github.com/amoylab/atelier/internal/common/cnst"
	"github.com/amoylab/atelier/internal/guard"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeProtector struct {
	res     guard.Result
	session guard.Result
}

func (f fakeProtector) Protect(context.Context, *http.Request) guard.Result        { return f.res }
func (f fakeProtector) ProtectSession(context.Context, *http.Request) guard.Result { return f.session }

func performRequest(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func managerPrincipal() *authz.Principal {
	return authz.Build(
		&authz.User{ID: "u1", TenantID: "t1", Status: authz.StatusActive},
		[]*authz.Role{{ID: "r", Slug: authz.SlugManager, HierarchyLevel: authz.LevelManager}},
	)
}

func TestProtect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		res  guard.Result
		code int
		msg  string
	}{
		{"unauthenticated", guard.Result{StatusCode: 401, Error: authz.ErrUnauthenticated}, 401, "Authentication required"},
		{"inactive", guard.Result{StatusCode: 403, Error: authz.ErrAccountNotActive}, 403, "Your account is not active"},
		{"internal", guard.Result{StatusCode: 500, Error: errors.New("db down")}, 500, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/p", Protect(fakeProtector{res: tc.res}), func(c *gin.Context) { c.Status(http.StatusNoContent) })
			w := performRequest(r, http.MethodGet, "/p", nil)
			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.msg, errorBody(t, w))
		})
	}

	p := managerPrincipal()
	r := gin.New()
	r.GET("/p", Protect(fakeProtector{res: guard.Result{Success: true, Principal: p, StatusCode: 200}}), func(c *gin.Context) {
		assert.Same(t, p, Principal(c))
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, performRequest(r, http.MethodGet, "/p", nil).Code)
}

func TestProtectSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := &session.Identity{UserID: "u-invited"}
	r := gin.New()
	r.POST("/accept", ProtectSession(fakeProtector{session: guard.Result{Success: true, Identity: id}}), func(c *gin.Context) {
		assert.Same(t, id, Identity(c))
		assert.Nil(t, Principal(c))
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, performRequest(r, http.MethodPost, "/accept", nil).Code)

	r = gin.New()
	r.POST("/accept", ProtectSession(fakeProtector{session: guard.Result{StatusCode: 401}}), func(c *gin.Context) {
		t.Fatal("handler must not run")
	})
	assert.Equal(t, http.StatusUnauthorized, performRequest(r, http.MethodPost, "/accept", nil).Code)
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := guard.Result{Success: true, Principal: managerPrincipal()}
	r := gin.New()
	r.Use(Protect(fakeProtector{res: ok}))
	r.GET("/team", RequirePermission(authz.PermManageTeam), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.DELETE("/leads", RequirePermission(authz.PermDeleteLeads), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, performRequest(r, http.MethodGet, "/team", nil).Code)
	w := performRequest(r, http.MethodDelete, "/leads", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// no principal at all
	bare := gin.New()
	bare.GET("/team", RequirePermission(authz.PermManageTeam), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusForbidden, performRequest(bare, http.MethodGet, "/team", nil).Code)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, production := range []bool{true, false} {
		core, logs := observer.New(zapcore.ErrorLevel)
		r := gin.New()
		r.Use(Recovery(zap.New(core), production))
		r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

		w := performRequest(r, http.MethodGet, "/boom", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Internal server error", body["error"])
		if production {
			assert.NotContains(t, body, "stack")
			assert.NotContains(t, body, "detail")
		} else {
			assert.Equal(t, "kaboom", body["detail"])
			assert.Contains(t, body["stack"], "runtime/debug")
		}
		assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	}
}

func TestLang(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Lang())
	r.GET("/lang", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(cnst.XLang)) })

	assert.Equal(t, "zh", performRequest(r, http.MethodGet, "/lang", map[string]string{"Accept-Language": "zh-CN,zh;q=0.9"}).Body.String())
	assert.Equal(t, "en", performRequest(r, http.MethodGet, "/lang", nil).Body.String())

	r.Use(Protect(fakeProtector{res: guard.Result{StatusCode: 403}}))
	r.GET("/zh", func(c *gin.Context) {})
	w := performRequest(r, http.MethodGet, "/zh", map[string]string{cnst.XLang: "zh"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	// without translation files loaded the English text is the fallback
	assert.NotEmpty(t, errorBody(t, w))
}

func TestAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(AccessLog(zap.New(core)))
	r.GET("/ok", Protect(fakeProtector{res: guard.Result{Success: true, Principal: managerPrincipal()}}), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("store unavailable"))
		c.Status(http.StatusInternalServerError)
	})

	performRequest(r, http.MethodGet, "/ok", nil)
	performRequest(r, http.MethodGet, "/fail", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "u1", entries[0].ContextMap()["user_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Contains(t, entries[1].ContextMap()["errors"], "store unavailable")
}
