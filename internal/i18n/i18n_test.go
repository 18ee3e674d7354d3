package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/amoylab/atelier/internal/common/cnst"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func writeZH(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := []byte("[ErrorMemberNotFound]\nother = \"团队成员不存在\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zh.toml"), content, 0o644))
	// non-toml files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644))
	return dir
}

func TestTranslate_BuiltinAndLoaded(t *testing.T) {
	tr := NewI18n(language.English)
	require.NoError(t, tr.LoadTranslations(writeZH(t)))

	assert.Equal(t, "Team member not found", tr.Translate("ErrorMemberNotFound", "en", nil))
	assert.Equal(t, "团队成员不存在", tr.Translate("ErrorMemberNotFound", "zh", nil))
	// zh has no entry, falls back to English
	assert.Equal(t, "Authentication required", tr.Translate("ErrorUnauthenticated", "zh", nil))
	assert.Equal(t, "NoSuchMessage", tr.Translate("NoSuchMessage", "en", nil))
	assert.Equal(t, "Invalid request: bad id", tr.Translate("ErrorBadRequest", "en", map[string]any{"Reason": "bad id"}))
}

func TestLoadTranslations_Errors(t *testing.T) {
	tr := NewI18n(language.English)
	assert.Error(t, tr.LoadTranslations(filepath.Join(t.TempDir(), "missing")))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.toml"), []byte("not = [valid"), 0o644))
	assert.Error(t, tr.LoadTranslations(dir))
}

func TestLoadShippedTranslations(t *testing.T) {
	tr := NewI18n(language.English)
	require.NoError(t, tr.LoadTranslations(filepath.Join("..", "..", "configs", "i18n")))
	for _, m := range defaultMessages {
		assert.NotEqual(t, m.ID, tr.Translate(m.ID, "zh", map[string]any{"Reason": "x"}), m.ID)
	}
}

func TestLanguageFromRequest(t *testing.T) {
	cases := []struct {
		xlang, accept, want string
	}{
		{"zh-CN", "", "zh"},
		{"", "zh-TW,zh;q=0.9,en;q=0.8", "zh"},
		{"", "fr-FR", cnst.LangDefault},
		{"", "", cnst.LangDefault},
		{"EN", "zh", "en"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.xlang != "" {
			r.Header.Set(cnst.XLang, tc.xlang)
		}
		if tc.accept != "" {
			r.Header.Set("Accept-Language", tc.accept)
		}
		assert.Equal(t, tc.want, LanguageFromRequest(r), fmt.Sprintf("%+v", tc))
	}
}

func TestErrorWithCode(t *testing.T) {
	withParam := ErrBadRequest.WithParam("Reason", "x")
	assert.Nil(t, ErrBadRequest.Data, "shared value must not be mutated")
	assert.True(t, errors.Is(withParam, ErrBadRequest))
	assert.False(t, errors.Is(withParam, ErrorMemberNotFound))
	assert.Equal(t, ErrorBadRequest, withParam.Code)

	wrapped := fmt.Errorf("handler: %w", ErrorMemberExists)
	assert.True(t, errors.Is(wrapped, ErrorMemberExists))
	assert.Equal(t, "A member with this email already exists", ErrorMemberExists.Error())
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, InitTranslator(writeZH(t)))

	cases := []struct {
		name     string
		lang     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"coded en", "en", ErrorMemberNotFound, http.StatusNotFound, "Team member not found"},
		{"coded zh", "zh", ErrorMemberNotFound, http.StatusNotFound, "团队成员不存在"},
		{"wrapped", "en", fmt.Errorf("x: %w", ErrorInsufficientAuthority), http.StatusForbidden, "You do not have sufficient authority for this action"},
		{"plain error is hidden", "en", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set(cnst.XLang, tc.lang)

			RespondWithError(c, tc.err)

			assert.Equal(t, tc.wantCode, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.wantMsg, body["error"])
			assert.True(t, c.IsAborted())
		})
	}
}

func TestRespondWithSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	Created(SuccessMemberInvited).WithPayload(map[string]string{"id": "u1"}).Send(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Message string            `json:"message"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invitation sent", body.Message)
	assert.Equal(t, "u1", body.Data["id"])
}
