package settings

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/smartdoc/tracker-api/internal/model"
)

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

type memSettingsRepo struct {
	values map[string]json.RawMessage
}

func (m *memSettingsRepo) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return m.values[key], nil
}

func (m *memSettingsRepo) Set(ctx context.Context, key string, value json.RawMessage) error {
	m.values[key] = value
	return nil
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****6789", MaskSecret("123456789"))
}

func TestGetEmailConfig_MasksSecrets(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &memSettingsRepo{values: map[string]json.RawMessage{
		model.SettingEmailProvider: json.RawMessage(`"smtp"`),
		model.SettingSMTPConfig:    json.RawMessage(`{"host":"smtp.example.com","port":587,"user":"bot@example.com","password":"supersecret1234"}`),
		model.SettingEmailAPI:      json.RawMessage(`{"key":"re_abcdef123456","from_email":"noreply@example.com"}`),
	}}

	r := gin.New()
	NewHandler(repo).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings/email", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "supersecret1234")
	assert.NotContains(t, body, "re_abcdef123456")
	assert.Contains(t, body, "****1234")
	assert.Contains(t, body, "****3456")
	assert.Contains(t, body, "smtp.example.com")
}

func TestUpdateEmailConfig_PartialWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &memSettingsRepo{values: map[string]json.RawMessage{
		model.SettingSMTPConfig: json.RawMessage(`{"host":"old.example.com"}`),
	}}

	r := gin.New()
	NewHandler(repo).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/email",
		jsonBody(`{"provider":"api","api":{"key":"re_new","from_email":"x@y.z"}}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"api"`, string(repo.values[model.SettingEmailProvider]))
	assert.Contains(t, string(repo.values[model.SettingEmailAPI]), "re_new")
	// Untouched section keeps its stored value.
	assert.JSONEq(t, `{"host":"old.example.com"}`, string(repo.values[model.SettingSMTPConfig]))
}

func TestUpdateEmailConfig_RejectsUnknownProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &memSettingsRepo{values: map[string]json.RawMessage{}}
	r := gin.New()
	NewHandler(repo).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/email",
		jsonBody(`{"provider":"pigeon"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
